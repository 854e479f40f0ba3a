// Package pipeline orchestrates the stage modules into a full production run
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith/internal/config"
	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/modules/clipselect"
	"github.com/reelsmith/reelsmith/internal/modules/compose"
	"github.com/reelsmith/reelsmith/internal/modules/encode"
	"github.com/reelsmith/reelsmith/internal/modules/script"
	"github.com/reelsmith/reelsmith/internal/modules/subtitles"
	"github.com/reelsmith/reelsmith/internal/modules/upload"
	"github.com/reelsmith/reelsmith/internal/modules/voiceover"
	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/google/uuid"
)

// RunOptions are the per-invocation knobs on top of the configuration file
type RunOptions struct {
	Topic       string // Narration topic; empty lets the model choose
	Source      string // Content source override; empty uses the config value
	Seed        int64  // Random seed for source selection; 0 means time-based
	DurationSec int    // Clip window length override; 0 uses the config value
	SkipUpload  bool   // Keep the result local regardless of the config
}

// Result describes a completed run
type Result struct {
	RunDir   string // Directory holding all artifacts of this run
	Video    string // Path to the final encoded video
	Title    string // Generated title
	Uploaded bool   // Whether any upload destination received the video
}

// Pipeline wires the stage modules together. Stages run sequentially and the
// first failure aborts the run.
type Pipeline struct {
	cfg      *config.Config
	registry *modules.ModuleRegistry
}

// New creates a pipeline with all stage modules registered
func New(cfg *config.Config) (*Pipeline, error) {
	registry := modules.NewModuleRegistry()
	for _, m := range []modules.Module{
		clipselect.New(),
		script.New(),
		voiceover.New(),
		subtitles.New(),
		compose.New(),
		encode.New(),
		upload.New(),
	} {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register module: %w", err)
		}
	}

	return &Pipeline{cfg: cfg, registry: registry}, nil
}

// Registry exposes the registered modules, mainly for listing commands
func (p *Pipeline) Registry() *modules.ModuleRegistry {
	return p.registry
}

// Execute runs the full pipeline and returns the run result. Source
// selection runs before any generation call so that a missing or too-short
// background library fails the run before any paid API is contacted.
func (p *Pipeline) Execute(ctx context.Context, opts RunOptions) (result Result, err error) {
	runID := uuid.NewString()
	runDir, err := p.createRunDir(runID)
	if err != nil {
		return Result{}, NewStageError(StageConfig, err)
	}
	result.RunDir = runDir

	state := NewRunState(runID, opts.Topic, opts.Seed)
	defer func() {
		if saveErr := state.Save(runDir); saveErr != nil {
			utils.LogWarning("Failed to save run state: %v", saveErr)
		}
	}()

	durationSec := p.cfg.Video.DurationSec
	if opts.DurationSec > 0 {
		durationSec = opts.DurationSec
	}

	uploadEnabled := (p.cfg.Upload.AutoUpload || p.cfg.YouTube.AutoUpload) && !opts.SkipUpload

	contentSource := p.cfg.Generation.Source
	if opts.Source != "" {
		contentSource = opts.Source
	}

	// Repeat prevention state is shared by clip selection and content sourcing
	historyFile := filepath.Join(p.cfg.Video.InputDir, "used_content.json")

	// Stage: source
	utils.LogStage("source")
	sourceOut, err := p.runStage(ctx, state, StageSource, "clipselect", map[string]interface{}{
		"inputDir":    p.cfg.Video.InputDir,
		"output":      runDir,
		"durationSec": float64(durationSec),
		"seed":        opts.Seed,
		"trackUsage":  uploadEnabled,
		"historyFile": historyFile,
	})
	if err != nil {
		return result, err
	}
	startSec := parseFloatOutput(sourceOut.Outputs, "startSec")
	windowSec := parseFloatOutput(sourceOut.Outputs, "durationSec")

	// Stage: script
	utils.LogStage("script")
	scriptOut, err := p.runStage(ctx, state, StageScript, "script", map[string]interface{}{
		"source":        contentSource,
		"topic":         opts.Topic,
		"output":        runDir,
		"apiKey":        p.cfg.Generation.APIKey,
		"model":         p.cfg.Generation.Model,
		"subreddits":    p.cfg.Generation.Subreddits,
		"askSubreddits": p.cfg.Generation.AskSubreddits,
		"avoidRepeats":  uploadEnabled,
		"historyFile":   historyFile,
		"seed":          opts.Seed,
	})
	if err != nil {
		return result, err
	}
	result.Title = scriptOut.Outputs["title"]

	// Stage: voiceover
	utils.LogStage("voiceover")
	voiceOut, err := p.runStage(ctx, state, StageVoiceover, "voiceover", map[string]interface{}{
		"text":    scriptOut.Outputs["narration"],
		"output":  runDir,
		"engine":  p.cfg.TTS.Engine,
		"apiKey":  p.cfg.TTS.APIKey,
		"voiceId": p.cfg.TTS.VoiceID,
		"command": p.cfg.TTS.Command,
	})
	if err != nil {
		return result, err
	}
	narrationSec := parseFloatOutput(voiceOut.Outputs, "durationSec")

	// Stage: subtitles
	utils.LogStage("subtitles")
	subsOut, err := p.runStage(ctx, state, StageSubtitles, "subtitles", map[string]interface{}{
		"timings": voiceOut.Outputs["timings"],
		"output":  runDir,
	})
	if err != nil {
		return result, err
	}

	// Stage: compose
	utils.LogStage("compose")
	composeOut, err := p.runStage(ctx, state, StageCompose, "compose", map[string]interface{}{
		"source":    sourceOut.Outputs["source"],
		"startSec":  startSec,
		"windowSec": windowSec,
		"audio":     voiceOut.Outputs["audio"],
		"audioSec":  narrationSec,
		"subtitles": subsOut.Outputs["subtitles"],
		"width":     p.cfg.Video.Width,
		"height":    p.cfg.Video.Height,
		"musicDir":  p.cfg.Video.MusicDir,
		"seed":      opts.Seed,
		"output":    runDir,
	})
	if err != nil {
		return result, err
	}

	// Stage: encode
	utils.LogStage("encode")
	outputName := utils.SafeFileName(result.Title) + ".mp4"
	encodeOut, err := p.runStage(ctx, state, StageEncode, "encode", map[string]interface{}{
		"input":        composeOut.Outputs["composite"],
		"durationSec":  narrationSec,
		"targetSizeMB": p.cfg.Video.TargetSizeMB,
		"output":       runDir,
		"outputName":   outputName,
	})
	if err != nil {
		return result, err
	}
	result.Video = encodeOut.Outputs["video"]

	// Stage: upload. A failure here aborts the run like any other stage,
	// but the encoded file is already on disk and stays there.
	utils.LogStage("upload")
	uploadOut, err := p.runStage(ctx, state, StageUpload, "upload", map[string]interface{}{
		"video":           result.Video,
		"title":           result.Title,
		"story":           scriptOut.Outputs["story"],
		"hashtags":        scriptOut.Outputs["hashtags"],
		"output":          runDir,
		"instagram":       p.cfg.Upload.AutoUpload && !opts.SkipUpload,
		"username":        p.cfg.Upload.Username,
		"password":        p.cfg.Upload.Password,
		"youtube":         p.cfg.YouTube.AutoUpload && !opts.SkipUpload,
		"credentialsFile": p.cfg.YouTube.CredentialsFile,
		"privacy":         p.cfg.YouTube.Privacy,
	})
	if err != nil {
		return result, err
	}
	if uploaded, ok := uploadOut.Metadata["uploaded"].(bool); ok {
		result.Uploaded = uploaded
	}

	state.CompletedAt = time.Now().Format(time.RFC3339)
	return result, nil
}

// runStage validates and executes one registered module, recording the
// outcome in the run state
func (p *Pipeline) runStage(ctx context.Context, state *RunState, stage Stage, moduleName string, params map[string]interface{}) (modules.ModuleResult, error) {
	module, err := p.registry.Get(moduleName)
	if err != nil {
		return modules.ModuleResult{}, NewStageError(stage, err)
	}

	startedAt := time.Now()

	if err := module.Validate(params); err != nil {
		state.RecordStage(stage, startedAt, err)
		return modules.ModuleResult{}, NewStageError(stage, err)
	}

	out, err := module.Execute(ctx, params)
	state.RecordStage(stage, startedAt, err)
	if err != nil {
		return modules.ModuleResult{}, NewStageError(stage, err)
	}

	state.AddArtifacts(out.Outputs)
	return out, nil
}

// createRunDir creates the per-run artifact directory. The name ends in
// -YYYYMMDD-HHMMSS so cleanup can recover the run time from the name alone.
func (p *Pipeline) createRunDir(runID string) (string, error) {
	now := time.Now()
	shortID := strings.Split(runID, "-")[0]
	name := fmt.Sprintf("reel-%s-%s-%s", shortID, now.Format("20060102"), now.Format("150405"))

	dir := filepath.Join(p.cfg.Video.OutputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	return dir, nil
}

func parseFloatOutput(outputs map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(outputs[key], 64)
	if err != nil {
		return 0
	}
	return v
}
