// Package compose burns captions onto the selected clip window and muxes the narration
package compose

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// Module implements clip composition
type Module struct{}

// Params contains the parameters for composition
type Params struct {
	Source      string  `json:"source"`      // Background video file
	StartSec    float64 `json:"startSec"`    // Clip window start offset
	WindowSec   float64 `json:"windowSec"`   // Clip window duration
	Audio       string  `json:"audio"`       // Narration WAV track
	AudioSec    float64 `json:"audioSec"`    // Narration duration
	Subtitles   string  `json:"subtitles"`   // SRT caption file
	Width       int     `json:"width"`       // Target frame width (default: 1080)
	Height      int     `json:"height"`      // Target frame height (default: 1920)
	MusicDir    string  `json:"musicDir"`    // Optional background music directory
	MusicVolume float64 `json:"musicVolume"` // Music volume under narration (default: 0.15)
	Seed        int64   `json:"seed"`        // Random seed for music selection
	Output      string  `json:"output"`      // Run output directory
}

// New creates a new compose module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "compose"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Source); err != nil {
		return err
	}
	if err := utils.ValidateInputPath(p.Audio); err != nil {
		return err
	}
	if err := utils.ValidateInputPath(p.Subtitles); err != nil {
		return err
	}
	if p.AudioSec <= 0 {
		return &utils.ValidationError{Field: "audioSec", Message: "narration duration must be positive"}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if err := utils.ValidateRequiredDependency("ffmpeg"); err != nil {
		return err
	}

	return nil
}

// Execute produces composite.mp4: the clip window cropped to vertical,
// captions burned in, narration (and optional music) as the audio track.
//
// Duration policy: the composite always lasts exactly as long as the
// narration. A clip shorter than the narration is looped; a longer clip is
// trimmed.
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	if p.Width == 0 {
		p.Width = 1080
	}
	if p.Height == 0 {
		p.Height = 1920
	}
	if p.MusicVolume == 0 {
		p.MusicVolume = 0.15
	}

	// Pass 1: cut the selected window out of the source
	clipPath := filepath.Join(p.Output, "clip.mp4")
	cutArgs := BuildCutArgs(p, clipPath)
	utils.LogVerbose("Cutting clip window: ffmpeg %v", cutArgs)
	if err := m.runFFmpeg(ctx, cutArgs); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to cut clip window: %w", err)
	}

	music := m.pickMusic(p)
	if music != "" {
		utils.LogInfo("Background music: %s", filepath.Base(music))
	}

	// Pass 2: loop/trim to the narration length, crop, burn captions, mux audio
	compositePath := filepath.Join(p.Output, "composite.mp4")
	composeArgs := BuildComposeArgs(p, clipPath, music, compositePath)
	utils.LogVerbose("Composing: ffmpeg %v", composeArgs)
	if err := m.runFFmpeg(ctx, composeArgs); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("composition failed: %w", err)
	}

	if _, err := os.Stat(compositePath); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("ffmpeg completed but composite was not created: %w", err)
	}

	utils.LogSuccess("Composite written to %s", compositePath)

	return modules.ModuleResult{
		Outputs: map[string]string{
			"composite": compositePath,
		},
	}, nil
}

func (m *Module) runFFmpeg(ctx context.Context, args []string) error {
	cmd := execCommand(ctx, "ffmpeg", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg command failed: %w", err)
	}
	return nil
}

// BuildCutArgs builds the ffmpeg arguments that extract the clip window
func BuildCutArgs(p Params, clipPath string) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(p.StartSec),
		"-t", formatSeconds(p.WindowSec),
		"-i", p.Source,
		"-an",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-loglevel", "error",
		clipPath,
	}
}

// BuildComposeArgs builds the ffmpeg arguments for the composition pass
func BuildComposeArgs(p Params, clipPath, musicPath, outputPath string) []string {
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", clipPath,
		"-i", p.Audio,
	}
	if musicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", musicPath)
	}

	args = append(args, "-vf", BuildVideoFilter(p.Width, p.Height, p.Subtitles))

	if musicPath != "" {
		filter := fmt.Sprintf("[2:a]volume=%.2f[m];[1:a][m]amix=inputs=2:duration=first[a]", p.MusicVolume)
		args = append(args,
			"-filter_complex", filter,
			"-map", "0:v",
			"-map", "[a]",
		)
	} else {
		args = append(args,
			"-map", "0:v",
			"-map", "1:a",
		)
	}

	args = append(args,
		"-t", formatSeconds(p.AudioSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "18",
		"-c:a", "aac",
		"-loglevel", "error",
		outputPath,
	)
	return args
}

// BuildVideoFilter builds the center-crop, scale and caption-burn filter chain
func BuildVideoFilter(width, height int, subtitlePath string) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,subtitles=%s:force_style='Fontsize=16,Bold=1,Alignment=2,MarginV=60,Outline=2'",
		width, height, width, height, subtitlePath,
	)
}

// pickMusic selects a random music file from the configured directory, or
// returns "" when music is not configured or none is found
func (m *Module) pickMusic(p Params) string {
	if p.MusicDir == "" {
		return ""
	}

	files, err := utils.ListAudioFiles(p.MusicDir)
	if err != nil || len(files) == 0 {
		utils.LogWarning("No background music found in %s", p.MusicDir)
		return ""
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return files[rng.Intn(len(files))]
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "source",
				Description: "Background video file",
				Patterns:    []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "audio",
				Description: "Narration WAV track",
				Patterns:    []string{".wav"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "subtitles",
				Description: "SRT caption file",
				Patterns:    []string{".srt"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Run output directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "musicDir",
				Description: "Optional background music directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "composite",
				Description: "Vertical composite with burned captions and narration audio",
				Patterns:    []string{".mp4"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
