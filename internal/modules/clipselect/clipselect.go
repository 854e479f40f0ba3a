// Package clipselect picks a random clip window from the background video library
package clipselect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/reelsmith/reelsmith/internal/history"
	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// Sentinel errors for source selection failures
var (
	// ErrNoSourceVideos is returned when the input directory holds no video files
	ErrNoSourceVideos = errors.New("no source videos found in input directory")
	// ErrInsufficientSource is returned when the source is shorter than the requested window
	ErrInsufficientSource = errors.New("source video is shorter than the requested clip duration")
)

// Window is a (start, duration) sub-interval of a longer source video
type Window struct {
	StartSec    float64
	DurationSec float64
}

// Module implements random source and clip window selection
type Module struct{}

// Params contains the parameters for clip selection
type Params struct {
	InputDir    string  `json:"inputDir"`    // Directory holding background videos
	Output      string  `json:"output"`      // Run output directory (used for the usage history)
	DurationSec float64 `json:"durationSec"` // Desired clip duration in seconds
	Seed        int64   `json:"seed"`        // Random seed; 0 means time-based
	TrackUsage  bool    `json:"trackUsage"`  // Avoid reusing sources across runs
	HistoryFile string  `json:"historyFile"` // Usage history path (default: <inputDir>/used_content.json)
}

// New creates a new clip selection module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "clipselect"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if p.InputDir == "" {
		return &utils.ValidationError{Field: "inputDir", Message: "input directory is required"}
	}
	if p.DurationSec <= 0 {
		return &utils.ValidationError{Field: "durationSec", Message: "clip duration must be positive"}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if err := utils.ValidateRequiredDependency("ffprobe"); err != nil {
		return err
	}

	return nil
}

// Execute picks a source video and draws a random window inside it
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	if p.HistoryFile == "" {
		p.HistoryFile = filepath.Join(p.InputDir, "used_content.json")
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	source, err := m.pickSource(p, rng)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	utils.LogInfo("Selected background video: %s", filepath.Base(source))

	totalSec, err := ProbeDuration(ctx, source)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to probe %s: %w", source, err)
	}

	window, err := SelectWindow(totalSec, p.DurationSec, rng)
	if err != nil {
		return modules.ModuleResult{}, err
	}
	utils.LogVerbose("Clip window: start=%.2fs duration=%.2fs (source %.2fs)", window.StartSec, window.DurationSec, totalSec)

	return modules.ModuleResult{
		Outputs: map[string]string{
			"source":      source,
			"startSec":    strconv.FormatFloat(window.StartSec, 'f', 3, 64),
			"durationSec": strconv.FormatFloat(window.DurationSec, 'f', 3, 64),
		},
		Metadata: map[string]interface{}{
			"totalSec": totalSec,
			"seed":     seed,
		},
	}, nil
}

// SelectWindow draws a start time uniformly from [0, total-desired].
// The returned window always lies fully inside [0, total].
func SelectWindow(totalSec, desiredSec float64, rng *rand.Rand) (Window, error) {
	if desiredSec <= 0 {
		return Window{}, fmt.Errorf("desired duration must be positive, got %.2f", desiredSec)
	}
	if totalSec < desiredSec {
		return Window{}, fmt.Errorf("%w: have %.2fs, need %.2fs", ErrInsufficientSource, totalSec, desiredSec)
	}

	start := rng.Float64() * (totalSec - desiredSec)
	return Window{StartSec: start, DurationSec: desiredSec}, nil
}

// pickSource selects a random video file from the library. When usage
// tracking is on, previously used files are skipped and the history resets
// once every file has been used.
func (m *Module) pickSource(p Params, rng *rand.Rand) (string, error) {
	videos, err := utils.ListVideoFiles(p.InputDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSourceVideos, err)
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoSourceVideos, p.InputDir)
	}

	if !p.TrackUsage {
		return videos[rng.Intn(len(videos))], nil
	}

	hist, err := history.Load(p.HistoryFile)
	if err != nil {
		utils.LogWarning("Could not load usage history: %v", err)
		hist = &history.History{}
	}

	unused := make([]string, 0, len(videos))
	for _, v := range videos {
		if !hist.HasVideo(filepath.Base(v)) {
			unused = append(unused, v)
		}
	}

	// All sources used, start over
	if len(unused) == 0 {
		utils.LogInfo("All background videos used, resetting usage history")
		hist.ResetVideos()
		unused = videos
	}

	selected := unused[rng.Intn(len(unused))]
	hist.AddVideo(filepath.Base(selected))
	if err := hist.Save(p.HistoryFile); err != nil {
		utils.LogWarning("Could not save usage history: %v", err)
	}

	return selected, nil
}

// ProbeDuration returns a media file's duration in seconds using ffprobe
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := execCommand(ctx,
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w (%s)", err, stderr.String())
	}

	durationStr := string(bytes.TrimSpace(stdout.Bytes()))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", durationStr, err)
	}

	return duration, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "inputDir",
				Description: "Directory holding background videos",
				Type:        string(modules.InputTypeDirectory),
			},
			{
				Name:        "durationSec",
				Description: "Desired clip duration in seconds",
				Type:        string(modules.InputTypeData),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "seed",
				Description: "Random seed for reproducible selection",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "trackUsage",
				Description: "Avoid reusing sources across runs",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "source",
				Description: "Selected background video file",
				Patterns:    []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
				Type:        string(modules.OutputTypeFile),
			},
			{
				Name:        "startSec",
				Description: "Selected window start offset in seconds",
				Type:        string(modules.OutputTypeData),
			},
			{
				Name:        "durationSec",
				Description: "Selected window duration in seconds",
				Type:        string(modules.OutputTypeData),
			},
		},
	}
}
