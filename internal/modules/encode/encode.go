// Package encode produces the final size-constrained output file
package encode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// Bitrate bounds in kbit/s for the final video stream
const (
	minVideoKbps = 800
	maxVideoKbps = 8000
	audioKbps    = 128
)

// Module implements final encoding
type Module struct{}

// Params contains the parameters for encoding
type Params struct {
	Input        string  `json:"input"`        // Composite video file
	DurationSec  float64 `json:"durationSec"`  // Output duration in seconds
	TargetSizeMB int     `json:"targetSizeMB"` // Size envelope for the final file (default: 40)
	Output       string  `json:"output"`       // Run output directory
	OutputName   string  `json:"outputName"`   // Final file name (default: final.mp4)
}

// New creates a new encode module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "encode"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Input); err != nil {
		return err
	}
	if p.DurationSec <= 0 {
		return &utils.ValidationError{Field: "durationSec", Message: "duration must be positive"}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.OutputName != "" {
		if err := utils.ValidateFileExtension(p.OutputName, []string{".mp4"}); err != nil {
			return err
		}
	}
	if err := utils.ValidateRequiredDependency("ffmpeg"); err != nil {
		return err
	}

	return nil
}

// Execute re-encodes the composite to fit the target size envelope
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	if p.TargetSizeMB == 0 {
		p.TargetSizeMB = 40
	}
	if p.OutputName == "" {
		p.OutputName = "final.mp4"
	}

	videoKbps := ComputeVideoBitrate(p.TargetSizeMB, p.DurationSec)
	outputPath := filepath.Join(p.Output, p.OutputName)

	utils.LogInfo("Encoding final video at %d kbit/s (target %d MB)", videoKbps, p.TargetSizeMB)

	args := BuildEncodeArgs(p.Input, outputPath, videoKbps)
	cmd := execCommand(ctx, "ffmpeg", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("ffmpeg command failed: %w", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("ffmpeg completed but output was not created: %w", err)
	}

	utils.LogSuccess("Final video written to %s", outputPath)

	return modules.ModuleResult{
		Outputs: map[string]string{
			"video": outputPath,
		},
	}, nil
}

// ComputeVideoBitrate derives the video bitrate in kbit/s that fits the
// target file size for the given duration, after reserving the audio budget.
// The result is clamped to a sane range.
func ComputeVideoBitrate(targetSizeMB int, durationSec float64) int {
	if durationSec <= 0 {
		return minVideoKbps
	}

	totalKbits := float64(targetSizeMB) * 8 * 1024
	kbps := int(totalKbits/durationSec) - audioKbps

	if kbps < minVideoKbps {
		return minVideoKbps
	}
	if kbps > maxVideoKbps {
		return maxVideoKbps
	}
	return kbps
}

// BuildEncodeArgs builds the ffmpeg arguments for the final encode
func BuildEncodeArgs(input, output string, videoKbps int) []string {
	return []string{
		"-y",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "medium",
		"-b:v", strconv.Itoa(videoKbps) + "k",
		"-maxrate", strconv.Itoa(videoKbps*2) + "k",
		"-bufsize", strconv.Itoa(videoKbps*4) + "k",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", strconv.Itoa(audioKbps) + "k",
		"-movflags", "+faststart",
		"-loglevel", "error",
		output,
	}
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "input",
				Description: "Composite video file",
				Patterns:    []string{".mp4"},
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
				Name:        "targetSizeMB",
				Description: "Size envelope for the final file in megabytes",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "outputName",
				Description: "Final file name",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "video",
				Description: "Final encoded vertical video",
				Patterns:    []string{".mp4"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
