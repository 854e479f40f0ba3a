// Package subtitles builds the caption track from the voiceover phrase timings
package subtitles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/modules/voiceover"
	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/asticode/go-astisub"
	"gopkg.in/yaml.v3"
)

// Module implements subtitle track generation
type Module struct{}

// Params contains the parameters for subtitle generation
type Params struct {
	Timings    string `json:"timings"`    // Path to the timings.yaml file
	Output     string `json:"output"`     // Run output directory
	OutputName string `json:"outputName"` // Output file name (default: captions.srt)
}

// New creates a new subtitles module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "subtitles"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Timings); err != nil {
		return err
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}
	if p.OutputName != "" {
		if err := utils.ValidateFileExtension(p.OutputName, []string{".srt"}); err != nil {
			return err
		}
	}

	return nil
}

// Execute converts the phrase timings into an SRT caption file
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.OutputName == "" {
		p.OutputName = "captions.srt"
	}

	data, err := os.ReadFile(p.Timings)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to read timings file: %w", err)
	}

	var timings voiceover.Timings
	if err := yaml.Unmarshal(data, &timings); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to parse timings file: %w", err)
	}

	subs, err := Build(timings)
	if err != nil {
		return modules.ModuleResult{}, err
	}

	outputPath := filepath.Join(p.Output, p.OutputName)
	f, err := os.Create(outputPath)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to create subtitle file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close subtitle file: %v", err)
		}
	}()

	if err := subs.WriteToSRT(f); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to write SRT: %w", err)
	}

	utils.LogSuccess("Caption track written to %s (%d cues)", outputPath, len(subs.Items))

	return modules.ModuleResult{
		Outputs: map[string]string{
			"subtitles": outputPath,
		},
	}, nil
}

// Build converts phrase timings into an in-memory subtitle track. Each phrase
// becomes one cue covering exactly the interval it is spoken in.
func Build(timings voiceover.Timings) (*astisub.Subtitles, error) {
	if len(timings.Phrases) == 0 {
		return nil, fmt.Errorf("timings contain no phrases")
	}

	subs := astisub.NewSubtitles()
	for i, phrase := range timings.Phrases {
		if phrase.EndMs <= phrase.StartMs {
			return nil, fmt.Errorf("phrase %d has non-positive duration", i)
		}
		item := &astisub.Item{
			Index:   i + 1,
			StartAt: time.Duration(phrase.StartMs) * time.Millisecond,
			EndAt:   time.Duration(phrase.EndMs) * time.Millisecond,
			Lines: []astisub.Line{
				{Items: []astisub.LineItem{{Text: phrase.Text}}},
			},
		}
		subs.Items = append(subs.Items, item)
	}

	return subs, nil
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "timings",
				Description: "Per-phrase timing metadata from the voiceover stage",
				Patterns:    []string{".yaml"},
				Type:        string(modules.InputTypeFile),
			},
			{
				Name:        "output",
				Description: "Run output directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "subtitles",
				Description: "SRT caption track aligned to the narration",
				Patterns:    []string{".srt"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
