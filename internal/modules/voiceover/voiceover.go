// Package voiceover synthesizes the narration audio track with phrase timings
package voiceover

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/services/elevenlabs"
	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"gopkg.in/yaml.v3"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

// contextKey is a type for context keys
type contextKey string

// TTSServiceKey is the context key under which tests inject a fake TTS service
const TTSServiceKey = contextKey("tts_service")

// Pause inserted between phrases in the final narration track
const interPhrasePause = 200 * time.Millisecond

// Module implements voiceover synthesis
type Module struct{}

// Params contains the parameters for voiceover synthesis
type Params struct {
	Text    string `json:"text"`    // Narration text to synthesize
	Output  string `json:"output"`  // Run output directory
	Engine  string `json:"engine"`  // "elevenlabs" or "command"
	APIKey  string `json:"apiKey"`  // ElevenLabs API key
	VoiceID string `json:"voiceId"` // ElevenLabs voice
	Command string `json:"command"` // External TTS binary for the command engine
}

// PhraseTiming records when a phrase is spoken in the narration track
type PhraseTiming struct {
	Text    string `yaml:"text"`
	StartMs int64  `yaml:"startMs"`
	EndMs   int64  `yaml:"endMs"`
}

// Timings is the document written to timings.yaml for the subtitle stage
type Timings struct {
	Phrases []PhraseTiming `yaml:"phrases"`
}

// New creates a new voiceover module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "voiceover"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if strings.TrimSpace(p.Text) == "" {
		return &utils.ValidationError{Field: "text", Message: "narration text is required"}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}

	switch p.Engine {
	case "", "elevenlabs":
		if p.APIKey == "" {
			return &utils.ValidationError{Field: "apiKey", Message: "TTS API key is required for the elevenlabs engine"}
		}
	case "command":
		if p.Command == "" {
			return &utils.ValidationError{Field: "command", Message: "TTS command is required for the command engine"}
		}
	default:
		return &utils.ValidationError{Field: "engine", Message: fmt.Sprintf("unknown TTS engine %q", p.Engine)}
	}

	return nil
}

// getService returns a TTS service from context or creates a real one
func (m *Module) getService(ctx context.Context, p Params) (elevenlabs.Servicer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	if service, ok := ctx.Value(TTSServiceKey).(elevenlabs.Servicer); ok {
		return service, nil
	}

	return elevenlabs.NewService(p.APIKey)
}

// Execute synthesizes every phrase of the narration, measures real phrase
// durations, and muxes the phrases into a single WAV track
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.Engine == "" {
		p.Engine = "elevenlabs"
	}

	phrases := SplitPhrases(p.Text)
	if len(phrases) == 0 {
		return modules.ModuleResult{}, fmt.Errorf("narration contains no speakable phrases")
	}

	ttsDir := filepath.Join(p.Output, "tts")
	if err := os.MkdirAll(ttsDir, 0755); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to create tts directory: %w", err)
	}

	utils.LogInfo("Synthesizing %d phrases with the %s engine", len(phrases), p.Engine)

	var phraseFiles []string
	for i, phrase := range phrases {
		outFile := filepath.Join(ttsDir, fmt.Sprintf("phrase_%03d.mp3", i))
		if err := m.synthesizePhrase(ctx, p, phrase, outFile); err != nil {
			return modules.ModuleResult{}, fmt.Errorf("phrase %d synthesis failed: %w", i, err)
		}
		phraseFiles = append(phraseFiles, outFile)
	}

	// Measure the real duration of every phrase and lay them out sequentially
	timings := Timings{}
	var cursor time.Duration
	durations := make([]time.Duration, len(phraseFiles))
	for i, file := range phraseFiles {
		d, err := MeasureMP3Duration(file)
		if err != nil {
			return modules.ModuleResult{}, fmt.Errorf("failed to measure %s: %w", file, err)
		}
		durations[i] = d
		timings.Phrases = append(timings.Phrases, PhraseTiming{
			Text:    phrases[i],
			StartMs: cursor.Milliseconds(),
			EndMs:   (cursor + d).Milliseconds(),
		})
		cursor += d + interPhrasePause
	}
	totalDuration := cursor - interPhrasePause

	audioPath := filepath.Join(p.Output, "narration.wav")
	if err := muxPhrases(phraseFiles, timings, totalDuration, audioPath); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to write narration track: %w", err)
	}

	timingsPath := filepath.Join(p.Output, "timings.yaml")
	data, err := yaml.Marshal(&timings)
	if err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to marshal timings: %w", err)
	}
	if err := os.WriteFile(timingsPath, data, 0644); err != nil {
		return modules.ModuleResult{}, fmt.Errorf("failed to write timings file: %w", err)
	}

	utils.LogSuccess("Narration track written to %s (%.1fs)", audioPath, totalDuration.Seconds())

	return modules.ModuleResult{
		Outputs: map[string]string{
			"audio":       audioPath,
			"timings":     timingsPath,
			"durationSec": strconv.FormatFloat(totalDuration.Seconds(), 'f', 3, 64),
		},
	}, nil
}

// synthesizePhrase produces one MP3 phrase file with the configured engine
func (m *Module) synthesizePhrase(ctx context.Context, p Params, phrase, outFile string) error {
	switch p.Engine {
	case "elevenlabs":
		service, err := m.getService(ctx, p)
		if err != nil {
			return err
		}
		data, err := service.Synthesize(ctx, p.VoiceID, phrase)
		if err != nil {
			return err
		}
		return os.WriteFile(outFile, data, 0644)

	case "command":
		var cmd *exec.Cmd
		if strings.Contains(p.Command, "edge-tts") {
			cmd = execCommand(ctx, p.Command,
				"--voice", "en-US-AriaNeural",
				"--text", phrase,
				"--write-media", outFile,
			)
		} else {
			cmd = execCommand(ctx, p.Command,
				"--text", phrase,
				"--output", outFile,
			)
		}
		cmd.Stdout = nil
		cmd.Stderr = nil
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("TTS command failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown TTS engine %q", p.Engine)
	}
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// SplitPhrases breaks narration text into sentence-level phrases
func SplitPhrases(text string) []string {
	var phrases []string
	for _, match := range sentenceRe.FindAllString(text, -1) {
		phrase := strings.TrimSpace(match)
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}

// MeasureMP3Duration returns the play time of an MP3 file
func MeasureMP3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close file: %v", err)
		}
	}()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}

	// go-mp3 emits 16-bit stereo frames, 4 bytes per frame
	seconds := float64(decoder.Length()) / (4 * float64(decoder.SampleRate()))
	return time.Duration(seconds * float64(time.Second)), nil
}

// muxPhrases decodes the phrase MP3s and writes them at their timed offsets
// into a single mono 16-bit WAV file
func muxPhrases(files []string, timings Timings, total time.Duration, outputPath string) error {
	const bitDepth = 16

	sampleRate, err := mp3SampleRate(files[0])
	if err != nil {
		return err
	}

	totalFrames := int(total.Seconds()*float64(sampleRate)) + 1
	mixBuffer := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, totalFrames),
		SourceBitDepth: bitDepth,
	}

	for i, path := range files {
		startFrame := int(float64(timings.Phrases[i].StartMs) / 1000.0 * float64(sampleRate))
		if err := decodeInto(path, mixBuffer.Data, startFrame); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			utils.LogWarning("Failed to close output file: %v", err)
		}
	}()

	enc := wav.NewEncoder(out, sampleRate, bitDepth, 1, 1)
	if err := enc.Write(mixBuffer); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return enc.Close()
}

func mp3SampleRate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close file: %v", err)
		}
	}()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	return decoder.SampleRate(), nil
}

// decodeInto downmixes an MP3 file to mono and copies it into dst at startFrame
func decodeInto(path string, dst []int, startFrame int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close file: %v", err)
		}
	}()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return err
	}

	buf := make([]byte, 4096)
	frame := startFrame
	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			// 4 bytes per stereo frame; keep the left channel
			for i := 0; i+3 < n; i += 4 {
				if frame >= len(dst) {
					break
				}
				dst[frame] = int(int16(buf[i]) | int16(buf[i+1])<<8)
				frame++
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "text",
				Description: "Narration text to synthesize",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "output",
				Description: "Run output directory",
				Type:        string(modules.InputTypeDirectory),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "engine",
				Description: "TTS engine: elevenlabs or command",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "voiceId",
				Description: "ElevenLabs voice identifier",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "audio",
				Description: "Narration WAV track",
				Patterns:    []string{".wav"},
				Type:        string(modules.OutputTypeFile),
			},
			{
				Name:        "timings",
				Description: "Per-phrase timing metadata",
				Patterns:    []string{".yaml"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
