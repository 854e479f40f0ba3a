// Package script generates the narration text for a run
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/services/gemini"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// contextKey is a type for context keys
type contextKey string

// GeminiServiceKey is the context key under which tests inject a fake service
const GeminiServiceKey = contextKey("gemini_service")

// ErrEmptyScript is returned when the generation service produces no usable narration
var ErrEmptyScript = errors.New("generation service returned an empty script")

// Module implements narration script generation
type Module struct{}

// Params contains the parameters for script generation
type Params struct {
	Source           string   `json:"source"`           // Content source: "model", "reddit" or "askreddit" (default: model)
	Topic            string   `json:"topic"`            // Topic for the narration; empty lets the model choose
	Output           string   `json:"output"`           // Run output directory
	APIKey           string   `json:"apiKey"`           // Gemini API key
	Model            string   `json:"model"`            // Model name (default: gemini-2.0-flash)
	Temperature      float64  `json:"temperature"`      // Sampling temperature (default: 0.9)
	MaxWords         int      `json:"maxWords"`         // Approximate narration length (default: 160)
	RequestTimeoutMs int      `json:"requestTimeoutMs"` // API request timeout (default: 60000)
	Subreddits       []string `json:"subreddits"`       // Story subreddits for the reddit source
	AskSubreddits    []string `json:"askSubreddits"`    // Question subreddits for the askreddit source
	AvoidRepeats     bool     `json:"avoidRepeats"`     // Skip posts already used by earlier runs
	HistoryFile      string   `json:"historyFile"`      // Usage history path shared with clip selection
	Seed             int64    `json:"seed"`             // Random seed for post selection; 0 means time-based
}

// Content is the structured result of a generation call
type Content struct {
	Title    string `json:"title"`
	Story    string `json:"story"`
	Hashtags string `json:"hashtags"`
}

// New creates a new script generation module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "script"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	switch p.Source {
	case "", "model":
		if p.APIKey == "" {
			return &utils.ValidationError{Field: "apiKey", Message: "generation API key is required"}
		}
	case "reddit", "askreddit":
	default:
		return &utils.ValidationError{Field: "source", Message: fmt.Sprintf("unknown content source %q", p.Source)}
	}
	if err := utils.ValidateOutputPath(p.Output); err != nil {
		return err
	}

	return nil
}

// getService returns a Gemini service from context or creates a real one
func (m *Module) getService(ctx context.Context, apiKey string) (gemini.Servicer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	if service, ok := ctx.Value(GeminiServiceKey).(gemini.Servicer); ok {
		return service, nil
	}

	return gemini.NewService(apiKey)
}

// Execute produces the narration content from the configured source and
// stores it in the run directory
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}

	var content *Content
	var err error
	switch p.Source {
	case "reddit", "askreddit":
		content, err = m.executeReddit(ctx, p)
	default:
		content, err = m.executeModel(ctx, p)
	}
	if err != nil {
		return modules.ModuleResult{}, err
	}

	scriptPath := filepath.Join(p.Output, "script.txt")
	if err := utils.WriteTextFile(scriptPath, content.Story); err != nil {
		return modules.ModuleResult{}, err
	}

	// Reddit content is narrated with the post title as its opening line
	narration := content.Story
	if p.Source == "reddit" || p.Source == "askreddit" {
		narration = content.Title + ". " + content.Story
	}

	utils.LogSuccess("Script ready: %q (%d words)", content.Title, len(strings.Fields(content.Story)))

	return modules.ModuleResult{
		Outputs: map[string]string{
			"script":    scriptPath,
			"title":     content.Title,
			"story":     content.Story,
			"narration": narration,
			"hashtags":  content.Hashtags,
		},
	}, nil
}

// executeModel asks the generation service for narration text
func (m *Module) executeModel(ctx context.Context, p Params) (*Content, error) {
	if p.Model == "" {
		p.Model = "gemini-2.0-flash"
	}
	if p.Temperature == 0 {
		p.Temperature = 0.9
	}
	if p.MaxWords == 0 {
		p.MaxWords = 160
	}
	if p.RequestTimeoutMs == 0 {
		p.RequestTimeoutMs = 60000
	}

	service, err := m.getService(ctx, p.APIKey)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(p.Topic, p.MaxWords)
	utils.LogInfo("Generating narration script (topic: %s)", displayTopic(p.Topic))

	raw, err := service.GetContent(ctx, prompt, gemini.CompletionOptions{
		Model:            p.Model,
		Temperature:      p.Temperature,
		RequestTimeoutMS: p.RequestTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return ParseContent(raw)
}

// BuildPrompt assembles the generation prompt. An empty topic instructs the
// model to pick one itself.
func BuildPrompt(topic string, maxWords int) string {
	var b strings.Builder
	b.WriteString("You write narration scripts for short vertical videos.\n")
	if strings.TrimSpace(topic) == "" {
		b.WriteString("Pick one surprising, engaging topic yourself.\n")
	} else {
		fmt.Fprintf(&b, "The topic is: %s\n", topic)
	}
	fmt.Fprintf(&b, "Write a spoken narration of at most %d words. Start with a hook sentence. ", maxWords)
	b.WriteString("Use short sentences that read well aloud. No emojis, no stage directions.\n")
	b.WriteString(`Respond with JSON only, in this exact shape: {"title": "...", "story": "...", "hashtags": "#... #... #..."}`)
	return b.String()
}

// ParseContent decodes the model's JSON reply, tolerating markdown fences
func ParseContent(raw string) (*Content, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var content Content
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return nil, fmt.Errorf("failed to parse generation response: %w", err)
	}

	if strings.TrimSpace(content.Story) == "" {
		return nil, ErrEmptyScript
	}
	if content.Title == "" {
		content.Title = firstWords(content.Story, 6)
	}

	return &content, nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func displayTopic(topic string) string {
	if strings.TrimSpace(topic) == "" {
		return "model's choice"
	}
	return topic
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "apiKey",
				Description: "Gemini API key",
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
				Name:        "source",
				Description: "Content source: model, reddit or askreddit",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "topic",
				Description: "Topic for the narration; empty lets the model choose",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "model",
				Description: "Generation model name",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "subreddits",
				Description: "Subreddits consulted by the reddit sources",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "script",
				Description: "Narration script text file",
				Patterns:    []string{".txt"},
				Type:        string(modules.OutputTypeFile),
			},
			{
				Name:        "story",
				Description: "Story text",
				Type:        string(modules.OutputTypeData),
			},
			{
				Name:        "narration",
				Description: "Text handed to the voiceover stage",
				Type:        string(modules.OutputTypeData),
			},
		},
	}
}
