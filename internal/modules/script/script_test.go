package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelsmith/reelsmith/internal/services/gemini"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGeminiService returns canned content for Execute tests
type fakeGeminiService struct {
	content string
	err     error
	prompt  string
}

func (f *fakeGeminiService) Generate(ctx context.Context, prompt string, opts gemini.CompletionOptions) (*gemini.GenerateResponse, error) {
	return nil, f.err
}

func (f *fakeGeminiService) GetContent(ctx context.Context, prompt string, opts gemini.CompletionOptions) (string, error) {
	f.prompt = prompt
	return f.content, f.err
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
		wantErr   bool
		wantErrIs error
	}{
		{
			name:      "plain json",
			raw:       `{"title": "Deep Sea", "story": "The ocean hides things.", "hashtags": "#ocean #facts"}`,
			wantTitle: "Deep Sea",
		},
		{
			name:      "markdown fenced json",
			raw:       "```json\n{\"title\": \"Deep Sea\", \"story\": \"The ocean hides things.\", \"hashtags\": \"#ocean\"}\n```",
			wantTitle: "Deep Sea",
		},
		{
			name:      "bare fence",
			raw:       "```\n{\"title\": \"Deep Sea\", \"story\": \"The ocean hides things.\"}\n```",
			wantTitle: "Deep Sea",
		},
		{
			name:      "missing title falls back to first words",
			raw:       `{"story": "One two three four five six seven eight."}`,
			wantTitle: "One two three four five six",
		},
		{
			name:      "empty story",
			raw:       `{"title": "Nothing", "story": "  "}`,
			wantErr:   true,
			wantErrIs: ErrEmptyScript,
		},
		{
			name:    "not json",
			raw:     "Sure! Here is your script:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := ParseContent(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, content.Title)
			assert.NotEmpty(t, content.Story)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	withTopic := BuildPrompt("deep sea creatures", 160)
	assert.Contains(t, withTopic, "deep sea creatures")
	assert.Contains(t, withTopic, "160 words")
	assert.Contains(t, withTopic, `"hashtags"`)

	withoutTopic := BuildPrompt("  ", 120)
	assert.Contains(t, withoutTopic, "Pick one surprising, engaging topic")
	assert.NotContains(t, withoutTopic, "The topic is")
}

func TestExecute(t *testing.T) {
	outDir := t.TempDir()
	fake := &fakeGeminiService{
		content: `{"title": "Deep Sea", "story": "The ocean hides things. Most of it is unexplored.", "hashtags": "#ocean #facts"}`,
	}
	ctx := context.WithValue(context.Background(), GeminiServiceKey, fake)

	m := &Module{}
	result, err := m.Execute(ctx, map[string]interface{}{
		"topic":  "deep sea creatures",
		"output": outDir,
		"apiKey": "test-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "Deep Sea", result.Outputs["title"])
	assert.Equal(t, "#ocean #facts", result.Outputs["hashtags"])
	assert.Contains(t, fake.prompt, "deep sea creatures")

	// Model content is narrated as-is
	assert.Equal(t, result.Outputs["story"], result.Outputs["narration"])

	data, err := os.ReadFile(filepath.Join(outDir, "script.txt"))
	require.NoError(t, err)
	assert.Equal(t, "The ocean hides things. Most of it is unexplored.", string(data))
}

func TestExecuteEmptyStory(t *testing.T) {
	fake := &fakeGeminiService{content: `{"title": "Nothing", "story": ""}`}
	ctx := context.WithValue(context.Background(), GeminiServiceKey, fake)

	m := &Module{}
	_, err := m.Execute(ctx, map[string]interface{}{
		"output": t.TempDir(),
		"apiKey": "test-key",
	})
	assert.ErrorIs(t, err, ErrEmptyScript)
}

func TestValidate(t *testing.T) {
	m := &Module{}

	err := m.Validate(map[string]interface{}{"output": t.TempDir()})
	assert.ErrorContains(t, err, "apiKey")

	err = m.Validate(map[string]interface{}{"apiKey": "k", "output": t.TempDir()})
	assert.NoError(t, err)

	// Reddit sources need no generation key
	err = m.Validate(map[string]interface{}{"source": "reddit", "output": t.TempDir()})
	assert.NoError(t, err)

	err = m.Validate(map[string]interface{}{"source": "hackernews", "output": t.TempDir()})
	assert.ErrorContains(t, err, "source")
}
