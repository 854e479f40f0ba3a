package subtitles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelsmith/reelsmith/internal/modules/voiceover"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	timings := voiceover.Timings{
		Phrases: []voiceover.PhraseTiming{
			{Text: "The ocean is deep.", StartMs: 0, EndMs: 1500},
			{Text: "Most of it is unexplored.", StartMs: 1700, EndMs: 3400},
		},
	}

	subs, err := Build(timings)
	require.NoError(t, err)
	require.Len(t, subs.Items, 2)

	assert.Equal(t, time.Duration(0), subs.Items[0].StartAt)
	assert.Equal(t, 1500*time.Millisecond, subs.Items[0].EndAt)
	assert.Equal(t, "The ocean is deep.", subs.Items[0].Lines[0].Items[0].Text)

	assert.Equal(t, 1700*time.Millisecond, subs.Items[1].StartAt)
	assert.Equal(t, 3400*time.Millisecond, subs.Items[1].EndAt)
}

func TestBuildRejectsBadTimings(t *testing.T) {
	_, err := Build(voiceover.Timings{})
	assert.ErrorContains(t, err, "no phrases")

	_, err = Build(voiceover.Timings{
		Phrases: []voiceover.PhraseTiming{{Text: "x", StartMs: 1000, EndMs: 1000}},
	})
	assert.ErrorContains(t, err, "non-positive duration")
}

func TestExecute(t *testing.T) {
	outDir := t.TempDir()
	timingsPath := filepath.Join(outDir, "timings.yaml")
	timingsYAML := `phrases:
  - text: The ocean is deep.
    startMs: 0
    endMs: 1500
  - text: Most of it is unexplored.
    startMs: 1700
    endMs: 3400
`
	require.NoError(t, os.WriteFile(timingsPath, []byte(timingsYAML), 0644))

	m := &Module{}
	result, err := m.Execute(context.Background(), map[string]interface{}{
		"timings": timingsPath,
		"output":  outDir,
	})
	require.NoError(t, err)

	srtPath := result.Outputs["subtitles"]
	assert.Equal(t, filepath.Join(outDir, "captions.srt"), srtPath)

	data, err := os.ReadFile(srtPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "The ocean is deep.")
	assert.Contains(t, content, "-->")
	assert.Contains(t, content, "00:00:01,700")
}

func TestExecuteMissingTimings(t *testing.T) {
	m := &Module{}
	_, err := m.Execute(context.Background(), map[string]interface{}{
		"timings": filepath.Join(t.TempDir(), "missing.yaml"),
		"output":  t.TempDir(),
	})
	assert.Error(t, err)
}
