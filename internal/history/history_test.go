package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "used_content.json"))
	require.NoError(t, err)
	assert.Empty(t, h.Videos)
	assert.Empty(t, h.Posts)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_content.json")

	h := &History{}
	h.AddVideo("a.mp4")
	h.AddPost("abc123")
	require.NoError(t, h.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.HasVideo("a.mp4"))
	assert.False(t, loaded.HasVideo("b.mp4"))
	assert.True(t, loaded.HasPost("abc123"))
	assert.False(t, loaded.HasPost("zzz999"))
}

func TestResetVideosKeepsPosts(t *testing.T) {
	h := &History{}
	h.AddVideo("a.mp4")
	h.AddPost("abc123")

	h.ResetVideos()
	assert.False(t, h.HasVideo("a.mp4"))
	assert.True(t, h.HasPost("abc123"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "used_content.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse usage history")
}
