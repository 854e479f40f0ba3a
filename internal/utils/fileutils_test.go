package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "simple title",
			title: "Deep Sea Creatures",
			want:  "Deep_Sea_Creatures",
		},
		{
			name:  "strips punctuation",
			title: "What?! The ocean's secrets...",
			want:  "What_The_oceans_secrets",
		},
		{
			name:  "empty title falls back",
			title: "",
			want:  "video",
		},
		{
			name:  "only punctuation falls back",
			title: "?!...",
			want:  "video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFileName(tt.title))
		})
	}

	t.Run("caps length at 60", func(t *testing.T) {
		long := ""
		for i := 0; i < 100; i++ {
			long += "a"
		}
		assert.Len(t, SafeFileName(long), 60)
	})
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("clip.mp4"))
	assert.True(t, IsVideoFile("CLIP.MOV"))
	assert.False(t, IsVideoFile("song.mp3"))
	assert.False(t, IsVideoFile("notes.txt"))
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("song.mp3"))
	assert.True(t, IsAudioFile("narration.wav"))
	assert.False(t, IsAudioFile("clip.mp4"))
}

func TestListVideoFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mov", "notes.txt", "song.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := ListVideoFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Sorted by name
	assert.Equal(t, filepath.Join(dir, "a.mov"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.mp4"), files[1])
}

func TestWriteTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	content := "line one\nline two"

	require.NoError(t, WriteTextFile(path, content))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}
