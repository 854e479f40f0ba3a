package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported media extensions for the asset library
var (
	videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
	audioExtensions = []string{".mp3", ".wav", ".m4a", ".aac", ".ogg"}
)

// IsVideoFile reports whether the path has a recognized video extension
func IsVideoFile(path string) bool {
	return hasExtension(path, videoExtensions)
}

// IsAudioFile reports whether the path has a recognized audio extension
func IsAudioFile(path string) bool {
	return hasExtension(path, audioExtensions)
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListVideoFiles returns the video files in a directory, sorted by name
func ListVideoFiles(dir string) ([]string, error) {
	return listMediaFiles(dir, IsVideoFile)
}

// ListAudioFiles returns the audio files in a directory, sorted by name
func ListAudioFiles(dir string) ([]string, error) {
	return listMediaFiles(dir, IsAudioFile)
}

func listMediaFiles(dir string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

// WriteTextFile writes text to a file, ensuring it's written as text
func WriteTextFile(filePath string, content string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			LogWarning("Failed to close file: %v", err)
		}
	}()

	writer := bufio.NewWriter(f)
	if _, err := writer.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	LogDebug("Successfully wrote content to %s", filePath)
	return nil
}

// SafeFileName converts a title into a filesystem-safe base name
func SafeFileName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = "video"
	}
	return name
}
