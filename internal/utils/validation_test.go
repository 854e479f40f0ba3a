package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "input", Message: "input path is required"}
	assert.Equal(t, "input: input path is required", err.Error())

	wrapped := &ValidationError{Field: "input", Message: "bad", Err: errors.New("boom")}
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestValidateInputPath(t *testing.T) {
	assert.Error(t, ValidateInputPath(""))
	assert.Error(t, ValidateInputPath(filepath.Join(t.TempDir(), "missing.mp4")))
	assert.NoError(t, ValidateInputPath(t.TempDir()))
}

func TestValidateOutputPath(t *testing.T) {
	assert.Error(t, ValidateOutputPath(""))

	// A missing directory is created
	path := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, ValidateOutputPath(path))
	assert.DirExists(t, path)
}

func TestValidateRequiredDependency(t *testing.T) {
	orig := ExecLookPath
	defer func() { ExecLookPath = orig }()

	ExecLookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	assert.NoError(t, ValidateRequiredDependency("ffmpeg"))

	ExecLookPath = func(name string) (string, error) { return "", errors.New("not found") }
	err := ValidateRequiredDependency("ffmpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg not found in PATH")
}

func TestValidateFileExtension(t *testing.T) {
	assert.NoError(t, ValidateFileExtension("final.mp4", []string{".mp4"}))
	assert.NoError(t, ValidateFileExtension("FINAL.MP4", []string{".mp4"}))
	assert.Error(t, ValidateFileExtension("final.avi", []string{".mp4"}))
}
