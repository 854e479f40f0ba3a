package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")

	path := writeConfig(t, `
generation:
  api_key: gen-key
tts:
  api_key: tts-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Generation.Model)
	assert.Equal(t, DefaultSource, cfg.Generation.Source)
	assert.Equal(t, DefaultTTSEngine, cfg.TTS.Engine)
	assert.Equal(t, DefaultVoiceID, cfg.TTS.VoiceID)
	assert.Equal(t, DefaultInputDir, cfg.Video.InputDir)
	assert.Equal(t, DefaultOutputDir, cfg.Video.OutputDir)
	assert.Equal(t, DefaultDurationSec, cfg.Video.DurationSec)
	assert.Equal(t, DefaultWidth, cfg.Video.Width)
	assert.Equal(t, DefaultHeight, cfg.Video.Height)
	assert.Equal(t, DefaultTargetSize, cfg.Video.TargetSizeMB)
	assert.Equal(t, "private", cfg.YouTube.Privacy)
	assert.False(t, cfg.Upload.AutoUpload)
}

func TestLoadEnvFallbacks(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-gen-key")
	t.Setenv("ELEVENLABS_API_KEY", "env-tts-key")

	cfg, err := Load(writeConfig(t, "video:\n  duration_sec: 30\n"))
	require.NoError(t, err)

	assert.Equal(t, "env-gen-key", cfg.Generation.APIKey)
	assert.Equal(t, "env-tts-key", cfg.TTS.APIKey)
	assert.Equal(t, 30, cfg.Video.DurationSec)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing generation key",
			mutate:  func(c *Config) { c.Generation.APIKey = "" },
			wantErr: "generation.api_key",
		},
		{
			name: "reddit source needs no generation key",
			mutate: func(c *Config) {
				c.Generation.Source = "reddit"
				c.Generation.APIKey = ""
			},
		},
		{
			name:    "unknown content source",
			mutate:  func(c *Config) { c.Generation.Source = "hackernews" },
			wantErr: "generation.source",
		},
		{
			name:    "elevenlabs engine without key",
			mutate:  func(c *Config) { c.TTS.APIKey = "" },
			wantErr: "tts.api_key",
		},
		{
			name: "command engine without command",
			mutate: func(c *Config) {
				c.TTS.Engine = "command"
				c.TTS.Command = ""
			},
			wantErr: "tts.command",
		},
		{
			name:    "unknown tts engine",
			mutate:  func(c *Config) { c.TTS.Engine = "espeak" },
			wantErr: "tts.engine",
		},
		{
			name: "auto upload without credentials",
			mutate: func(c *Config) {
				c.Upload.AutoUpload = true
				c.Upload.Username = ""
			},
			wantErr: "upload.username",
		},
		{
			name:    "non-positive duration",
			mutate:  func(c *Config) { c.Video.DurationSec = -5 },
			wantErr: "duration_sec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Generation: GenerationConfig{APIKey: "gen-key", Model: DefaultModel, Source: DefaultSource},
				TTS:        TTSConfig{Engine: "elevenlabs", APIKey: "tts-key", VoiceID: DefaultVoiceID},
				Video:      VideoConfig{DurationSec: 60},
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
