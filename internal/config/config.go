// Package config loads and validates the reelsmith configuration file
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value
const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultSource      = "model"
	DefaultTTSEngine   = "elevenlabs"
	DefaultVoiceID     = "21m00Tcm4TlvDq8ikWAM"
	DefaultInputDir    = "background_videos"
	DefaultOutputDir   = "output"
	DefaultDurationSec = 60
	DefaultWidth       = 1080
	DefaultHeight      = 1920
	DefaultTargetSize  = 40
)

// GenerationConfig holds settings for the content sourcing stage
type GenerationConfig struct {
	APIKey        string   `yaml:"api_key"`
	Model         string   `yaml:"model"`
	Source        string   `yaml:"source"`         // "model", "reddit" or "askreddit"
	Subreddits    []string `yaml:"subreddits"`     // story subreddits for the reddit source
	AskSubreddits []string `yaml:"ask_subreddits"` // question subreddits for the askreddit source
}

// TTSConfig holds settings for the voice synthesis service
type TTSConfig struct {
	Engine  string `yaml:"engine"`   // "elevenlabs" or "command"
	APIKey  string `yaml:"api_key"`  // used by the elevenlabs engine
	VoiceID string `yaml:"voice_id"` // used by the elevenlabs engine
	Command string `yaml:"command"`  // external TTS binary for the command engine
}

// VideoConfig holds settings for source selection, composition and encoding
type VideoConfig struct {
	InputDir     string `yaml:"input_dir"`
	OutputDir    string `yaml:"output_dir"`
	MusicDir     string `yaml:"music_dir"`
	DurationSec  int    `yaml:"duration_sec"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	TargetSizeMB int    `yaml:"target_size_mb"`
}

// UploadConfig holds the social account settings for the reel upload
type UploadConfig struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AutoUpload bool   `yaml:"auto_upload"`
}

// YouTubeConfig holds the optional YouTube Shorts upload settings
type YouTubeConfig struct {
	AutoUpload      bool   `yaml:"auto_upload"`
	CredentialsFile string `yaml:"credentials_file"`
	Privacy         string `yaml:"privacy"`
}

// Config is the root configuration document
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	TTS        TTSConfig        `yaml:"tts"`
	Video      VideoConfig      `yaml:"video"`
	Upload     UploadConfig     `yaml:"upload"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
}

// Load reads the configuration from a YAML file, applies environment
// fallbacks and defaults, and runs presence checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Generation.Model == "" {
		c.Generation.Model = DefaultModel
	}
	if c.Generation.Source == "" {
		c.Generation.Source = DefaultSource
	}
	if c.TTS.Engine == "" {
		c.TTS.Engine = DefaultTTSEngine
	}
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if c.TTS.VoiceID == "" {
		c.TTS.VoiceID = DefaultVoiceID
	}
	if c.Video.InputDir == "" {
		c.Video.InputDir = DefaultInputDir
	}
	if c.Video.OutputDir == "" {
		c.Video.OutputDir = DefaultOutputDir
	}
	if c.Video.DurationSec == 0 {
		c.Video.DurationSec = DefaultDurationSec
	}
	if c.Video.Width == 0 {
		c.Video.Width = DefaultWidth
	}
	if c.Video.Height == 0 {
		c.Video.Height = DefaultHeight
	}
	if c.Video.TargetSizeMB == 0 {
		c.Video.TargetSizeMB = DefaultTargetSize
	}
	if c.YouTube.CredentialsFile == "" {
		c.YouTube.CredentialsFile = "client_secret.json"
	}
	if c.YouTube.Privacy == "" {
		c.YouTube.Privacy = "private"
	}
}

// Validate runs presence checks on the configuration. It does not verify
// that keys are accepted by the remote services.
func (c *Config) Validate() error {
	switch c.Generation.Source {
	case "model":
		if c.Generation.APIKey == "" {
			return fmt.Errorf("generation.api_key is required (or set GEMINI_API_KEY)")
		}
	case "reddit", "askreddit":
	default:
		return fmt.Errorf("generation.source must be %q, %q or %q, got %q", "model", "reddit", "askreddit", c.Generation.Source)
	}

	switch c.TTS.Engine {
	case "elevenlabs":
		if c.TTS.APIKey == "" {
			return fmt.Errorf("tts.api_key is required for the elevenlabs engine (or set ELEVENLABS_API_KEY)")
		}
	case "command":
		if c.TTS.Command == "" {
			return fmt.Errorf("tts.command is required for the command engine")
		}
	default:
		return fmt.Errorf("tts.engine must be %q or %q, got %q", "elevenlabs", "command", c.TTS.Engine)
	}

	if c.Upload.AutoUpload {
		if c.Upload.Username == "" || c.Upload.Password == "" {
			return fmt.Errorf("upload.username and upload.password are required when upload.auto_upload is true")
		}
	}

	if c.Video.DurationSec <= 0 {
		return fmt.Errorf("video.duration_sec must be positive")
	}

	return nil
}
