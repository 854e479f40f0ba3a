// Package upload publishes the final video to Instagram and YouTube
package upload

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	modules "github.com/reelsmith/reelsmith/internal/mod"
	"github.com/reelsmith/reelsmith/internal/services/instagram"
	"github.com/reelsmith/reelsmith/internal/services/youtube"
	"github.com/reelsmith/reelsmith/internal/utils"
)

// execCommand allows us to mock exec.CommandContext in tests
var execCommand = exec.CommandContext

type contextKey string

// InstagramServiceKey is the context key for injecting an Instagram service in tests
const InstagramServiceKey contextKey = "instagramService"

// YouTubeServiceKey is the context key for injecting a YouTube service in tests
const YouTubeServiceKey contextKey = "youtubeService"

// Module implements social uploads
type Module struct{}

// Params contains the parameters for uploading
type Params struct {
	Video    string `json:"video"`    // Final encoded video file
	Title    string `json:"title"`    // Video title
	Story    string `json:"story"`    // Narration text, used as the description
	Hashtags string `json:"hashtags"` // Space-separated hashtags
	Output   string `json:"output"`   // Run output directory

	Instagram bool   `json:"instagram"` // Upload to Instagram
	Username  string `json:"username"`  // Instagram username
	Password  string `json:"password"`  // Instagram password

	YouTube         bool   `json:"youtube"`         // Upload to YouTube
	CredentialsFile string `json:"credentialsFile"` // OAuth client secret file
	Privacy         string `json:"privacy"`         // YouTube privacy status (default: private)
}

// New creates a new upload module
func New() modules.Module {
	return &Module{}
}

// Name returns the module name
func (m *Module) Name() string {
	return "upload"
}

// Validate checks if the parameters are valid
func (m *Module) Validate(params map[string]interface{}) error {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return err
	}

	if err := utils.ValidateInputPath(p.Video); err != nil {
		return err
	}
	if p.Instagram && (p.Username == "" || p.Password == "") {
		return &utils.ValidationError{Field: "username", Message: "instagram credentials are required when instagram upload is enabled"}
	}
	if p.YouTube && p.CredentialsFile == "" {
		return &utils.ValidationError{Field: "credentialsFile", Message: "credentials file is required when youtube upload is enabled"}
	}

	return nil
}

// Execute uploads the final video to every enabled destination. When no
// destination is enabled it is a no-op. The video file on disk is never
// touched, whatever the upload outcome.
func (m *Module) Execute(ctx context.Context, params map[string]interface{}) (modules.ModuleResult, error) {
	var p Params
	if err := modules.ParseParams(params, &p); err != nil {
		return modules.ModuleResult{}, err
	}
	if p.Privacy == "" {
		p.Privacy = "private"
	}

	result := modules.ModuleResult{
		Outputs:  map[string]string{},
		Metadata: map[string]interface{}{"uploaded": false},
	}

	if !p.Instagram && !p.YouTube {
		utils.LogInfo("Uploads disabled, keeping %s locally", p.Video)
		return result, nil
	}

	thumbnail, err := m.extractThumbnail(ctx, p)
	if err != nil {
		utils.LogWarning("Thumbnail extraction failed, continuing without one: %v", err)
		thumbnail = ""
	} else {
		result.Outputs["thumbnail"] = thumbnail
	}

	if p.Instagram {
		code, err := m.uploadInstagram(ctx, p, thumbnail)
		if err != nil {
			return modules.ModuleResult{}, fmt.Errorf("instagram upload failed: %w", err)
		}
		utils.LogSuccess("Published reel: %s", code)
		result.Outputs["instagramCode"] = code
	}

	if p.YouTube {
		videoID, err := m.uploadYouTube(ctx, p)
		if err != nil {
			return modules.ModuleResult{}, fmt.Errorf("youtube upload failed: %w", err)
		}
		utils.LogSuccess("Published YouTube video: %s", videoID)
		result.Outputs["youtubeID"] = videoID
	}

	result.Metadata["uploaded"] = true
	return result, nil
}

// getInstagramService retrieves the Instagram service from context or creates a real one
func (m *Module) getInstagramService(ctx context.Context, p Params) (instagram.Servicer, error) {
	if svc, ok := ctx.Value(InstagramServiceKey).(instagram.Servicer); ok {
		return svc, nil
	}
	return instagram.NewService(p.Username, p.Password)
}

// getYouTubeService retrieves the YouTube service from context or creates a real one
func (m *Module) getYouTubeService(ctx context.Context, p Params) (youtube.Servicer, error) {
	if svc, ok := ctx.Value(YouTubeServiceKey).(youtube.Servicer); ok {
		return svc, nil
	}
	return youtube.NewService(p.CredentialsFile)
}

func (m *Module) uploadInstagram(ctx context.Context, p Params, thumbnail string) (string, error) {
	svc, err := m.getInstagramService(ctx, p)
	if err != nil {
		return "", err
	}

	if err := svc.Login(ctx); err != nil {
		return "", err
	}

	caption := p.Title
	if p.Hashtags != "" {
		caption += "\n\n" + p.Hashtags
	}

	return svc.UploadReel(ctx, p.Video, thumbnail, caption)
}

func (m *Module) uploadYouTube(ctx context.Context, p Params) (string, error) {
	svc, err := m.getYouTubeService(ctx, p)
	if err != nil {
		return "", err
	}

	if err := svc.Authorize(ctx); err != nil {
		return "", err
	}

	description := p.Story
	if p.Hashtags != "" {
		description += "\n\n" + p.Hashtags
	}

	return svc.Upload(ctx, p.Video, p.Title, description, strings.Fields(p.Hashtags), p.Privacy)
}

// extractThumbnail grabs a frame one second in as the cover image
func (m *Module) extractThumbnail(ctx context.Context, p Params) (string, error) {
	outDir := p.Output
	if outDir == "" {
		outDir = filepath.Dir(p.Video)
	}
	thumbnailPath := filepath.Join(outDir, "thumbnail.jpg")

	cmd := execCommand(ctx, "ffmpeg", buildThumbnailArgs(p.Video, thumbnailPath)...)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg command failed: %w", err)
	}

	if _, err := os.Stat(thumbnailPath); err != nil {
		return "", fmt.Errorf("ffmpeg completed but thumbnail was not created: %w", err)
	}

	return thumbnailPath, nil
}

// buildThumbnailArgs builds the ffmpeg arguments for the cover frame grab
func buildThumbnailArgs(videoPath, thumbnailPath string) []string {
	return []string{
		"-y",
		"-ss", "1",
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-loglevel", "error",
		thumbnailPath,
	}
}

// GetIO returns the module's input/output specification
func (m *Module) GetIO() modules.ModuleIO {
	return modules.ModuleIO{
		RequiredInputs: []modules.ModuleInput{
			{
				Name:        "video",
				Description: "Final encoded video file",
				Patterns:    []string{".mp4"},
				Type:        string(modules.InputTypeFile),
			},
		},
		OptionalInputs: []modules.ModuleInput{
			{
				Name:        "title",
				Description: "Video title",
				Type:        string(modules.InputTypeData),
			},
			{
				Name:        "hashtags",
				Description: "Space-separated hashtags",
				Type:        string(modules.InputTypeData),
			},
		},
		ProducedOutputs: []modules.ModuleOutput{
			{
				Name:        "thumbnail",
				Description: "Cover frame extracted from the video",
				Patterns:    []string{".jpg"},
				Type:        string(modules.OutputTypeFile),
			},
		},
	}
}
