package youtube

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reelsmith/reelsmith/internal/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// Required OAuth scopes for the YouTube API
var requiredScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
}

// Shorts live in the People & Blogs category
const defaultCategoryID = "22"

// Service implements the Servicer interface
type Service struct {
	credentialsPath string
	client          *youtubeapi.Service
}

// NewService creates a YouTube service backed by the given OAuth credentials file
func NewService(credentialsPath string) (*Service, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("youtube credentials file is not set")
	}
	return &Service{credentialsPath: credentialsPath}, nil
}

// Authorize obtains an OAuth token, reusing a stored one when it is still
// valid, and creates the API client. It must be called before Upload.
func (s *Service) Authorize(ctx context.Context) error {
	credentials, err := os.ReadFile(s.credentialsPath)
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credentials, requiredScopes...)
	if err != nil {
		return fmt.Errorf("failed to create OAuth config: %w", err)
	}

	tokenStorage, err := utils.NewTokenStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	token, err := tokenStorage.LoadToken("youtube")
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}

	// If no token exists or it's expired, get a new one
	if token == nil || !token.Valid() {
		callbackServer := utils.NewOAuthCallbackServer()
		if err := callbackServer.Start(8080); err != nil {
			return fmt.Errorf("failed to start callback server: %w", err)
		}
		defer func() {
			if err := callbackServer.Stop(); err != nil {
				utils.LogWarning("Failed to stop callback server: %v", err)
			}
		}()

		config.RedirectURL = "http://localhost:8080"

		authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		if err := callbackServer.OpenURL(authURL); err != nil {
			return fmt.Errorf("failed to open auth URL: %w", err)
		}

		code := callbackServer.WaitForCode()

		token, err = config.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to exchange authorization code: %w", err)
		}

		if err := tokenStorage.SaveToken("youtube", token); err != nil {
			utils.LogWarning("Failed to save token: %v", err)
		}
	} else {
		utils.LogInfo("Using existing authorization token")
	}

	client, err := youtubeapi.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	s.client = client
	return nil
}

// Upload publishes a single video and returns the resulting video ID
func (s *Service) Upload(ctx context.Context, videoPath, title, description string, tags []string, privacy string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("service is not authorized")
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			utils.LogWarning("Failed to close video file: %v", err)
		}
	}()

	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  defaultCategoryID,
			Tags:        processTags(tags),
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus: privacy,
			MadeForKids:   false,
		},
	}

	call := s.client.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(false) // Don't notify subscribers for shorts
	call.Context(ctx)
	response, err := call.Media(file).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	utils.LogInfo("Successfully uploaded video: %s", response.Id)
	return response.Id, nil
}

// cleanTag removes special characters and converts to lowercase
func cleanTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.ToLower(tag)
	replacements := map[string]string{
		"á": "a", "é": "e", "í": "i", "ó": "o", "ú": "u",
		"ñ": "n", "ü": "u",
	}
	for old, new := range replacements {
		tag = strings.ReplaceAll(tag, old, new)
	}
	return tag
}

// processTags cleans hashtags into YouTube-compatible tags
func processTags(tags []string) []string {
	seenTags := make(map[string]bool)
	var cleanedTags []string

	for _, tag := range tags {
		cleaned := cleanTag(tag)
		// Skip empty tags or tags that are too long (YouTube has a limit)
		if cleaned != "" && len(cleaned) <= 30 && !seenTags[cleaned] {
			seenTags[cleaned] = true
			cleanedTags = append(cleanedTags, cleaned)
		}
	}

	// YouTube has a limit on the number of tags
	if len(cleanedTags) > 30 {
		cleanedTags = cleanedTags[:30]
	}

	return cleanedTags
}
