// Package instagram provides a minimal client for reel uploads
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/reelsmith/reelsmith/internal/utils"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://i.instagram.com/api/v1"

// Service implements the Servicer interface against the private media API
type Service struct {
	username string
	password string
	baseURL  string
	client   *http.Client

	sessionID string
}

// loginResponse is the subset of the login reply we care about
type loginResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// uploadResponse is the subset of the clip upload reply we care about
type uploadResponse struct {
	Status string `json:"status"`
	Media  struct {
		Code string `json:"code"`
	} `json:"media"`
	Message string `json:"message"`
}

// NewService creates a new Instagram service instance
func NewService(username, password string) (*Service, error) {
	if username == "" || password == "" {
		return nil, errors.New("instagram username and password are not set")
	}

	return &Service{
		username: username,
		password: password,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// newServiceWithBaseURL is used by tests to point the client at a fake server
func newServiceWithBaseURL(username, password, baseURL string) *Service {
	return &Service{
		username: username,
		password: password,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Login authenticates and stores the session for subsequent uploads
func (s *Service) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username":  s.username,
		"password":  s.password,
		"device_id": uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/accounts/login/", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	var login loginResponse
	if err := json.Unmarshal(respBody, &login); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || login.Status != "ok" {
		if login.Message != "" {
			return fmt.Errorf("login rejected: %s", login.Message)
		}
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	s.sessionID = login.SessionID
	utils.LogVerbose("Logged in to Instagram as %s", s.username)
	return nil
}

// UploadReel uploads a video as a reel and returns the media code
func (s *Service) UploadReel(ctx context.Context, videoPath, thumbnailPath, caption string) (string, error) {
	if s.sessionID == "" {
		return "", errors.New("not logged in")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := attachFile(writer, "video", videoPath); err != nil {
		return "", err
	}
	if thumbnailPath != "" {
		if err := attachFile(writer, "thumbnail", thumbnailPath); err != nil {
			return "", err
		}
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return "", fmt.Errorf("failed to write caption field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/media/upload_clip/", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Session "+s.sessionID)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	var upload uploadResponse
	if err := json.Unmarshal(respBody, &upload); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || upload.Status != "ok" {
		if upload.Message != "" {
			return "", fmt.Errorf("upload rejected: %s", upload.Message)
		}
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	if upload.Media.Code == "" {
		return "", errors.New("upload returned no media code")
	}

	return upload.Media.Code, nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s file: %w", field, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			utils.LogWarning("Failed to close file: %v", err)
		}
	}()

	part, err := writer.CreateFormFile(field, path)
	if err != nil {
		return fmt.Errorf("failed to create %s form field: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy %s data: %w", field, err)
	}
	return nil
}
