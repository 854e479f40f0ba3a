// Package gemini provides a client for the Gemini text generation API
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/reelsmith/reelsmith/internal/utils"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Service provides a centralized way to interact with the Gemini API
type Service struct {
	apiKey  string
	baseURL string
}

// Content is a single message in a generation request or response
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is a text fragment inside a Content
type Part struct {
	Text string `json:"text"`
}

// GenerateRequest represents a generateContent API request
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerationConfig carries sampling parameters for a request
type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GenerateResponse represents a generateContent API response
type GenerateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// APIError represents an error payload from the Gemini API
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// CompletionOptions contains the parameters for a generation request
type CompletionOptions struct {
	Model            string
	Temperature      float64
	MaxOutputTokens  int
	RequestTimeoutMS int
}

// NewService creates a new Gemini service instance
func NewService(apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is not set")
	}

	return &Service{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}, nil
}

// newServiceWithBaseURL is used by tests to point the client at a fake server
func newServiceWithBaseURL(apiKey, baseURL string) *Service {
	return &Service{apiKey: apiKey, baseURL: baseURL}
}

// Generate sends a generateContent request to the Gemini API
func (s *Service) Generate(ctx context.Context, prompt string, opts CompletionOptions) (*GenerateResponse, error) {
	if opts.RequestTimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RequestTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	reqBody := GenerateRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
	if opts.Temperature != 0 || opts.MaxOutputTokens != 0 {
		reqBody.GenerationConfig = &GenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
	}

	reqData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, opts.Model, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(reqData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			utils.LogWarning("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(genResp.Candidates) == 0 {
		return nil, errors.New("no candidates in Gemini response")
	}

	return &genResp, nil
}

// GetContent is a helper that returns just the text of the first candidate
func (s *Service) GetContent(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	resp, err := s.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", errors.New("empty candidate in Gemini response")
	}

	return parts[0].Text, nil
}
