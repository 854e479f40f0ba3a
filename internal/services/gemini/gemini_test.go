package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	_, err := NewService("")
	assert.Error(t, err)

	svc, err := NewService("test-key")
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGetContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "say something", req.Contents[0].Parts[0].Text)

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"parts": []map[string]string{{"text": "something"}},
					},
					"finishReason": "STOP",
				},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	svc := newServiceWithBaseURL("test-key", server.URL)
	content, err := svc.GetContent(context.Background(), "say something", CompletionOptions{
		Model: "gemini-2.0-flash",
	})
	require.NoError(t, err)
	assert.Equal(t, "something", content)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	svc := newServiceWithBaseURL("bad-key", server.URL)
	_, err := svc.Generate(context.Background(), "prompt", CompletionOptions{Model: "gemini-2.0-flash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	svc := newServiceWithBaseURL("test-key", server.URL)
	_, err := svc.Generate(context.Background(), "prompt", CompletionOptions{Model: "gemini-2.0-flash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
