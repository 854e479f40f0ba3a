// Package history persists which content was consumed by earlier runs
package history

import (
	"encoding/json"
	"fmt"
	"os"
)

// History records the background videos and Reddit posts used across runs.
// Clip selection and content sourcing share one file, so a single document
// describes everything repeat prevention has to avoid.
type History struct {
	Videos []string `json:"videos"`
	Posts  []string `json:"posts,omitempty"`
}

// Load reads a history file. A missing file yields an empty history.
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{}, nil
		}
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse usage history: %w", err)
	}
	return &h, nil
}

// Save writes the history document
func (h *History) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage history: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write usage history: %w", err)
	}
	return nil
}

// HasVideo reports whether a background video was already used
func (h *History) HasVideo(name string) bool {
	return contains(h.Videos, name)
}

// AddVideo marks a background video as used
func (h *History) AddVideo(name string) {
	h.Videos = append(h.Videos, name)
}

// ResetVideos forgets all used background videos
func (h *History) ResetVideos() {
	h.Videos = nil
}

// HasPost reports whether a Reddit post was already used
func (h *History) HasPost(id string) bool {
	return contains(h.Posts, id)
}

// AddPost marks a Reddit post as used
func (h *History) AddPost(id string) {
	h.Posts = append(h.Posts, id)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
