package youtube

import (
	"context"
)

// Servicer defines the interface for YouTube upload operations
type Servicer interface {
	// Authorize obtains an OAuth token and creates the API client
	Authorize(ctx context.Context) error

	// Upload publishes a single video and returns the resulting video ID
	Upload(ctx context.Context, videoPath, title, description string, tags []string, privacy string) (string, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
