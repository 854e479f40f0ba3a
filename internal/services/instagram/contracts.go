package instagram

import (
	"context"
)

// Servicer defines the interface for reel upload operations
type Servicer interface {
	// Login authenticates and stores the session for subsequent uploads
	Login(ctx context.Context) error

	// UploadReel uploads a video as a reel and returns the media code
	UploadReel(ctx context.Context, videoPath, thumbnailPath, caption string) (string, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
