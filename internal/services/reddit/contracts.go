package reddit

import (
	"context"
)

// Servicer defines the interface for Reddit content operations
type Servicer interface {
	// TopPosts returns this week's top posts of a subreddit
	TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error)
	// TopComments returns the top-level comments of a post
	TopComments(ctx context.Context, postID string) ([]Comment, error)
}

// Ensure Service implements Servicer
var _ Servicer = (*Service)(nil)
