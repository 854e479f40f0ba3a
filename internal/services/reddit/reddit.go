// Package reddit fetches candidate posts and comments from the public Reddit API
package reddit

import (
	"context"
	"fmt"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"
)

// Reddit rejects requests without a descriptive user agent
const userAgent = "reelsmith:content-sourcing:v1 (read-only)"

// Post is a candidate story or question fetched from a subreddit
type Post struct {
	ID          string
	Subreddit   string
	Author      string
	Title       string
	Body        string
	Score       int
	NumComments int
	UpvoteRatio float64
	NSFW        bool
	Stickied    bool
	CreatedAt   time.Time
}

// Comment is a top-level reply to a post
type Comment struct {
	Author string
	Body   string
	Score  int
}

// Service reads public subreddit listings without credentials
type Service struct {
	client *reddit.Client
}

// NewService creates a read-only Reddit client
func NewService() (*Service, error) {
	client, err := reddit.NewReadonlyClient(reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}
	return &Service{client: client}, nil
}

// TopPosts returns this week's top posts of a subreddit
func (s *Service) TopPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	posts, _, err := s.client.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
		Time:        "week",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top posts of r/%s: %w", subreddit, err)
	}
	return convertPosts(posts), nil
}

// TopComments returns the top-level comments of a post
func (s *Service) TopComments(ctx context.Context, postID string) ([]Comment, error) {
	pc, _, err := s.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments of post %s: %w", postID, err)
	}
	return convertComments(pc.Comments), nil
}

func convertPosts(posts []*reddit.Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		post := Post{
			ID:          p.ID,
			Subreddit:   p.SubredditName,
			Author:      p.Author,
			Title:       p.Title,
			Body:        p.Body,
			Score:       p.Score,
			NumComments: p.NumberOfComments,
			UpvoteRatio: float64(p.UpvoteRatio),
			NSFW:        p.NSFW,
			Stickied:    p.Stickied,
		}
		if p.Created != nil {
			post.CreatedAt = p.Created.Time
		}
		out = append(out, post)
	}
	return out
}

func convertComments(comments []*reddit.Comment) []Comment {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.Stickied {
			continue
		}
		out = append(out, Comment{
			Author: c.Author,
			Body:   c.Body,
			Score:  c.Score,
		})
	}
	return out
}
