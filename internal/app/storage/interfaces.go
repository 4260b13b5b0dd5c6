package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/chirp/internal/app/domain/comment"
	"github.com/R3E-Network/chirp/internal/app/domain/post"
	"github.com/R3E-Network/chirp/internal/app/pagination"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// PostStore persists posts.
//
// List methods return at most req.Fetch() rows ordered by created_at then id,
// newest first, starting at the cursor row when one is given. Trimming the
// lookahead row is the caller's job.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	ListPosts(ctx context.Context, req pagination.Request) ([]post.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string, req pagination.Request) ([]post.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// CommentStore persists comments. Ordering rules match PostStore.
type CommentStore interface {
	CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	GetComment(ctx context.Context, id string) (comment.Comment, error)
	ListComments(ctx context.Context, postID string, req pagination.Request) ([]comment.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}
