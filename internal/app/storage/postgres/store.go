package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/chirp/internal/app/domain/comment"
	"github.com/R3E-Network/chirp/internal/app/domain/post"
	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/app/storage"
)

// foreign_key_violation
const fkViolation = "23503"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.PostStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- PostStore --------------------------------------------------------------

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.AuthorID, p.Content, p.CreatedAt)
	if err != nil {
		return post.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (post.Post, error) {
	var p post.Post
	err := s.db.GetContext(ctx, &p, `
		SELECT id, author_id, content, created_at
		FROM posts
		WHERE id = $1
	`, id)
	if err != nil {
		return post.Post{}, notFound(err, "post", id)
	}
	return p, nil
}

// ListPosts starts at the cursor row inclusive. An unknown cursor makes the
// subquery yield NULL, so the comparison filters every row out.
func (s *Store) ListPosts(ctx context.Context, req pagination.Request) ([]post.Post, error) {
	req = req.Normalize()
	rows := make([]post.Post, 0, req.Fetch())

	var err error
	if req.Cursor == "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, author_id, content, created_at
			FROM posts
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, req.Fetch())
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, author_id, content, created_at
			FROM posts
			WHERE (created_at, id) <= (SELECT created_at, id FROM posts WHERE id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, req.Cursor, req.Fetch())
	}
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return rows, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, req pagination.Request) ([]post.Post, error) {
	req = req.Normalize()
	rows := make([]post.Post, 0, req.Fetch())

	var err error
	if req.Cursor == "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, author_id, content, created_at
			FROM posts
			WHERE author_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, authorID, req.Fetch())
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, author_id, content, created_at
			FROM posts
			WHERE author_id = $1
			  AND (created_at, id) <= (SELECT created_at, id FROM posts WHERE id = $2 AND author_id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`, authorID, req.Cursor, req.Fetch())
	}
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return rows, nil
}

// DeletePost removes the post. Its comments go with it through the
// ON DELETE CASCADE foreign key.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- CommentStore -----------------------------------------------------------

func (s *Store) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PostID, c.AuthorID, c.Comment, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == fkViolation {
			return comment.Comment{}, fmt.Errorf("post %s: %w", c.PostID, storage.ErrNotFound)
		}
		return comment.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	var c comment.Comment
	err := s.db.GetContext(ctx, &c, `
		SELECT id, post_id, author_id, comment, created_at
		FROM comments
		WHERE id = $1
	`, id)
	if err != nil {
		return comment.Comment{}, notFound(err, "comment", id)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string, req pagination.Request) ([]comment.Comment, error) {
	req = req.Normalize()
	rows := make([]comment.Comment, 0, req.Fetch())

	var err error
	if req.Cursor == "" {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, post_id, author_id, comment, created_at
			FROM comments
			WHERE post_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, postID, req.Fetch())
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, post_id, author_id, comment, created_at
			FROM comments
			WHERE post_id = $1
			  AND (created_at, id) <= (SELECT created_at, id FROM comments WHERE id = $2 AND post_id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`, postID, req.Cursor, req.Fetch())
	}
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return rows, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// Postgres keeps microseconds; truncating keeps the returned value equal to
// what a later read sees.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", resource, id, storage.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", resource, err)
}
