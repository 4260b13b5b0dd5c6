package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/chirp/internal/app/domain/comment"
	"github.com/R3E-Network/chirp/internal/app/domain/post"
	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	now      func() time.Time
	posts    map[string]postRecord
	comments map[string]commentRecord
}

// seq breaks created_at ties so insertion order is stable.
type postRecord struct {
	post.Post
	seq int64
}

type commentRecord struct {
	comment.Comment
	seq int64
}

var _ storage.PostStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		posts:    make(map[string]postRecord),
		comments: make(map[string]commentRecord),
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.posts[p.ID]; exists {
		return post.Post{}, fmt.Errorf("post %s already exists", p.ID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	s.seq++
	s.posts[p.ID] = postRecord{Post: p, seq: s.seq}
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[id]
	if !ok {
		return post.Post{}, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return rec.Post, nil
}

func (s *Store) ListPosts(_ context.Context, req pagination.Request) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pagePostsLocked(req, func(post.Post) bool { return true }), nil
}

func (s *Store) ListPostsByAuthor(_ context.Context, authorID string, req pagination.Request) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pagePostsLocked(req, func(p post.Post) bool { return p.AuthorID == authorID }), nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *Store) pagePostsLocked(req pagination.Request, keep func(post.Post) bool) []post.Post {
	records := make([]postRecord, 0, len(s.posts))
	for _, rec := range s.posts {
		if keep(rec.Post) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return newerFirst(records[i].CreatedAt, records[i].seq, records[j].CreatedAt, records[j].seq)
	})

	start := 0
	if req.Cursor != "" {
		start = -1
		for i, rec := range records {
			if rec.ID == req.Cursor {
				start = i
				break
			}
		}
		if start < 0 {
			return []post.Post{}
		}
	}

	end := start + req.Fetch()
	if end > len(records) {
		end = len(records)
	}
	out := make([]post.Post, 0, end-start)
	for _, rec := range records[start:end] {
		out = append(out, rec.Post)
	}
	return out
}

// CommentStore implementation -------------------------------------------------

func (s *Store) CreateComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return comment.Comment{}, fmt.Errorf("post %s: %w", c.PostID, storage.ErrNotFound)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if _, exists := s.comments[c.ID]; exists {
		return comment.Comment{}, fmt.Errorf("comment %s already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	s.seq++
	s.comments[c.ID] = commentRecord{Comment: c, seq: s.seq}
	return c, nil
}

func (s *Store) GetComment(_ context.Context, id string) (comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.comments[id]
	if !ok {
		return comment.Comment{}, fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return rec.Comment, nil
}

func (s *Store) ListComments(_ context.Context, postID string, req pagination.Request) ([]comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]commentRecord, 0)
	for _, rec := range s.comments {
		if rec.PostID == postID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return newerFirst(records[i].CreatedAt, records[i].seq, records[j].CreatedAt, records[j].seq)
	})

	start := 0
	if req.Cursor != "" {
		start = -1
		for i, rec := range records {
			if rec.ID == req.Cursor {
				start = i
				break
			}
		}
		if start < 0 {
			return []comment.Comment{}, nil
		}
	}

	end := start + req.Fetch()
	if end > len(records) {
		end = len(records)
	}
	out := make([]comment.Comment, 0, end-start)
	for _, rec := range records[start:end] {
		out = append(out, rec.Comment)
	}
	return out, nil
}

func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

func newerFirst(a time.Time, aSeq int64, b time.Time, bSeq int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}
