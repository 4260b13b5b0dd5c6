// Package posts implements the post feed procedures.
package posts

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/chirp/internal/app/domain/post"
	"github.com/R3E-Network/chirp/internal/app/metrics"
	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/app/realtime"
	"github.com/R3E-Network/chirp/internal/app/services/authors"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/app/services/ratelimit"
	"github.com/R3E-Network/chirp/internal/app/storage"
	"github.com/R3E-Network/chirp/internal/app/validation"
	"github.com/R3E-Network/chirp/internal/errors"
	"github.com/R3E-Network/chirp/internal/logging"
)

// Publisher receives feed change events.
type Publisher interface {
	Publish(ev realtime.Event)
}

// CreateInput is the body of a create request.
type CreateInput struct {
	Content string `json:"content" validate:"required,utf16min=1,utf16max=255,emoji"`
}

type idInput struct {
	ID string `json:"id" validate:"required"`
}

type authorInput struct {
	UserID string `json:"userId" validate:"required"`
}

// Service manages posts.
type Service struct {
	store   storage.PostStore
	dir     identity.Directory
	limiter ratelimit.Limiter
	events  Publisher
	log     *logging.Logger
}

// New constructs a post service. limiter may be nil to disable rate limiting.
func New(store storage.PostStore, dir identity.Directory, limiter ratelimit.Limiter, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("posts")
	}
	return &Service{
		store:   store,
		dir:     dir,
		limiter: limiter,
		log:     log,
	}
}

// WithPublisher sets the sink for post.created and post.deleted events.
func (s *Service) WithPublisher(p Publisher) {
	s.events = p
}

// List returns the global feed, newest first.
func (s *Service) List(ctx context.Context, req pagination.Request) (pagination.Page[post.WithAuthor], error) {
	req = req.Normalize()
	rows, err := s.store.ListPosts(ctx, req)
	if err != nil {
		return pagination.Page[post.WithAuthor]{}, errors.Internal("Failed to load posts", err)
	}
	return s.attach(ctx, pagination.Trim(rows, req.Limit, postID))
}

// ListByAuthor returns one user's posts, newest first.
func (s *Service) ListByAuthor(ctx context.Context, authorID string, req pagination.Request) (pagination.Page[post.WithAuthor], error) {
	authorID = strings.TrimSpace(authorID)
	if err := validation.Struct(authorInput{UserID: authorID}); err != nil {
		return pagination.Page[post.WithAuthor]{}, err
	}
	req = req.Normalize()
	rows, err := s.store.ListPostsByAuthor(ctx, authorID, req)
	if err != nil {
		return pagination.Page[post.WithAuthor]{}, errors.Internal("Failed to load posts", err)
	}
	return s.attach(ctx, pagination.Trim(rows, req.Limit, postID))
}

// Get returns a single post with its author.
func (s *Service) Get(ctx context.Context, id string) (post.WithAuthor, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return post.WithAuthor{}, err
	}
	page, err := s.attach(ctx, pagination.Page[post.Post]{Items: []post.Post{p}})
	if err != nil {
		return post.WithAuthor{}, err
	}
	return page.Items[0], nil
}

// Create publishes a new post as userID.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (post.Post, error) {
	if userID == "" {
		return post.Post{}, errors.Unauthorized("")
	}
	if err := validation.Struct(in); err != nil {
		return post.Post{}, err
	}
	if err := ratelimit.Enforce(ctx, s.limiter, userID, "post.create"); err != nil {
		return post.Post{}, err
	}

	created, err := s.store.CreatePost(ctx, post.Post{AuthorID: userID, Content: in.Content})
	if err != nil {
		return post.Post{}, errors.Internal("Failed to create post", err)
	}

	metrics.RecordWrite("post", "created")
	s.publish(realtime.Event{Type: realtime.EventPostCreated, PostID: created.ID, AuthorID: userID})
	s.log.WithContext(ctx).
		WithField("post_id", created.ID).
		WithField("author_id", userID).
		Info("post created")
	return created, nil
}

// Delete removes a post owned by userID and returns it.
func (s *Service) Delete(ctx context.Context, userID, id string) (post.Post, error) {
	if userID == "" {
		return post.Post{}, errors.Unauthorized("")
	}
	id = strings.TrimSpace(id)
	if err := validation.Struct(idInput{ID: id}); err != nil {
		return post.Post{}, err
	}
	if err := ratelimit.Enforce(ctx, s.limiter, userID, "post.delete"); err != nil {
		return post.Post{}, err
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		return post.Post{}, err
	}
	if existing.AuthorID != userID {
		s.log.LogSecurityEvent(ctx, "post_delete_forbidden", map[string]interface{}{
			"post_id":   id,
			"author_id": existing.AuthorID,
		})
		return post.Post{}, errors.Forbidden("You can only delete your own posts")
	}

	if err := s.store.DeletePost(ctx, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return post.Post{}, errors.NotFound("Post", id)
		}
		return post.Post{}, errors.Internal("Failed to delete post", err)
	}

	metrics.RecordWrite("post", "deleted")
	s.publish(realtime.Event{Type: realtime.EventPostDeleted, PostID: id, AuthorID: userID})
	s.log.WithContext(ctx).WithField("post_id", id).Info("post deleted")
	return existing, nil
}

func (s *Service) find(ctx context.Context, id string) (post.Post, error) {
	id = strings.TrimSpace(id)
	if err := validation.Struct(idInput{ID: id}); err != nil {
		return post.Post{}, err
	}
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return post.Post{}, errors.NotFound("Post", id)
		}
		return post.Post{}, errors.Internal("Failed to load post", err)
	}
	return p, nil
}

func (s *Service) attach(ctx context.Context, page pagination.Page[post.Post]) (pagination.Page[post.WithAuthor], error) {
	ids := make([]string, 0, len(page.Items))
	for _, p := range page.Items {
		ids = append(ids, p.AuthorID)
	}
	byID, err := authors.Resolve(ctx, s.dir, ids)
	if err != nil {
		return pagination.Page[post.WithAuthor]{}, err
	}
	return pagination.Map(page, func(p post.Post) post.WithAuthor {
		return post.WithAuthor{Post: p, Author: byID[p.AuthorID]}
	}), nil
}

func (s *Service) publish(ev realtime.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func postID(p post.Post) string { return p.ID }
