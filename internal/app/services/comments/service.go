// Package comments implements the comment procedures.
package comments

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/chirp/internal/app/domain/comment"
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

// Publisher receives comment change events.
type Publisher interface {
	Publish(ev realtime.Event)
}

// CreateInput is the body of a create request. PostID comes from the path.
type CreateInput struct {
	PostID  string `json:"postId" validate:"required"`
	Comment string `json:"comment" validate:"utf16min=1,utf16max=250"`
}

type postInput struct {
	PostID string `json:"postId" validate:"required"`
}

type idInput struct {
	ID string `json:"id" validate:"required"`
}

// Service manages comments.
type Service struct {
	posts   storage.PostStore
	store   storage.CommentStore
	dir     identity.Directory
	limiter ratelimit.Limiter
	events  Publisher
	log     *logging.Logger
}

// New constructs a comment service.
func New(posts storage.PostStore, store storage.CommentStore, dir identity.Directory, limiter ratelimit.Limiter, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("comments")
	}
	return &Service{
		posts:   posts,
		store:   store,
		dir:     dir,
		limiter: limiter,
		log:     log,
	}
}

// WithPublisher sets the sink for comment events.
func (s *Service) WithPublisher(p Publisher) {
	s.events = p
}

// List returns the comments on a post, newest first.
func (s *Service) List(ctx context.Context, postID string, req pagination.Request) (pagination.Page[comment.WithAuthor], error) {
	postID = strings.TrimSpace(postID)
	if err := validation.Struct(postInput{PostID: postID}); err != nil {
		return pagination.Page[comment.WithAuthor]{}, err
	}
	req = req.Normalize()
	rows, err := s.store.ListComments(ctx, postID, req)
	if err != nil {
		return pagination.Page[comment.WithAuthor]{}, errors.Internal("Failed to load comments", err)
	}
	page := pagination.Trim(rows, req.Limit, func(c comment.Comment) string { return c.ID })

	ids := make([]string, 0, len(page.Items))
	for _, c := range page.Items {
		ids = append(ids, c.AuthorID)
	}
	byID, err := authors.Resolve(ctx, s.dir, ids)
	if err != nil {
		return pagination.Page[comment.WithAuthor]{}, err
	}
	return pagination.Map(page, func(c comment.Comment) comment.WithAuthor {
		return comment.WithAuthor{Comment: c, Author: byID[c.AuthorID]}
	}), nil
}

// Create adds a comment by userID to an existing post.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (comment.Comment, error) {
	if userID == "" {
		return comment.Comment{}, errors.Unauthorized("")
	}
	in.PostID = strings.TrimSpace(in.PostID)
	if err := validation.Struct(in); err != nil {
		return comment.Comment{}, err
	}
	if err := ratelimit.Enforce(ctx, s.limiter, userID, "comment.create"); err != nil {
		return comment.Comment{}, err
	}

	if _, err := s.posts.GetPost(ctx, in.PostID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return comment.Comment{}, errors.NotFound("Post", in.PostID)
		}
		return comment.Comment{}, errors.Internal("Failed to load post", err)
	}

	created, err := s.store.CreateComment(ctx, comment.Comment{
		PostID:   in.PostID,
		AuthorID: userID,
		Comment:  in.Comment,
	})
	if err != nil {
		// The post can disappear between the lookup and the insert.
		if stderrors.Is(err, storage.ErrNotFound) {
			return comment.Comment{}, errors.NotFound("Post", in.PostID)
		}
		return comment.Comment{}, errors.Internal("Failed to create comment", err)
	}

	metrics.RecordWrite("comment", "created")
	s.publish(realtime.Event{
		Type:      realtime.EventCommentCreated,
		PostID:    created.PostID,
		CommentID: created.ID,
		AuthorID:  userID,
	})
	s.log.WithContext(ctx).
		WithField("comment_id", created.ID).
		WithField("post_id", created.PostID).
		Info("comment created")
	return created, nil
}

// Delete removes a comment owned by userID and returns it.
func (s *Service) Delete(ctx context.Context, userID, id string) (comment.Comment, error) {
	if userID == "" {
		return comment.Comment{}, errors.Unauthorized("")
	}
	id = strings.TrimSpace(id)
	if err := validation.Struct(idInput{ID: id}); err != nil {
		return comment.Comment{}, err
	}
	if err := ratelimit.Enforce(ctx, s.limiter, userID, "comment.delete"); err != nil {
		return comment.Comment{}, err
	}

	existing, err := s.store.GetComment(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return comment.Comment{}, errors.NotFound("Comment", id)
		}
		return comment.Comment{}, errors.Internal("Failed to load comment", err)
	}
	if existing.AuthorID != userID {
		s.log.LogSecurityEvent(ctx, "comment_delete_forbidden", map[string]interface{}{
			"comment_id": id,
			"author_id":  existing.AuthorID,
		})
		return comment.Comment{}, errors.Forbidden("You can only delete your own comments")
	}

	if err := s.store.DeleteComment(ctx, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return comment.Comment{}, errors.NotFound("Comment", id)
		}
		return comment.Comment{}, errors.Internal("Failed to delete comment", err)
	}

	metrics.RecordWrite("comment", "deleted")
	s.publish(realtime.Event{
		Type:      realtime.EventCommentDeleted,
		PostID:    existing.PostID,
		CommentID: id,
		AuthorID:  userID,
	})
	s.log.WithContext(ctx).WithField("comment_id", id).Info("comment deleted")
	return existing, nil
}

func (s *Service) publish(ev realtime.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}
