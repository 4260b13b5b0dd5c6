package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/chirp/internal/app/domain/comment"
	"github.com/R3E-Network/chirp/internal/app/domain/post"
	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/app/storage"
)

func TestStorePostsNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"})
		if err != nil {
			t.Fatalf("create post: %v", err)
		}
		ids = append(ids, p.ID)
	}

	rows, err := store.ListPosts(ctx, pagination.Request{Limit: 10})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 posts, got %d", len(rows))
	}
	for i, p := range rows {
		if want := ids[len(ids)-1-i]; p.ID != want {
			t.Fatalf("position %d: got %s want %s", i, p.ID, want)
		}
	}
}

func TestStoreListPostsFetchesLookahead(t *testing.T) {
	store := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"}); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	rows, err := store.ListPosts(ctx, pagination.Request{Limit: 2})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected limit+1 rows, got %d", len(rows))
	}

	page := pagination.Trim(rows, 2, func(p post.Post) string { return p.ID })
	next, err := store.ListPosts(ctx, pagination.Request{Cursor: page.NextCursor, Limit: 2})
	if err != nil {
		t.Fatalf("list next page: %v", err)
	}
	if next[0].ID != page.NextCursor {
		t.Fatalf("cursor row should start the next page")
	}
}

func TestStoreUnknownCursorReturnsEmpty(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	rows, err := store.ListPosts(ctx, pagination.Request{Cursor: "missing", Limit: 5})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", rows)
	}
}

func TestStoreTiesBrokenByInsertionOrder(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	first, _ := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"})
	second, _ := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙃"})

	rows, err := store.ListPosts(ctx, pagination.Request{Limit: 5})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("unexpected order: %s, %s", rows[0].ID, rows[1].ID)
	}
}

func TestStoreListPostsByAuthor(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, _ = store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"})
	_, _ = store.CreatePost(ctx, post.Post{AuthorID: "user_2", Content: "🙃"})
	_, _ = store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "😀"})

	rows, err := store.ListPostsByAuthor(ctx, "user_1", pagination.Request{Limit: 10})
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(rows))
	}
	for _, p := range rows {
		if p.AuthorID != "user_1" {
			t.Fatalf("unexpected author %s", p.AuthorID)
		}
	}
}

func TestStoreDeletePostCascadesComments(t *testing.T) {
	store := New()
	ctx := context.Background()

	p, _ := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"})
	c, err := store.CreateComment(ctx, comment.Comment{PostID: p.ID, AuthorID: "user_2", Comment: "👍"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := store.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, err := store.GetPost(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for post, got %v", err)
	}
	if _, err := store.GetComment(ctx, c.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for comment, got %v", err)
	}
	if err := store.DeletePost(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreCommentRequiresPost(t *testing.T) {
	store := New()
	_, err := store.CreateComment(context.Background(), comment.Comment{PostID: "missing", AuthorID: "user_1", Comment: "👍"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListCommentsScopedToPost(t *testing.T) {
	store := New()
	ctx := context.Background()

	a, _ := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙂"})
	b, _ := store.CreatePost(ctx, post.Post{AuthorID: "user_1", Content: "🙃"})
	for i := 0; i < 3; i++ {
		_, _ = store.CreateComment(ctx, comment.Comment{PostID: a.ID, AuthorID: "user_2", Comment: "👍"})
	}
	_, _ = store.CreateComment(ctx, comment.Comment{PostID: b.ID, AuthorID: "user_2", Comment: "👎"})

	rows, err := store.ListComments(ctx, a.ID, pagination.Request{Limit: 10})
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(rows))
	}

	if err := store.DeleteComment(ctx, rows[0].ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := store.DeleteComment(ctx, rows[0].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
