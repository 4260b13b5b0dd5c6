package app

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/app/services/posts"
	"github.com/R3E-Network/chirp/internal/app/storage/memory"
	"github.com/R3E-Network/chirp/internal/logging"
	"github.com/R3E-Network/chirp/pkg/testutil"
)

type failingStore struct {
	*memory.Store
}

func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestNewDefaultsToInMemory(t *testing.T) {
	application, err := New(Stores{}, Deps{Directory: identity.NewStatic(testutil.Authors()...)}, logging.Discard())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer application.Stop(ctx)

	created, err := application.Posts.Create(ctx, "user_alice", posts.CreateInput{Content: "🙂"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	page, err := application.Posts.List(ctx, pagination.Request{Limit: 10})
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Post.ID != created.ID {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0].Author.Username != "alice" {
		t.Fatalf("author not joined: %+v", page.Items[0].Author)
	}

	status, err := application.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if status["posts"] != "ok" || status["comments"] != "ok" {
		t.Fatalf("unexpected health: %v", status)
	}
}

func TestHealthReportsFailingStore(t *testing.T) {
	store := failingStore{Store: memory.New()}
	application, err := New(Stores{Posts: store, Comments: store}, Deps{Limiter: testutil.NewMockLimiter()}, logging.Discard())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	status, err := application.Health(context.Background())
	if err == nil {
		t.Fatal("expected health error")
	}
	if status["posts"] != "connection refused" {
		t.Fatalf("unexpected status: %v", status)
	}
	if _, ok := status["ratelimit"]; ok {
		t.Fatal("mock limiter should not be health checked")
	}
}
