package authors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/errors"
)

type countingDirectory struct {
	identity.Directory
	calls int
	err   error
}

func (d *countingDirectory) UsersByID(ctx context.Context, ids []string) ([]author.Author, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.Directory.UsersByID(ctx, ids)
}

func TestResolveDeduplicates(t *testing.T) {
	dir := &countingDirectory{Directory: identity.NewStatic(
		author.Author{ID: "user_1", Username: "alice"},
		author.Author{ID: "user_2", Username: "bob"},
	)}

	got, err := Resolve(context.Background(), dir, []string{"user_1", "user_2", "user_1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 2 || got["user_2"].Username != "bob" {
		t.Fatalf("unexpected authors: %+v", got)
	}
	if dir.calls != 1 {
		t.Fatalf("expected one directory call, got %d", dir.calls)
	}
}

func TestResolveEmptySkipsDirectory(t *testing.T) {
	dir := &countingDirectory{Directory: identity.NewStatic()}
	got, err := Resolve(context.Background(), dir, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v err=%v", got, err)
	}
	if dir.calls != 0 {
		t.Fatalf("expected no directory call, got %d", dir.calls)
	}
}

func TestResolveMissingAuthorIsInternal(t *testing.T) {
	dir := identity.NewStatic(author.Author{ID: "user_1", Username: "alice"})
	_, err := Resolve(context.Background(), dir, []string{"user_1", "ghost"})
	if !errors.Is(err, errors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if se := errors.GetServiceError(err); se.Message != "Author not found" {
		t.Fatalf("message = %q", se.Message)
	}
}

func TestResolveAuthorWithoutUsernameIsInternal(t *testing.T) {
	dir := identity.NewStatic(author.Author{ID: "user_1"})
	if _, err := Resolve(context.Background(), dir, []string{"user_1"}); !errors.Is(err, errors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestResolveDirectoryFailure(t *testing.T) {
	boom := stderrors.New("idp down")
	dir := &countingDirectory{Directory: identity.NewStatic(), err: boom}
	_, err := Resolve(context.Background(), dir, []string{"user_1"})
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}
