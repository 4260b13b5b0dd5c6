package migrations

import (
	"io"
	"os"
	"strings"
	"testing"
)

func TestSourceListsVersionsInOrder(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}
	next, err := src.Next(first)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected second version 2, got %d", next)
	}
}

func TestCommentsCascadeOnPostDelete(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	defer src.Close()

	r, _, err := src.ReadUp(2)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "ON DELETE CASCADE") {
		t.Fatalf("comments migration must cascade deletes:\n%s", body)
	}
}

func TestUpIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping migration integration test")
	}
	if err := Up(dsn); err != nil {
		t.Fatalf("up: %v", err)
	}
	version, dirty, ok, err := Version(dsn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !ok || dirty || version != 2 {
		t.Fatalf("unexpected version %d dirty=%v ok=%v", version, dirty, ok)
	}
}
