package pagination

import (
	"testing"

	"github.com/R3E-Network/chirp/internal/errors"
)

type row struct{ id string }

func rowID(r row) string { return r.id }

func rows(ids ...string) []row {
	out := make([]row, 0, len(ids))
	for _, id := range ids {
		out = append(out, row{id: id})
	}
	return out
}

func TestTrimPopsLookaheadRow(t *testing.T) {
	page := Trim(rows("a", "b", "c"), 2, rowID)
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.NextCursor != "c" {
		t.Fatalf("next cursor = %q, want c", page.NextCursor)
	}
}

func TestTrimLastPageHasNoCursor(t *testing.T) {
	page := Trim(rows("a", "b"), 2, rowID)
	if page.NextCursor != "" {
		t.Fatalf("next cursor = %q, want empty", page.NextCursor)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
}

func TestTrimEmptyIsNotNil(t *testing.T) {
	page := Trim[row](nil, 5, rowID)
	if page.Items == nil {
		t.Fatal("items should be an empty slice so it encodes as []")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{7, 7},
		{MaxLimit + 50, MaxLimit},
	}
	for _, tt := range tests {
		if got := (Request{Limit: tt.in}).Normalize().Limit; got != tt.want {
			t.Errorf("Normalize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := (Request{Limit: 10}).Fetch(); got != 11 {
		t.Errorf("Fetch() = %d, want 11", got)
	}
}

func TestParse(t *testing.T) {
	req, err := Parse(" abc ", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Cursor != "abc" || req.Limit != DefaultLimit {
		t.Fatalf("unexpected request: %+v", req)
	}

	req, err = Parse("", "15")
	if err != nil || req.Limit != 15 {
		t.Fatalf("Parse limit: %+v %v", req, err)
	}

	for _, bad := range []string{"0", "101", "ten"} {
		if _, err := Parse("", bad); !errors.Is(err, errors.CodeBadRequest) {
			t.Errorf("Parse(%q) should be a validation error, got %v", bad, err)
		}
	}
}

func TestMapKeepsCursor(t *testing.T) {
	page := Map(Page[row]{Items: rows("a"), NextCursor: "b"}, func(r row) string { return r.id + "!" })
	if page.NextCursor != "b" || page.Items[0] != "a!" {
		t.Fatalf("unexpected page: %+v", page)
	}
}
