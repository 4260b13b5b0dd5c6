// Package pagination implements cursor pagination with a lookahead row.
//
// A store asked for a page fetches Limit+1 rows, newest first, starting at the
// cursor row (inclusive). If the extra row comes back it is removed from the
// page and its ID becomes the cursor of the next page.
package pagination

import (
	"strconv"
	"strings"

	"github.com/R3E-Network/chirp/internal/errors"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request selects one page.
type Request struct {
	Cursor string
	Limit  int
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Normalize fills in the default limit and clamps it to [1, MaxLimit].
func (r Request) Normalize() Request {
	r.Cursor = strings.TrimSpace(r.Cursor)
	switch {
	case r.Limit <= 0:
		r.Limit = DefaultLimit
	case r.Limit > MaxLimit:
		r.Limit = MaxLimit
	}
	return r
}

// Fetch is the number of rows a store should read for this request.
func (r Request) Fetch() int {
	return r.Normalize().Limit + 1
}

// Parse builds a Request from raw query values. Limits outside [1, MaxLimit]
// are rejected rather than clamped since they come from the caller.
func Parse(cursor, limit string) (Request, error) {
	req := Request{Cursor: strings.TrimSpace(cursor)}
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return req.Normalize(), nil
	}
	n, err := strconv.Atoi(limit)
	if err != nil {
		return Request{}, errors.Validation("Invalid input", map[string][]string{
			"limit": {"limit must be a number"},
		})
	}
	if n < 1 || n > MaxLimit {
		return Request{}, errors.Validation("Invalid input", map[string][]string{
			"limit": {"limit must be between 1 and " + strconv.Itoa(MaxLimit)},
		})
	}
	req.Limit = n
	return req, nil
}

// Trim turns limit+1 fetched rows into a page. When the lookahead row is
// present it is popped and its ID returned as NextCursor.
func Trim[T any](rows []T, limit int, idOf func(T) string) Page[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(rows) > limit {
		next := rows[limit]
		return Page[T]{Items: rows[:limit], NextCursor: idOf(next)}
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Items: rows}
}

// Map converts the items of a page, keeping its cursor.
func Map[T, U any](page Page[T], fn func(T) U) Page[U] {
	out := Page[U]{Items: make([]U, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, item := range page.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
