// Package authors attaches author profiles to posts and comments.
package authors

import (
	"context"
	"fmt"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/errors"
)

// Resolve fetches every distinct author in ids with a single directory call.
// A missing author, or one without a username, is an internal error: content
// must never be shown without its author.
func Resolve(ctx context.Context, dir identity.Directory, ids []string) (map[string]author.Author, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[string]author.Author{}, nil
	}

	users, err := dir.UsersByID(ctx, unique)
	if err != nil {
		return nil, errors.Internal("Failed to load authors", err)
	}

	byID := make(map[string]author.Author, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range unique {
		u, ok := byID[id]
		if !ok || u.Username == "" {
			return nil, errors.Internal("Author not found", fmt.Errorf("author %s missing from directory", id))
		}
	}
	return byID, nil
}
