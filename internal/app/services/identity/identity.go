// Package identity looks up author profiles in the external identity provider.
package identity

import (
	"context"
	"errors"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
)

// ErrUserNotFound is returned when a username does not resolve to a user.
var ErrUserNotFound = errors.New("user not found")

// Directory resolves users. UsersByID omits unknown IDs rather than failing.
type Directory interface {
	UsersByID(ctx context.Context, ids []string) ([]author.Author, error)
	UserByUsername(ctx context.Context, username string) (author.Author, error)
}
