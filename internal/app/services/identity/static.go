package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
)

// Static is an in-memory directory used in development and tests.
type Static struct {
	mu    sync.RWMutex
	users map[string]author.Author
}

var _ Directory = (*Static)(nil)

// NewStatic seeds a directory with users.
func NewStatic(users ...author.Author) *Static {
	s := &Static{users: make(map[string]author.Author, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Add inserts or replaces a user.
func (s *Static) Add(u author.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Static) UsersByID(_ context.Context, ids []string) ([]author.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	out := make([]author.Author, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Static) UserByUsername(_ context.Context, username string) (author.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return author.Author{}, fmt.Errorf("username %s: %w", username, ErrUserNotFound)
}
