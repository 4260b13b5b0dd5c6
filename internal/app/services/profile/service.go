// Package profile resolves public user profiles.
package profile

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/R3E-Network/chirp/internal/app/domain/author"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/app/validation"
	"github.com/R3E-Network/chirp/internal/errors"
	"github.com/R3E-Network/chirp/internal/logging"
)

type usernameInput struct {
	Username string `json:"username" validate:"required"`
}

// Service looks up profiles in the identity directory.
type Service struct {
	dir identity.Directory
	log *logging.Logger
}

// New constructs a profile service.
func New(dir identity.Directory, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("profile")
	}
	return &Service{dir: dir, log: log}
}

// GetByUsername returns the public profile for username. A leading "@", as
// used in profile URLs, is ignored.
func (s *Service) GetByUsername(ctx context.Context, username string) (author.Author, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if err := validation.Struct(usernameInput{Username: username}); err != nil {
		return author.Author{}, err
	}

	a, err := s.dir.UserByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, identity.ErrUserNotFound) {
			return author.Author{}, errors.NotFound("User", "").WithDetails("username", username)
		}
		s.log.WithContext(ctx).WithError(err).WithField("username", username).Error("profile lookup failed")
		return author.Author{}, errors.Internal("Failed to load profile", err)
	}
	return a, nil
}
