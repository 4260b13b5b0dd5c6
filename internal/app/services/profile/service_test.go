package profile

import (
	"context"
	"testing"

	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/errors"
	"github.com/R3E-Network/chirp/internal/logging"
	"github.com/R3E-Network/chirp/pkg/testutil"
)

func TestService_GetByUsername(t *testing.T) {
	svc := New(identity.NewStatic(testutil.Authors()...), logging.Discard())

	for _, name := range []string{"alice", "@alice", "  @alice "} {
		a, err := svc.GetByUsername(context.Background(), name)
		if err != nil {
			t.Fatalf("GetByUsername(%q): %v", name, err)
		}
		if a.ID != "user_alice" {
			t.Fatalf("GetByUsername(%q) = %+v", name, a)
		}
	}
}

func TestService_GetByUsernameUnknown(t *testing.T) {
	svc := New(identity.NewStatic(testutil.Authors()...), logging.Discard())
	if _, err := svc.GetByUsername(context.Background(), "@carol"); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_GetByUsernameEmpty(t *testing.T) {
	svc := New(identity.NewStatic(), logging.Discard())
	if _, err := svc.GetByUsername(context.Background(), "@"); !errors.Is(err, errors.CodeBadRequest) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
