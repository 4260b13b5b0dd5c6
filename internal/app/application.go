package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/R3E-Network/chirp/internal/app/realtime"
	"github.com/R3E-Network/chirp/internal/app/services/comments"
	"github.com/R3E-Network/chirp/internal/app/services/identity"
	"github.com/R3E-Network/chirp/internal/app/services/posts"
	"github.com/R3E-Network/chirp/internal/app/services/profile"
	"github.com/R3E-Network/chirp/internal/app/services/ratelimit"
	"github.com/R3E-Network/chirp/internal/app/storage"
	"github.com/R3E-Network/chirp/internal/app/storage/memory"
	"github.com/R3E-Network/chirp/internal/app/system"
	"github.com/R3E-Network/chirp/internal/logging"
)

// JanitorSchedule is how often the in-memory limiter drops expired windows.
const JanitorSchedule = "@every 1m"

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Posts    storage.PostStore
	Comments storage.CommentStore
}

// Deps are the external collaborators. Nil values fall back to in-process
// implementations suitable for development.
type Deps struct {
	Directory identity.Directory
	Limiter   ratelimit.Limiter
	// Origins allowed to open the realtime stream. Empty allows same-origin only.
	Origins []string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logging.Logger
	checks  map[string]storage.Pinger

	Posts    *posts.Service
	Comments *comments.Service
	Profile  *profile.Service
	Hub      *realtime.Hub
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, deps Deps, log *logging.Logger) (*Application, error) {
	if log == nil {
		log = logging.NewDefault("app")
	}

	var mem *memory.Store
	if stores.Posts == nil || stores.Comments == nil {
		mem = memory.New()
	}
	if stores.Posts == nil {
		stores.Posts = mem
	}
	if stores.Comments == nil {
		stores.Comments = mem
	}

	if deps.Directory == nil {
		log.Warn("no identity directory configured; using an empty static directory")
		deps.Directory = identity.NewStatic()
	}

	manager := system.NewManager(log)

	if deps.Limiter == nil {
		limiter := ratelimit.NewMemory(ratelimit.Config{})
		deps.Limiter = limiter
		manager.Register(ratelimit.NewJanitor(limiter, JanitorSchedule, log))
	}

	hub := realtime.NewHub(deps.Origins, log)
	manager.Register(hub)

	postService := posts.New(stores.Posts, deps.Directory, deps.Limiter, log)
	postService.WithPublisher(hub)
	commentService := comments.New(stores.Posts, stores.Comments, deps.Directory, deps.Limiter, log)
	commentService.WithPublisher(hub)
	profileService := profile.New(deps.Directory, log)

	checks := make(map[string]storage.Pinger)
	for name, dep := range map[string]interface{}{
		"posts":     stores.Posts,
		"comments":  stores.Comments,
		"ratelimit": deps.Limiter,
	} {
		if p, ok := dep.(storage.Pinger); ok {
			checks[name] = p
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		checks:   checks,
		Posts:    postService,
		Comments: commentService,
		Profile:  profileService,
		Hub:      hub,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) {
	a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Health pings every backing store that supports it. The result maps each
// check to "ok" or its error text.
func (a *Application) Health(ctx context.Context) (map[string]string, error) {
	status := make(map[string]string, len(a.checks))
	var errs []error
	for name, p := range a.checks {
		if err := p.Ping(ctx); err != nil {
			status[name] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		status[name] = "ok"
	}
	return status, errors.Join(errs...)
}
