package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/chirp/internal/app"
	"github.com/R3E-Network/chirp/internal/app/metrics"
	"github.com/R3E-Network/chirp/internal/app/pagination"
	"github.com/R3E-Network/chirp/internal/errors"
	"github.com/R3E-Network/chirp/internal/httputil"
	"github.com/R3E-Network/chirp/internal/logging"
	"github.com/R3E-Network/chirp/internal/middleware"
)

const healthTimeout = 3 * time.Second

// Options selects the optional middleware. Nil entries are skipped; without
// Auth every request is anonymous and mutations answer 401.
type Options struct {
	Auth  *middleware.AuthMiddleware
	CORS  *middleware.CORSMiddleware
	Flood *middleware.RateLimiter
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logging.Logger
}

// NewHandler returns the router exposing the chirp API, the realtime stream
// and the ops endpoints.
func NewHandler(application *app.Application, log *logging.Logger, opts Options) http.Handler {
	if log == nil {
		log = logging.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log), middleware.MetricsMiddleware())

	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if opts.Auth != nil {
		api.Use(opts.Auth.Handler)
	}
	if opts.Flood != nil {
		api.Use(opts.Flood.Handler)
	}

	api.HandleFunc("/posts", h.listPosts).Methods(http.MethodGet)
	api.Handle("/posts", middleware.RequireUser(http.HandlerFunc(h.createPost))).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", h.getPost).Methods(http.MethodGet)
	api.Handle("/posts/{id}", middleware.RequireUser(http.HandlerFunc(h.deletePost))).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/comments", h.listComments).Methods(http.MethodGet)
	api.Handle("/posts/{id}/comments", middleware.RequireUser(http.HandlerFunc(h.createComment))).Methods(http.MethodPost)
	api.Handle("/comments/{id}", middleware.RequireUser(http.HandlerFunc(h.deleteComment))).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userId}/posts", h.listUserPosts).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}", h.getProfile).Methods(http.MethodGet)
	api.Handle("/stream", application.Hub).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusNotFound, string(errors.CodeNotFound), "Route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, string(errors.CodeBadRequest), "Method not allowed", nil)
	})

	var out http.Handler = router
	if opts.CORS != nil {
		// Preflights never match a route, so CORS wraps the router itself.
		out = opts.CORS.Handler(out)
	}
	return out
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks, err := h.app.Health(ctx)
	if err != nil {
		h.log.WithContext(r.Context()).WithError(err).Warn("health check failed")
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": checks})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": checks})
}

// fail writes err and logs the cause of server-side failures, which never
// reaches the client.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("", err)
	}
	if serviceErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	httputil.WriteServiceError(w, r, serviceErr)
}

func pageRequest(r *http.Request) (pagination.Request, error) {
	q := r.URL.Query()
	return pagination.Parse(q.Get("cursor"), q.Get("limit"))
}
