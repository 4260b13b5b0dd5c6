// Package app composes the chirp services.
//
// The layout is:
//
//	internal/app/
//	├── application.go   # Application struct, wiring and lifecycle
//	├── domain/          # Post, Comment and Author models
//	├── pagination/      # Cursor pagination with a lookahead row
//	├── storage/         # Store interfaces, memory/ and postgres/
//	├── services/        # posts, comments, profile, identity, authors, ratelimit
//	├── validation/      # Input rules, including the emoji-only check
//	├── realtime/        # WebSocket hub for feed events
//	├── httpapi/         # gorilla/mux router and handlers
//	├── metrics/         # Prometheus collectors
//	├── system/          # Lifecycle manager
//	└── runtime/         # Config-driven wiring and the HTTP server
//
// Business rules live in services/. This package only builds them with their
// stores, the identity directory, the rate limiter and the realtime hub, and
// starts the background services they need.
package app
