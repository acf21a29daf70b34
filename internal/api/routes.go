// Package api wires the HTTP surface: go-chi router, middleware stack and
// endpoint registration.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/floatchat/floatchat/internal/api/handlers"
	apmiddleware "github.com/floatchat/floatchat/internal/api/middleware"
	"github.com/floatchat/floatchat/internal/domain/query"
	"github.com/floatchat/floatchat/internal/domain/session"
	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/infra/llm"
	pkgauth "github.com/floatchat/floatchat/pkg/auth"
)

// Deps carries the wired services the router exposes. Pool and Stats may be
// nil (e.g. no API keys configured); the stats endpoint reports what exists.
type Deps struct {
	Query    *query.Service
	Sessions *session.Store
	Tools    *tools.Registry
	Pool     *llm.Pool
	Stats    *query.Collector
}

// NewRouter creates and configures a chi router with all routes.
// /api/v1/* requires a Bearer JWT only when FLOATCHAT_JWT_SECRET is set;
// an unset secret runs the API open for local development.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check, unauthenticated, used by load balancers and probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	queryHandler := handlers.NewQueryHandler(deps.Query)
	sessionHandler := handlers.NewSessionHandler(deps.Sessions)
	toolsHandler := handlers.NewToolsHandler(deps.Tools)
	statsHandler := handlers.NewStatsHandler(statsDeps(deps))

	r.Route("/api/v1", func(r chi.Router) {
		if pkgauth.Enabled() {
			r.Use(apmiddleware.AuthMiddleware)
		}

		r.Post("/query", queryHandler.Submit)                   // POST /api/v1/query
		r.Get("/sessions/{id}/history", sessionHandler.History) // GET /api/v1/sessions/{id}/history
		r.Get("/tools", toolsHandler.List)                      // GET /api/v1/tools
		r.Get("/stats", statsHandler.Stats)                     // GET /api/v1/stats
	})

	return r
}

// statsDeps keeps nil interface values nil: a typed nil *llm.Pool stored in
// a non-nil interface would defeat the handler's nil checks.
func statsDeps(deps Deps) (handlers.UsageSource, handlers.StatsSource) {
	var pool handlers.UsageSource
	var stats handlers.StatsSource
	if deps.Pool != nil {
		pool = deps.Pool
	}
	if deps.Stats != nil {
		stats = deps.Stats
	}
	return pool, stats
}
