// Package server owns HTTP server lifecycle and application wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/floatchat/floatchat/internal/api"
	"github.com/floatchat/floatchat/internal/domain/knowledge"
	"github.com/floatchat/floatchat/internal/domain/query"
	"github.com/floatchat/floatchat/internal/domain/router"
	"github.com/floatchat/floatchat/internal/domain/session"
	"github.com/floatchat/floatchat/internal/domain/sqlgen"
	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/infra/config"
	"github.com/floatchat/floatchat/internal/infra/eventbus"
	"github.com/floatchat/floatchat/internal/infra/llm"
	"github.com/floatchat/floatchat/internal/infra/postgres"
	"github.com/floatchat/floatchat/internal/infra/sqlite"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default HTTP server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server wraps the HTTP server and owns teardown of the wired resources.
type Server struct {
	config  Config
	http    *http.Server
	cleanup []func() error
}

// NewServer wires the whole application: rules, stores, the LLM key pool,
// both answer pipelines and the HTTP router.
func NewServer(ctx context.Context, appCfg config.Config, cfg Config) (*Server, error) {
	logger := slog.Default()
	var cleanup []func() error

	rules, err := config.LoadRules(appCfg.RulesPath)
	if err != nil {
		return nil, err
	}

	// Session store (SQLite, read-write)
	sessionDB, err := sqlite.NewDB(appCfg.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	cleanup = append(cleanup, sessionDB.Close)
	if err := sqlite.MigrateUp(sessionDB); err != nil {
		runCleanup(cleanup)
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	turns := session.NewStore(sessionDB)

	// Knowledge chunks (offline-built SQLite, read-only). A missing file is
	// not fatal: the built-in chunk set covers the core schema.
	chunks := loadChunks(ctx, appCfg.KnowledgeDBPath, logger, &cleanup)
	retriever := knowledge.NewRetriever(chunks, appCfg.ContextTokenBudget)

	classifier, err := router.NewClassifier(rules.Signals)
	if err != nil {
		runCleanup(cleanup)
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	whitelist := rules.Tables
	if len(whitelist) == 0 {
		whitelist = sqlgen.DefaultWhitelist()
	}
	validator := sqlgen.NewValidator(whitelist, appCfg.DefaultRowLimit)

	regions := rules.Regions
	if len(regions) == 0 {
		regions = sqlgen.DefaultRegions()
	}
	fallback := sqlgen.NewFallback(regions, appCfg.DefaultRowLimit)

	// ARGO measurement database
	pgPool, err := postgres.NewPool(ctx, appCfg.DatabaseURL)
	if err != nil {
		runCleanup(cleanup)
		return nil, err
	}
	cleanup = append(cleanup, func() error { pgPool.Close(); return nil })
	executor := postgres.NewExecutor(pgPool)

	// LLM key pool; refusing to start without keys beats failing every query.
	client := llm.NewGroqClient(appCfg.GroqBaseURL, appCfg.GroqModel, appCfg.LLMTimeout)
	pool, err := llm.NewPool(client, llm.PoolConfig{
		Keys:              appCfg.GroqAPIKeys,
		RequestsPerMinute: appCfg.RateLimitPerMinute,
		MaxAttempts:       appCfg.MaxAttempts,
		MaxHardFailures:   appCfg.MaxHardFailures,
	})
	if err != nil {
		runCleanup(cleanup)
		return nil, fmt.Errorf("build key pool (set FLOATCHAT_GROQ_API_KEYS): %w", err)
	}

	registry := tools.NewBuiltinRegistry(executor, validator)
	generator := sqlgen.NewGenerator(pool, validator, appCfg.MaxSQLRetries, logger)
	planner := tools.NewPlanner(pool, registry, logger)
	orchestrator := tools.NewOrchestrator(registry, logger)

	bus := eventbus.New()
	statsCtx, statsCancel := context.WithCancel(context.Background())
	cleanup = append(cleanup, func() error { statsCancel(); return nil })
	collector := query.NewCollector(statsCtx, bus)

	svc := query.NewService(query.Config{
		Classifier:   classifier,
		Retriever:    retriever,
		Generator:    generator,
		Fallback:     fallback,
		Planner:      planner,
		Orchestrator: orchestrator,
		Executor:     executor,
		Turns:        turns,
		Bus:          bus,
		Timeout:      appCfg.RequestTimeout,
		Logger:       logger,
	})

	mux := api.NewRouter(api.Deps{
		Query:    svc,
		Sessions: turns,
		Tools:    registry,
		Pool:     pool,
		Stats:    collector,
	})

	return newServer(cfg, mux, cleanup), nil
}

// newServer builds the Server around an already wired handler.
func newServer(cfg Config, handler http.Handler, cleanup []func() error) *Server {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		config:  cfg,
		http:    httpServer,
		cleanup: cleanup,
	}
}

// loadChunks opens the offline-built knowledge database if present and loads
// the chunk set, falling back to the built-in chunks on any failure.
func loadChunks(ctx context.Context, path string, logger *slog.Logger, cleanup *[]func() error) []knowledge.Chunk {
	db, err := sqlite.NewReadOnlyDB(path)
	if err != nil {
		logger.Warn("knowledge db unavailable, using built-in chunks", "path", path, "error", err)
		db = nil
	} else {
		*cleanup = append(*cleanup, db.Close)
	}

	chunks, err := knowledge.Load(ctx, db)
	if err != nil {
		logger.Warn("knowledge load failed, using built-in chunks", "error", err)
		return knowledge.BuiltinChunks()
	}
	return chunks
}

// Start starts the HTTP server and blocks until an error occurs.
func (s *Server) Start(ctx context.Context) error {
	fmt.Printf("Starting HTTP server on %s\n", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server and releases wired resources in
// reverse acquisition order.
func (s *Server) Shutdown(ctx context.Context) error {
	fmt.Println("Shutting down server...")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	runCleanup(s.cleanup)

	fmt.Println("Server shutdown complete")
	return nil
}

func runCleanup(fns []func() error) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]() //nolint:errcheck
	}
}
