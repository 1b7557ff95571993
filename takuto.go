// Package takuto is the public API for embedding the Takuto analysis server.
//
// Consumers import this package to construct and run the server without
// forking it:
//
//	app, err := takuto.New(
//	    takuto.WithVersion(version),
//	    takuto.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: takuto (root) imports
// internal/*, but internal/* never imports takuto (root).
package takuto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/takuto-ai/takuto/internal/agent"
	"github.com/takuto-ai/takuto/internal/auth"
	"github.com/takuto-ai/takuto/internal/config"
	"github.com/takuto-ai/takuto/internal/mcp"
	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/orchestrator"
	"github.com/takuto-ai/takuto/internal/server"
	"github.com/takuto-ai/takuto/internal/storage"
	"github.com/takuto-ai/takuto/internal/storage/sqlite"
	"github.com/takuto-ai/takuto/internal/telemetry"
	"github.com/takuto-ai/takuto/migrations"
)

// App is the Takuto server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	srv          *server.Server
	store        server.Store
	closeStore   func()
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the Takuto server. It opens the record store, runs
// migrations, builds the agent roster, and wires all subsystems. It does NOT
// start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("takuto starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, storeKind, closeStore, err := openStore(o, cfg, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	roster, err := loadRoster(o, cfg)
	if err != nil {
		closeStore()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("roster: %w", err)
	}
	agents, err := agent.Build(roster, logger)
	if err != nil {
		closeStore()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("roster: %w", err)
	}

	orch, err := orchestrator.New(agents, logger)
	if err != nil {
		closeStore()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	engine := metrics.NewEngine(store, logger)

	jwtMgr, err := auth.NewJWTManager(cfg.JWTExpiration)
	if err != nil {
		closeStore()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	apiKeyHash := ""
	if cfg.APIKey != "" {
		apiKeyHash, err = auth.HashAPIKey(cfg.APIKey)
		if err != nil {
			closeStore()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("auth: %w", err)
		}
	} else {
		logger.Warn("TAKUTO_API_KEY is empty; /auth/token will reject all requests")
	}

	mcpSrv := mcp.New(orch, engine, store, logger)

	srv := server.New(server.ServerConfig{
		Store:               store,
		StoreKind:           storeKind,
		JWTMgr:              jwtMgr,
		Orchestrator:        orch,
		Engine:              engine,
		APIKeyHash:          apiKeyHash,
		Logger:              logger,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		AnalysisTimeout:     cfg.AnalysisTimeout,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		store:        store,
		closeStore:   closeStore,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically — callers
// should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains in-flight HTTP requests, then closes the record store and
// the OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("takuto shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	a.closeStore()
	_ = a.otelShutdown(context.Background())

	a.logger.Info("takuto stopped")
	return nil
}

// SeedSampleData writes a deterministic month of sample records for the
// project into the configured store. Intended for local development and
// demos; repeated runs with the same seed produce the same rows.
func (a *App) SeedSampleData(ctx context.Context, projectID string, seed int64) error {
	return storage.Seed(ctx, a.store, projectID, time.Now().UTC(), seed)
}

// openStore selects the record store: an injected store first, then Postgres
// when DATABASE_URL is set, else the embedded SQLite fallback.
func openStore(o resolvedOptions, cfg config.Config, logger *slog.Logger) (server.Store, string, func(), error) {
	if o.store != nil {
		kind := o.storeKind
		if kind == "" {
			kind = "custom"
		}
		return o.store, kind, func() {}, nil
	}

	if cfg.DatabaseURL != "" {
		db, err := storage.New(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			return nil, "", nil, fmt.Errorf("storage: %w", err)
		}
		if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
			db.Close()
			return nil, "", nil, fmt.Errorf("migrations: %w", err)
		}
		logger.Info("record store: postgres")
		return db, "postgres", db.Close, nil
	}

	st, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("sqlite: %w", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		_ = st.Close()
		return nil, "", nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	logger.Info("record store: sqlite", "path", cfg.SQLitePath)
	return st, "sqlite", func() { _ = st.Close() }, nil
}

// loadRoster resolves the agent roster: an injected roster first, then the
// TOML file from config, else the built-in default lineup.
func loadRoster(o resolvedOptions, cfg config.Config) (agent.Roster, error) {
	if o.roster != nil {
		return *o.roster, nil
	}
	if cfg.RosterPath != "" {
		return agent.LoadRoster(cfg.RosterPath)
	}
	return agent.DefaultRoster(), nil
}
