package takuto

import (
	"log/slog"

	"github.com/takuto-ai/takuto/internal/agent"
	"github.com/takuto-ai/takuto/internal/server"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port        int
	databaseURL string
	logger      *slog.Logger
	version     string
	roster      *agent.Roster
	store       server.Store
	storeKind   string
}

// WithPort overrides the TCP port from config (TAKUTO_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides the Postgres connection string from config
// (DATABASE_URL env var).
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithRoster replaces the agent roster loaded from config
// (TAKUTO_ROSTER_PATH env var, or the built-in default lineup).
func WithRoster(r agent.Roster) Option {
	return func(o *resolvedOptions) { o.roster = &r }
}

// WithStore replaces the configured record store. Intended for embedding and
// tests; the App will not manage the store's lifecycle.
func WithStore(kind string, s server.Store) Option {
	return func(o *resolvedOptions) {
		o.store = s
		o.storeKind = kind
	}
}
