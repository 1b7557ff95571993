package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/takuto-ai/takuto/internal/auth"
	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/orchestrator"
)

// Server is the Takuto HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. MCPServer is optional (nil = MCP transport disabled).
type ServerConfig struct {
	Store        Store
	StoreKind    string
	JWTMgr       *auth.JWTManager
	Orchestrator *orchestrator.Orchestrator
	Engine       *metrics.Engine
	APIKeyHash   string
	Logger       *slog.Logger

	MCPServer *mcpserver.MCPServer

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	AnalysisTimeout     time.Duration
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		StoreKind:           cfg.StoreKind,
		JWTMgr:              cfg.JWTMgr,
		Orchestrator:        cfg.Orchestrator,
		Engine:              cfg.Engine,
		APIKeyHash:          cfg.APIKeyHash,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		AnalysisTimeout:     cfg.AnalysisTimeout,
	})

	mux := http.NewServeMux()

	// Auth endpoint (no auth required).
	mux.HandleFunc("POST /auth/token", h.HandleAuthToken)

	// Analysis.
	mux.HandleFunc("POST /v1/analyze", h.HandleAnalyze)

	// Project queries.
	mux.HandleFunc("GET /v1/projects/{project_id}/metrics", h.HandleProjectMetrics)
	mux.HandleFunc("GET /v1/projects/{project_id}/risks", h.HandleProjectRisks)

	// Record ingestion.
	mux.HandleFunc("POST /v1/records/durations", h.HandleIngestDurations)
	mux.HandleFunc("POST /v1/records/utilization", h.HandleIngestUtilization)
	mux.HandleFunc("POST /v1/records/risks", h.HandleIngestRisks)

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Health (no auth).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
