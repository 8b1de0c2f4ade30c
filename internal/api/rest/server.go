package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/patternlens/transaction-pattern-backend/internal/infrastructure/config"
	"github.com/patternlens/transaction-pattern-backend/internal/metrics"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the router and wraps it in the middleware chain.
func NewServer(cfg *config.Config, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/transactions", handler.handleUploadJSON)
	mux.HandleFunc("POST /api/v1/transactions/csv", handler.handleUploadCSV)
	mux.HandleFunc("GET /api/v1/summary", handler.handleSummary)
	mux.HandleFunc("GET /api/v1/patterns", handler.handlePatterns)
	mux.HandleFunc("POST /api/v1/analyze", handler.handleAnalyze)
	mux.HandleFunc("POST /api/v1/analyze-progressive", handler.handleAnalyzeProgressive)
	mux.HandleFunc("GET /api/v1/threads", handler.handleThreads)

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 90 * time.Second
	}

	// outermost first: recovery wraps everything, timeout bounds handlers.
	// tracing sits above logging so request logs carry trace IDs.
	var root http.Handler = mux
	root = timeoutMiddleware(requestTimeout)(root)
	root = corsMiddleware(cfg.CORS.AllowedOrigins)(root)
	root = loggingMiddleware(logger)(root)
	root = tracingMiddleware(otel.Tracer("api.rest"))(root)
	root = requestIDMiddleware(root)
	root = recoveryMiddleware(logger)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      root,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler exposes the fully wrapped router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
