package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the render surface the HTTP layer serves.
// It is implemented by pipeline.Dashboard.
type Dashboard interface {
	sharedobs.ReadinessChecker
	Render(ctx context.Context, sel domain.Selection) (pipeline.Rendered, error)
	Stations(ctx context.Context) ([]string, error)
	DefaultSelection(ctx context.Context) (domain.Selection, error)
	Constants() domain.Constants
}

// Server exposes the dashboard API, the websocket render channel, and the
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	metrics    *observability.Metrics
	logger     *slog.Logger

	// sessions is cancelled on Shutdown to close hijacked websocket connections.
	sessions     context.Context
	stopSessions context.CancelFunc
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, dashboard Dashboard, metrics *observability.Metrics, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: router,
			// No WriteTimeout: websocket sessions are long-lived.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard: dashboard,
		metrics:   metrics,
		logger:    logger,
	}
	s.sessions, s.stopSessions = context.WithCancel(context.Background())
	s.httpServer.RegisterOnShutdown(s.stopSessions)

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(dashboard)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/constants", s.handleConstants).Methods(http.MethodGet)
	api.HandleFunc("/stations", s.handleStations).Methods(http.MethodGet)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	router.HandleFunc("/ws", s.handleWebsocket).Methods(http.MethodGet)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
