package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortuna/xgfixtures/internal/metrics"
)

// Config configures the REST server.
type Config struct {
	Port           string
	AllowedOrigins []string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   log.Logger
}

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
	router *mux.Router
	logger log.Logger
}

// NewServer creates a new REST API server
func NewServer(cfg Config, handler *Handler) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "component", "rest")
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	router.Use(MetricsMiddleware(m))

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	// Bare view, kept for existing frontends.
	router.HandleFunc("/api/fixtures", handler.GetFixtures).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Fixtures. Per-team views live under /team so no team name collides
	// with summary or latest.
	api.HandleFunc("/fixtures", handler.GetFixturesEnvelope).Methods("GET", "OPTIONS")
	api.HandleFunc("/fixtures/summary", handler.GetFixtureSummary).Methods("GET", "OPTIONS")
	api.HandleFunc("/fixtures/latest", handler.GetLatestSnapshot).Methods("GET", "OPTIONS")
	api.HandleFunc("/fixtures/team/{team}", handler.GetTeamFixtures).Methods("GET", "OPTIONS")

	// Rankings
	api.HandleFunc("/rankings", handler.GetRankings).Methods("GET", "OPTIONS")

	// Gameweeks
	api.HandleFunc("/gameweeks", handler.GetGameweeks).Methods("GET", "OPTIONS")
	api.HandleFunc("/gameweeks/lookup", handler.LookupGameweek).Methods("GET", "OPTIONS")

	// Scheduler
	api.HandleFunc("/scheduler/status", handler.GetSchedulerStatus).Methods("GET", "OPTIONS")

	return &Server{
		port:   cfg.Port,
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	level.Info(s.logger).Log("msg", "REST server listening", "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
