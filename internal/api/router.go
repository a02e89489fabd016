package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/savegress/traderecon/internal/config"
	"github.com/savegress/traderecon/internal/metrics"
	"github.com/savegress/traderecon/internal/reconciliation"
	"github.com/savegress/traderecon/internal/reporting"
	"github.com/savegress/traderecon/pkg/workerpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, engine *reconciliation.Engine, reports *reporting.Generator, pool *workerpool.Pool, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(cfg, engine, reports, pool, m, logger),
		metrics:  m,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Run-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1/recon", func(r chi.Router) {
		if s.config.Server.RateLimit > 0 {
			burst := s.config.Server.RateBurst
			if burst < 1 {
				burst = 1
			}
			r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(s.config.Server.RateLimit), burst)))
		}
		if s.config.Server.JWTSecret != "" {
			r.Use(AuthMiddleware(s.config.Server.JWTSecret))
		}

		r.Post("/runs", s.handlers.CreateRun)
		r.Get("/stats", s.handlers.GetRunStats)
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
