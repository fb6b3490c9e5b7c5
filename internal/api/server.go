package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/speechlab/align-engine/internal/config"
	"github.com/speechlab/align-engine/internal/database"
	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/metrics"
	"github.com/speechlab/align-engine/internal/mqttclient"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, db *database.DB, mqtt *mqttclient.Client, live LiveDataSource, pool *engine.Pool, version string, startTime time.Time, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORSWithOrigins(cfg.CORSOrigins))
	r.Use(metrics.InstrumentHandler)
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Handle("/metrics", promhttp.Handler())

	health := NewHealthHandler(db, mqtt, live, pool, version, startTime)

	r.Route("/api/v1", func(r chi.Router) {
		// Health endpoint, no auth
		r.Get("/health", health.ServeHTTP)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.AuthToken))

			NewAlignHandler(engine.New(log)).Routes(r)
			NewJobsHandler(pool).Routes(r)
			NewTranscriptsHandler(db).Routes(r)
			NewEventsHandler(live).Routes(r)

			// Raw SQL stays disabled unless a token is configured.
			r.Group(func(r chi.Router) {
				r.Use(RequireAuth(cfg.AuthToken))
				NewQueryHandler(db).Routes(r)
			})
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
