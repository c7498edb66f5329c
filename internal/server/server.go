// Package server exposes a DB over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/docfusion/metrics"
	"github.com/docfusion/docfusion/internal/config"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	db      *docfusion.DB
	cfg     config.ServerConfig
	logger  *slog.Logger
	router  *gin.Engine
	started time.Time
}

// New builds the router. Authentication is applied to everything but /health
// when auth is enabled.
func New(db *docfusion.DB, cfg config.ServerConfig, auth config.AuthConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{db: db, cfg: cfg, logger: logger, started: time.Now()}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(logger))
	r.Use(AccessLog())

	r.GET("/health", s.health)

	api := r.Group("")
	if auth.Enabled {
		api.Use(APIKey(auth.APIKey))
	}
	if cfg.RateLimit > 0 {
		api.Use(RateLimit(cfg.RateLimit, cfg.Burst))
	}

	api.GET("/metrics", s.appMetrics)
	api.GET("/metrics/prometheus", gin.WrapH(metrics.Handler()))

	docs := api.Group("/documents")
	docs.GET("", s.listDocuments)
	docs.POST("", s.createDocument)
	docs.POST("/bulk", s.bulkCreateDocuments)
	docs.GET("/:id", s.getDocument)
	docs.DELETE("/:id", s.deleteDocument)

	api.POST("/query", s.query)
	api.DELETE("/cache", s.clearCache)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port) }

func (s *Server) uptime() time.Duration { return time.Since(s.started).Truncate(time.Second) }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr, "backend", s.db.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
