// Package status exposes the manager's aggregate status over HTTP for
// operators. It is observational only; the job pipeline never depends
// on it.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orpheus-audio/narration-worker/internal/worker"
)

// Source provides the pool status served on demand.
type Source interface {
	Status() worker.StatusReport
}

// Server serves /healthz and /status on the configured address.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the status server around the manager.
func NewServer(addr string, source Source, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), loggerMiddleware(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.Status())
	})

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Status endpoint listening",
			slog.String("addr", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Status endpoint failed",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// loggerMiddleware logs each HTTP request with slog.
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Debug("HTTP request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
