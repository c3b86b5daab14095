// Package httpapi exposes the game over HTTP with gin.
//
// Endpoints:
//
//	POST /v1/submissions  Play a count; returns the outcome
//	POST /v1/messages     Answer a chat message (commands or counts)
//	POST /v1/eval         Evaluate without counting
//	GET  /v1/stats        Stats report (text, or JSON state with ?format=json)
//	GET  /v1/help         Help text for the active policy
//	GET  /healthz         Liveness
//	GET  /metrics         Prometheus metrics
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/countbot/internal/chat"
)

const (
	// shutdownTimeout bounds how long in-flight requests get at shutdown.
	shutdownTimeout = 10 * time.Second

	// maxBodyBytes caps every /v1 request body.
	maxBodyBytes = 64 << 10
)

// Server serves one game.
type Server struct {
	dispatch *chat.Dispatcher
	router   *gin.Engine
}

// New creates a Server answering through d.
func New(d *chat.Dispatcher) *Server {
	s := &Server{dispatch: d, router: gin.New()}
	s.router.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1", limitBody(maxBodyBytes))
	v1.POST("/submissions", s.handleSubmit)
	v1.POST("/messages", s.handleMessage)
	v1.POST("/eval", s.handleEval)
	v1.GET("/stats", s.handleStats)
	v1.GET("/help", s.handleHelp)
}

// limitBody makes reads past n bytes of the request body fail.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("http stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
