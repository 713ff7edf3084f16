package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/privascan/internal/app"
)

// Server owns the HTTP listener and routing.
type Server struct {
	app        *app.App
	httpServer *http.Server
	limiter    *clientLimiter
}

// New creates the HTTP server over a wired application.
func New(application *app.App) *Server {
	s := &Server{
		app:     application,
		limiter: newClientLimiter(application.Config.Server.RateLimitPerMinute),
	}

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withConditionalMiddleware(s.setupRoutes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.app.Logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
