package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumeforge/internal/observability"
)

// shutdownTimeout bounds how long in-flight requests may take once shutdown starts
const shutdownTimeout = 30 * time.Second

// workflowSweepInterval is how often workflows of expired sessions are dropped
const workflowSweepInterval = 5 * time.Minute

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, om *observability.ObservabilityManager) error {
	httpServer := s.setupHTTPServer(om)

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	s.displayServerInfo()

	go s.runWorkflowSweeper(ctx)

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// runWorkflowSweeper drops workflows whose sessions expired without a logout until ctx is done
func (s *Server) runWorkflowSweeper(ctx context.Context) {
	ticker := time.NewTicker(workflowSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := s.sweepWorkflows(ctx); removed > 0 {
				s.Logger.Debug("Workflows of expired sessions removed", "count", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// sweepWorkflows discards every workflow whose session is gone from the store.
// A store error keeps the workflow until the next sweep.
func (s *Server) sweepWorkflows(ctx context.Context) int {
	removed := 0
	for _, id := range s.workflows.IDs() {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			s.Logger.LogError(err, "Failed to check session for workflow sweep", "session_id", id)
			continue
		}
		if sess == nil {
			s.workflows.Discard(id)
			removed++
		}
	}
	return removed
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(om),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown runs the server until it fails or ctx is done
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates come from TLSConfig.GetCertificate
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.releaseResources()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Shutdown requested, starting graceful shutdown", "reason", context.Cause(ctx).Error())
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.releaseResources()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// releaseResources stops the certificate watcher and the rate limiter cleanup
func (s *Server) releaseResources() {
	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
