package server

import (
	"fmt"
	"net/http"
	"time"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
	"resumeforge/internal/session"
	"resumeforge/internal/workflow"
)

// Server represents the web frontend server
type Server struct {
	Host               string
	Port               string
	Version            string
	AppConfig          *config.Config
	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxRequestSize     int64
	RateLimit          *config.RateLimitConfig
	RateLimiter        *RateLimiter
	Logger             *errors.Logger

	client    *apiclient.Client
	sessions  *session.Manager
	workflows *workflow.Registry
	metrics   *observability.Metrics
	pages     pageSet
}

// Options carries the collaborators the server does not build itself
type Options struct {
	Version  string
	Client   *apiclient.Client
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Logger   *errors.Logger
}

// NewServer creates a new web frontend server. Every browser session gets its own
// optimization workflow, dropped when the session logs out.
func NewServer(appCfg *config.Config, opts Options) (*Server, error) {
	if opts.Client == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("server requires an API client and a session manager")
	}

	logger := opts.Logger
	if logger == nil {
		logger, _ = errors.New(appCfg.App.LogLevel)
	}

	pages, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	serverCfg := appCfg.Server
	s := &Server{
		Host:           serverCfg.Host,
		Port:           serverCfg.Port,
		Version:        opts.Version,
		AppConfig:      appCfg,
		TLSConfig:      serverCfg.TLS,
		ReadTimeout:    serverCfg.ReadTimeout,
		WriteTimeout:   serverCfg.WriteTimeout,
		IdleTimeout:    serverCfg.IdleTimeout,
		MaxRequestSize: serverCfg.MaxRequestSize,
		RateLimit:      &serverCfg.RateLimit,
		Logger:         logger,
		client:         opts.Client,
		sessions:       opts.Sessions,
		metrics:        opts.Metrics,
		pages:          pages,
	}

	backend := sessionBackend{client: opts.Client}
	s.workflows = workflow.NewRegistry(func() *workflow.Workflow {
		return workflow.New(backend, workflow.WithLogger(logger), workflow.WithMetrics(opts.Metrics))
	})
	s.sessions.OnInvalidate(s.workflows.Discard)

	if s.RateLimit.Enabled {
		s.RateLimiter = NewRateLimiter(s.RateLimit.RequestsPerMin, s.RateLimit.Window, s.RateLimit.BurstCapacity, logger)
	}

	return s, nil
}

// Handler returns the full route tree wrapped in the observability middleware when om is set.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	mux := s.setupRoutes()
	if om == nil {
		return mux
	}
	return om.HTTPMiddleware()(mux)
}

// backendFor returns a client authenticated as the request's session
func (s *Server) backendFor(r *http.Request) *apiclient.Client {
	if sess := session.FromContext(r.Context()); sess != nil {
		return s.client.WithToken(sess.Token)
	}
	return s.client
}
