package cli

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
	"resumeforge/internal/server"
	"resumeforge/internal/session"

	"github.com/spf13/cobra"
)

// sessionCleanupInterval is how often expired in-memory sessions are purged
const sessionCleanupInterval = 5 * time.Minute

type serveOptions struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
	caFile   string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web application",
		Long: `Start the server-rendered web application: login and signup, the dashboard of saved
resumes, the resume optimizer, resume details with text and PDF downloads, and profiles.

Operational endpoints:
- GET /health: Health check including the backend circuit breaker
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.port, "port", "p", "", "Port to listen on (default from config)")
	flags.StringVar(&opts.host, "host", "", "Host to bind to (default from config)")
	flags.StringVar(&opts.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	flags.StringVar(&opts.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	flags.StringVar(&opts.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
	flags.StringVar(&opts.caFile, "ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	return cmd
}

// applyOverrides copies the flags the user set over the loaded configuration
func (o *serveOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		value  string
		target *string
	}{
		{"port", o.port, &cfg.Server.Port},
		{"host", o.host, &cfg.Server.Host},
		{"tls-mode", o.tlsMode, &cfg.Server.TLS.Mode},
		{"cert-file", o.certFile, &cfg.Server.TLS.CertFile},
		{"key-file", o.keyFile, &cfg.Server.TLS.KeyFile},
		{"ca-file", o.caFile, &cfg.Server.TLS.CAFile},
	}
	for _, ov := range overrides {
		if cmd.Flags().Changed(ov.flag) {
			*ov.target = ov.value
		}
	}
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	opts.applyOverrides(cmd, cfg)
	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return err
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()
	metrics := om.GetMetrics()

	client, err := apiclient.NewFromConfig(cfg, metrics, logger)
	if err != nil {
		return err
	}

	store, closeStore, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	key, err := session.SigningKey(cfg, logger)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, session.Options{
		Cookies: session.NewCookieCodec(cfg.Session.CookieName, key, cfg.Session.TTL, cfg.Session.Secure),
		Logger:  logger,
		Metrics: metrics,
	})

	srv, err := server.NewServer(cfg, server.Options{
		Version:  Version,
		Client:   client,
		Sessions: sessions,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx, om)
}

// openSessionStore builds the configured store and returns a function that releases it
func openSessionStore(ctx context.Context, cfg *config.Config, logger *errors.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		store, err := session.NewRedisStore(ctx, cfg.Session.Redis, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis session store", "addr", cfg.Session.Redis.Addr)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.LogError(err, "Failed to close redis session store")
			}
		}, nil
	default:
		store := session.NewMemoryStore(cfg.Session.TTL)
		cleanupCtx, cancel := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(sessionCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if removed := store.Cleanup(); removed > 0 {
						logger.Debug("Expired sessions removed", "count", removed)
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
		return store, cancel, nil
	}
}
