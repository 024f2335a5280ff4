package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/observability"
)

// CertificateManager serves the current TLS certificate and swaps in new ones from disk.
// A failed reload keeps the previous certificate in service.
type CertificateManager struct {
	mu         sync.RWMutex
	cert       *tls.Certificate
	caPool     *x509.CertPool
	expiry     time.Time
	lastReload time.Time
	lastError  error
	successes  int
	failures   int

	cfg     config.TLSConfig
	watcher *CertWatcher
	metrics *observability.Metrics
	logger  *errors.Logger
}

// NewCertificateManager loads the configured certificate, failing if it cannot be read.
func NewCertificateManager(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*CertificateManager, error) {
	if logger == nil {
		logger, _ = errors.New("error")
	}
	cm := &CertificateManager{cfg: cfg, metrics: metrics, logger: logger}
	if err := cm.load(); err != nil {
		return nil, err
	}
	return cm, nil
}

// Start watches the certificate files when auto reload is enabled
func (cm *CertificateManager) Start() error {
	if !cm.cfg.AutoReload.Enabled {
		return nil
	}
	cm.watcher = NewCertWatcher(
		[]string{cm.cfg.CertFile, cm.cfg.KeyFile, cm.cfg.CAFile},
		cm.cfg.AutoReload.DebounceDelay,
		func() { _ = cm.Reload() },
		cm.logger,
	)
	return cm.watcher.Start()
}

// Stop stops watching for certificate changes
func (cm *CertificateManager) Stop() error {
	if cm.watcher == nil {
		return nil
	}
	return cm.watcher.Stop()
}

// Reload re-reads the certificate files and records the outcome
func (cm *CertificateManager) Reload() error {
	err := cm.load()

	cm.mu.Lock()
	cm.lastReload = time.Now()
	cm.lastError = err
	if err != nil {
		cm.failures++
	} else {
		cm.successes++
	}
	cm.mu.Unlock()

	cm.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cm.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous ones")
		return err
	}
	cm.logger.Info("TLS certificates reloaded successfully")
	return nil
}

func (cm *CertificateManager) load() error {
	cert, err := tls.LoadX509KeyPair(cm.cfg.CertFile, cm.cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf

	var pool *x509.CertPool
	if cm.cfg.Mode == "mutual" {
		if pool, err = loadCAPool(cm.cfg.CAFile); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.cert = &cert
	cm.expiry = leaf.NotAfter
	if pool != nil {
		cm.caPool = pool
	}
	cm.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cm *CertificateManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cm.cert, nil
}

// GetConfigForClient hands each handshake a config with the current client CA pool,
// so a reloaded CA takes effect for mutual TLS.
func (cm *CertificateManager) GetConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cm.mu.RLock()
		pool := cm.caPool
		cm.mu.RUnlock()

		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		if pool != nil {
			cfg.ClientCAs = pool
		}
		return cfg, nil
	}
}

// Status reports certificate expiry and reload history for the health endpoint
func (cm *CertificateManager) Status() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	remaining := time.Until(cm.expiry)
	status := map[string]any{
		"healthy":              remaining > 0,
		"expires_at":           cm.expiry,
		"expires_in_hours":     int(remaining.Hours()),
		"auto_reload":          cm.watcher != nil && cm.watcher.IsRunning(),
		"reload_success_count": cm.successes,
		"reload_failure_count": cm.failures,
	}
	if !cm.lastReload.IsZero() {
		status["last_reload_time"] = cm.lastReload
		status["last_reload_success"] = cm.lastError == nil
	}
	if cm.lastError != nil {
		status["last_reload_error"] = cm.lastError.Error()
	}
	return status
}

func loadCAPool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode")
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to append CA cert from %s", caFile)
	}
	return pool, nil
}
