package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS on httpServer according to the configured mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		fmt.Printf("Starting server on http://%s\n", httpServer.Addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return nil
	case "server":
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", httpServer.Addr)
	case "mutual":
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", httpServer.Addr)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certManager, err := NewCertificateManager(s.TLSConfig, s.metrics, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	if err := certManager.Start(); err != nil {
		return fmt.Errorf("failed to start certificate watcher: %w", err)
	}
	s.CertificateManager = certManager

	httpServer.TLSConfig = s.buildTLSConfig(certManager)
	if s.TLSConfig.AutoReload.Enabled {
		fmt.Println("TLS auto-reload: ENABLED (file watching)")
	}
	return nil
}

// buildTLSConfig creates a tls.Config that always serves the manager's current certificate
func (s *Server) buildTLSConfig(cm *CertificateManager) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		GetCertificate: cm.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.GetConfigForClient = cm.GetConfigForClient(tlsConfig)
	}
	return tlsConfig
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
