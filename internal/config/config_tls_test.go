package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTLSMode(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "disabled mode",
			tls:  TLSConfig{Mode: "disabled"},
		},
		{
			name: "server mode valid",
			tls: TLSConfig{
				Mode:     "server",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
			},
		},
		{
			name:        "server mode without key",
			tls:         TLSConfig{Mode: "server", CertFile: "/path/to/cert.pem"},
			expectError: true,
			errorMsg:    "certFile and keyFile are required for server mode",
		},
		{
			name: "mutual mode valid",
			tls: TLSConfig{
				Mode:     "mutual",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
				CAFile:   "/path/to/ca.pem",
			},
		},
		{
			name: "mutual mode without CA",
			tls: TLSConfig{
				Mode:     "mutual",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
			},
			expectError: true,
			errorMsg:    "caFile is required",
		},
		{
			name: "mutual mode with bad policy",
			tls: TLSConfig{
				Mode:             "mutual",
				CertFile:         "/path/to/cert.pem",
				KeyFile:          "/path/to/key.pem",
				CAFile:           "/path/to/ca.pem",
				ClientAuthPolicy: "sometimes",
			},
			expectError: true,
			errorMsg:    "invalid clientAuthPolicy",
		},
		{
			name:        "invalid mode",
			tls:         TLSConfig{Mode: "invalid"},
			expectError: true,
			errorMsg:    "invalid TLS mode: invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTLSMode(tt.tls)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTLSVersion(t *testing.T) {
	for _, version := range []string{"", "1.2", "1.3"} {
		assert.NoError(t, validateTLSVersion(TLSConfig{MinVersion: version}), version)
	}
	assert.Error(t, validateTLSVersion(TLSConfig{MinVersion: "1.1"}))
}
