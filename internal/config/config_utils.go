package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks fills in values that depend on other settings or the host
func (c *Config) applyFallbacks() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.applyTLSDefaults()
	c.applySessionDefaults()
	c.applyObservabilityDefaults()
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applySessionDefaults resolves the CLI credentials location
func (c *Config) applySessionDefaults() {
	if c.Session.CredentialsFile != "" {
		return
	}
	c.Session.CredentialsFile = DefaultCredentialsFile()
}

// DefaultCredentialsFile is ~/.resumeforge/credentials.json, or a relative path without a home dir.
func DefaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".resumeforge", "credentials.json")
	}
	return filepath.Join(home, ".resumeforge", "credentials.json")
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMEFORGE_BACKEND_BASEURL",
		"RESUMEFORGE_SERVER_PORT",
		"RESUMEFORGE_SERVER_HOST",
		"RESUMEFORGE_SESSION_STORE",
		"RESUMEFORGE_SESSION_SIGNINGKEY",
		"RESUMEFORGE_SESSION_REDIS_PASSWORD",
		"RESUMEFORGE_APP_LOGLEVEL",
		"RESUMEFORGE_VAULT_ENABLED",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Backend URL: %s", c.Backend.BaseURL)
	log.Printf("[CONFIG] Backend Circuit Breaker: %t", c.Backend.CircuitBreaker.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Session Store: %s", c.Session.Store)
	if c.Session.SigningKey != "" {
		log.Println("[CONFIG] Session Signing Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Session Signing Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "password") || strings.Contains(lower, "token")
}
