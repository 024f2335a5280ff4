package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultBackendURL is where the resume service listens in local setups.
const DefaultBackendURL = "http://localhost:8000"

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Backend
	v.SetDefault("backend.baseURL", DefaultBackendURL)
	v.SetDefault("backend.timeout", time.Duration(0))

	v.SetDefault("backend.circuitBreaker.enabled", false)
	v.SetDefault("backend.circuitBreaker.maxRequests", 3)
	v.SetDefault("backend.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.minRequests", 3)
	v.SetDefault("backend.circuitBreaker.failureThreshold", 0.6)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	// Generation and optimization can take minutes on the backend.
	v.SetDefault("server.writeTimeout", 10*time.Minute)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 2*1024*1024)

	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 120)
	v.SetDefault("server.rateLimit.burstCapacity", 20)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.bySession", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// Sessions
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.cookieName", "resumeforge_session")
	v.SetDefault("session.signingKey", "")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.credentialsFile", "")
	v.SetDefault("session.redis.addr", "")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.keyPrefix", "resumeforge:session:")

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"text", "markdown", "json"})
	v.SetDefault("app.maxFileSize", 5*1024*1024) // 5MB, PDFs are larger than plain text

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.sessionKey", "")

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumeforge")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
