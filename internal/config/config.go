package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// Session signing key precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMEFORGE_SESSION_SIGNINGKEY)
// 4. A random per-process key - Lowest priority
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Server        ServerConfig        `mapstructure:"server"`
	Session       SessionConfig       `mapstructure:"session"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BackendConfig describes the external resume service
type BackendConfig struct {
	BaseURL string `mapstructure:"baseURL"`
	// Timeout of zero leaves requests bounded only by the caller's context.
	Timeout        time.Duration        `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Time to wait before half-open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Min requests before evaluating failure ratio
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio that trips the breaker
}

// ServerConfig holds web frontend server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string           `mapstructure:"mode"`             // TLS mode: "disabled", "server", "mutual"
	CertFile         string           `mapstructure:"certFile"`         // Server certificate file (PEM)
	KeyFile          string           `mapstructure:"keyFile"`          // Server private key file (PEM)
	CAFile           string           `mapstructure:"caFile"`           // CA for client cert verification (mutual mode)
	MinVersion       string           `mapstructure:"minVersion"`       // "1.2" or "1.3"
	ClientAuthPolicy string           `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"
	AutoReload       AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls certificate hot reload from disk
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Key limiters by client IP
	BySession      bool          `mapstructure:"bySession"`      // Key limiters by session cookie
	Window         time.Duration `mapstructure:"window"`         // Idle time before a limiter is evicted
}

// SessionConfig controls where login sessions live
type SessionConfig struct {
	Store           string        `mapstructure:"store"` // "memory" or "redis"
	CookieName      string        `mapstructure:"cookieName"`
	SigningKey      string        `mapstructure:"signingKey"`
	TTL             time.Duration `mapstructure:"ttl"`
	Secure          bool          `mapstructure:"secure"`
	CredentialsFile string        `mapstructure:"credentialsFile"` // CLI credentials
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the redis session store connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from .env files, environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	loadDotEnv()

	v := newViper()

	// Read the config file
	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// newViper builds a viper instance with defaults, env handling and search paths
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESUMEFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumeforge/")
	v.AddConfigPath("$HOME/.resumeforge")
	v.AddConfigPath(".")
	return v
}

// loadDotEnv populates the process environment from .env files when present.
// Variables already set in the environment win.
func loadDotEnv() {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err == nil {
			log.Printf("[CONFIG] Loaded environment file: %s", file)
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	if c.Server.MaxRequestSize < 0 {
		return fmt.Errorf("server.maxRequestSize must not be negative")
	}

	if err := c.validateSession(); err != nil {
		return err
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.App.LogLevel)
	}

	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend.baseURL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.baseURL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.baseURL is missing a host")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	cb := c.Backend.CircuitBreaker
	if cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("backend.circuitBreaker.failureThreshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when session.store is redis")
		}
		if _, _, err := net.SplitHostPort(c.Session.Redis.Addr); err != nil {
			return fmt.Errorf("invalid session.redis.addr: %w", err)
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be 'memory' or 'redis')", c.Session.Store)
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookieName is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

// ValidateSigningKey is checked only when the web server starts; the CLI never signs cookies.
func (c *Config) ValidateSigningKey() error {
	if len(c.Session.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("session signing key must be at least %d bytes", MinSigningKeyLength)
	}
	return nil
}

// MinSigningKeyLength is the shortest accepted HS256 cookie key.
const MinSigningKeyLength = 32

// ServerAddr returns host:port for the web frontend.
func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
