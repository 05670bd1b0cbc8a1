// Package config loads the dashboard's settings from environment variables,
// applies defaults and validates them on startup so misconfiguration fails
// fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Samples  SamplesConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the chi Timeout middleware limit.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL settings. With no URL, account details
// are disabled and everything else keeps working.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" secret:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize is in bytes (default 100MB).
	MaxFileSize   int64         `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
	Timeout       time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit applies to upload and login endpoints.
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuthConfig holds login and session settings.
type AuthConfig struct {
	// LoginURL is the backend endpoint that checks credentials. Empty
	// disables login.
	LoginURL string `env:"AUTH_LOGIN_URL"`

	Timeout      time.Duration `env:"AUTH_TIMEOUT" default:"10s"`
	SessionTTL   time.Duration `env:"SESSION_TTL" default:"12h"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" default:"false"`

	// RequireLogin sends anonymous visitors to the login page.
	RequireLogin bool `env:"AUTH_REQUIRE_LOGIN" default:"false"`
}

// SamplesConfig selects where sample datasets come from. The embedded
// samples are used when neither Dir nor BaseURL is set.
type SamplesConfig struct {
	Dir          string        `env:"SAMPLES_DIR"`
	BaseURL      string        `env:"SAMPLES_BASE_URL"`
	FetchTimeout time.Duration `env:"SAMPLES_FETCH_TIMEOUT" default:"10s"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
