// Package config provides centralized configuration management for the application.
// Settings come from built-in defaults, an optional YAML file and environment
// variables, in that order of precedence. All settings are validated on
// startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 5m)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"5m"`

	// WriteTimeout is the maximum duration for writing response (default: 5m)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds database connection settings.
// Sessions are kept in memory when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// IngestConfig holds file loading settings.
type IngestConfig struct {
	// StreamThreshold is the size at which files are parsed in chunks (default: 30MiB)
	StreamThreshold int64 `yaml:"stream_threshold" env:"INGEST_STREAM_THRESHOLD" default:"31457280"`

	// ChunkSize is the byte length of each streamed chunk (default: 10MiB)
	ChunkSize int64 `yaml:"chunk_size" env:"INGEST_CHUNK_SIZE" default:"10485760"`

	// CSVBatchSize is the number of rows per streamed batch (default: 4000)
	CSVBatchSize int `yaml:"csv_batch_size" env:"INGEST_CSV_BATCH_SIZE" default:"4000"`

	// MaxFileSize is the largest accepted file in bytes, 0 for no limit (default: 1GiB)
	MaxFileSize int64 `yaml:"max_file_size" env:"INGEST_MAX_FILE_SIZE" default:"1073741824"`

	// MaxFiles is the most files accepted in one request (default: 20)
	MaxFiles int `yaml:"max_files" env:"INGEST_MAX_FILES" default:"20"`

	// MaxConcurrent is the number of files of one request loaded in parallel (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" env:"INGEST_MAX_CONCURRENT" default:"4"`

	// MaxRequests is the number of load requests served at once (default: 5)
	MaxRequests int `yaml:"max_requests" env:"INGEST_MAX_REQUESTS" default:"5"`

	// MaxWaitTime is how long a request waits for a load slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"INGEST_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of one load request (default: 10m)
	Timeout time.Duration `yaml:"timeout" env:"INGEST_TIMEOUT" default:"10m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`

	// RateLimit is the number of requests allowed per client IP per
	// RateLimitWindow. Zero disables rate limiting (default: 100)
	RateLimit int `yaml:"rate_limit" env:"SECURITY_RATE_LIMIT" default:"100"`

	// RateLimitWindow is the rate limit window (default: 1m)
	RateLimitWindow time.Duration `yaml:"rate_limit_window" env:"SECURITY_RATE_LIMIT_WINDOW" default:"1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
