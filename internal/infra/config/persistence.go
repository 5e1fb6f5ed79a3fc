package config

import "time"

// CircuitBreakerConfig holds settings for the persistence circuit breaker.
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxFailures  int           `mapstructure:"max_failures"  validate:"required_if=Enabled true,omitempty,gt=0"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// PersistenceConfig selects and configures the check store backend.
type PersistenceConfig struct {
	Type           string               `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	SQLite         SQLiteConfig         `mapstructure:"sqlite"`
	Postgres       PostgresConfig       `mapstructure:"postgres"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig configures the PostgreSQL backend. When URLParameter is
// set the connection URL is read from AWS Parameter Store instead of URL.
type PostgresConfig struct {
	URL          string             `mapstructure:"url"`
	URLParameter string             `mapstructure:"url_parameter"`
	Connection   DBConnectionConfig `mapstructure:"connection"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// DBConnectionConfig represents the database connection pool configuration.
type DBConnectionConfig struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// TLSConfig represents the database TLS configuration.
type TLSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
