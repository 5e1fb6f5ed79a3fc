package config

import "time"

// ServerConfig represents the check store HTTP server configuration.
type ServerConfig struct {
	Port            int               `mapstructure:"port"             validate:"required,gte=1024,lte=65535"`
	Mode            string            `mapstructure:"mode"             validate:"required,oneof=development production"`
	ReadTimeout     time.Duration     `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration     `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64             `mapstructure:"max_body_bytes"   validate:"gt=0"`
	RateLimiter     RateLimiterConfig `mapstructure:"rate_limiter"`
	TLS             ServerTLSConfig   `mapstructure:"tls"`
}

// ServerTLSConfig enables HTTPS, optionally with client certificates.
type ServerTLSConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CertFile     string `mapstructure:"cert_file"      validate:"required_if=Enabled true"`
	KeyFile      string `mapstructure:"key_file"       validate:"required_if=Enabled true"`
	ClientCAFile string `mapstructure:"client_ca_file"`
	ClientAuth   string `mapstructure:"client_auth"    validate:"omitempty,oneof=NoClientCert RequestClientCert RequireAnyClientCert VerifyClientCertIfGiven RequireAndVerifyClientCert"`
}

// RateLimiterConfig holds the per-client limit applied to submissions.
type RateLimiterConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"  validate:"required_if=Enabled true,omitempty,gt=0"`
	Burst   int     `mapstructure:"burst" validate:"required_if=Enabled true,omitempty,gt=0"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}
