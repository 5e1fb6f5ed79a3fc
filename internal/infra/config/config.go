package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	customvalidator "github.com/spounge-ai/sysaudit/pkg/validator"
)

const envPrefix = "SYSAUDIT"

type Config struct {
	Log            LogConfig         `mapstructure:"log"`
	Audit          AuditConfig       `mapstructure:"audit"`
	Persistence    PersistenceConfig `mapstructure:"persistence"`
	Server         ServerConfig      `mapstructure:"server"`
	AWS            AWSConfig         `mapstructure:"aws"`
	NATS           NATSConfig        `mapstructure:"nats"`
	ServiceVersion string
	BuildCommit    string
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"oratab":           "audit.oratab",
	"output":           "audit.output",
	"max-audit-files":  "audit.max_audit_files",
	"limit-audit-rows": "audit.limit_audit_rows",
	"concurrency":      "audit.concurrency",
	"rules":            "audit.rules_file",
	"schedule":         "audit.schedule",
	"submit-url":       "audit.submit.url",
	"port":             "server.port",
	"store":            "persistence.type",
	"sqlite-path":      "persistence.sqlite.path",
	"database-url":     "persistence.postgres.url",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "text")

	vip.SetDefault("audit.oratab", "/etc/oratab")
	vip.SetDefault("audit.output", "/tmp/sys_audit_findings.csv")
	vip.SetDefault("audit.max_audit_files", 500)
	vip.SetDefault("audit.limit_audit_rows", 200)
	vip.SetDefault("audit.concurrency", 4)
	vip.SetDefault("audit.query_timeout", 60*time.Second)
	vip.SetDefault("audit.host_timeout", 5*time.Minute)
	vip.SetDefault("audit.sqlplus_path", "sqlplus")
	vip.SetDefault("audit.file_suffixes", []string{".aud", ".log"})
	vip.SetDefault("audit.principal", "SYS")
	vip.SetDefault("audit.rules_file", "")
	vip.SetDefault("audit.schedule", "")
	vip.SetDefault("audit.submit.enabled", false)
	vip.SetDefault("audit.submit.url", "")
	vip.SetDefault("audit.submit.hostname", "")
	vip.SetDefault("audit.submit.timeout", 15*time.Second)

	vip.SetDefault("persistence.type", "sqlite")
	vip.SetDefault("persistence.sqlite.path", "central.db")
	vip.SetDefault("persistence.postgres.url", "")
	vip.SetDefault("persistence.postgres.url_parameter", "")
	vip.SetDefault("persistence.postgres.connection.max_conns", 10)
	vip.SetDefault("persistence.postgres.connection.min_conns", 1)
	vip.SetDefault("persistence.postgres.connection.max_conn_lifetime", time.Hour)
	vip.SetDefault("persistence.postgres.connection.max_conn_idle_time", 30*time.Minute)
	vip.SetDefault("persistence.postgres.connection.health_check_period", time.Minute)
	vip.SetDefault("persistence.postgres.tls.enabled", false)
	vip.SetDefault("persistence.circuit_breaker.enabled", true)
	vip.SetDefault("persistence.circuit_breaker.max_failures", 5)
	vip.SetDefault("persistence.circuit_breaker.reset_timeout", 30*time.Second)

	vip.SetDefault("server.port", 8000)
	vip.SetDefault("server.mode", "development")
	vip.SetDefault("server.read_timeout", 15*time.Second)
	vip.SetDefault("server.write_timeout", 30*time.Second)
	vip.SetDefault("server.shutdown_timeout", 10*time.Second)
	vip.SetDefault("server.max_body_bytes", 8<<20)
	vip.SetDefault("server.rate_limiter.enabled", true)
	vip.SetDefault("server.rate_limiter.rate", 5.0)
	vip.SetDefault("server.rate_limiter.burst", 20)
	vip.SetDefault("server.tls.enabled", false)

	vip.SetDefault("aws.enabled", false)
	vip.SetDefault("aws.region", "")
	vip.SetDefault("aws.s3_bucket", "")
	vip.SetDefault("aws.s3_prefix", "sysaudit/reports")

	vip.SetDefault("nats.enabled", false)
	vip.SetDefault("nats.url", "")
	vip.SetDefault("nats.subject", "sysaudit.ledgers")
}

// Load reads configuration from path (or ./configs/config.yaml), the
// SYSAUDIT_* environment and any flags in fs that were set explicitly.
// Validation failures wrap ErrConfig.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if fs != nil {
		for name, key := range flagKeys {
			if flag := fs.Lookup(name); flag != nil {
				if err := vip.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w: %w", app_errors.ErrConfig, err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w: %w", app_errors.ErrConfig, err)
	}

	validate := validator.New()
	if err := customvalidator.RegisterCustomValidators(validate); err != nil {
		return nil, fmt.Errorf("failed to register custom validators: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w: %w", app_errors.ErrConfig, err)
	}
	if err := cfg.validateCrossField(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w: %w", app_errors.ErrConfig, err)
	}

	cfg.ServiceVersion = getenv("SYSAUDIT_SERVICE_VERSION", "unknown")
	cfg.BuildCommit = getenv("SYSAUDIT_BUILD_COMMIT", "unknown")

	return &cfg, nil
}

func (c *Config) validateCrossField() error {
	if c.Persistence.Type == "postgres" && c.Persistence.Postgres.URL == "" && c.Persistence.Postgres.URLParameter == "" {
		return fmt.Errorf("persistence.postgres.url or persistence.postgres.url_parameter is required")
	}
	if c.Persistence.Postgres.URLParameter != "" && !c.AWS.Enabled {
		return fmt.Errorf("persistence.postgres.url_parameter requires aws.enabled")
	}
	if c.Server.Mode == "production" && c.Persistence.Type == "postgres" && !c.Persistence.Postgres.TLS.Enabled {
		return fmt.Errorf("database connection must use TLS in production mode")
	}
	return nil
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// getenv returns an environment variable or a default value.
func getenv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
