package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spounge-ai/sysaudit/internal/changes"
	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/infra/persistence"
	"github.com/spounge-ai/sysaudit/internal/infra/secrets"
	"github.com/spounge-ai/sysaudit/internal/metrics"
	"github.com/spounge-ai/sysaudit/pkg/patterns/circuitbreaker"
)

// SecretGetter resolves a named secret.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// StoreDeps bundles the check store and the repository backing it. Callers
// own Repo and must Close it.
type StoreDeps struct {
	Store *changes.Store
	Repo  domain.CheckRepository
}

// ProvideCheckRepository opens the configured backend. When secrets is nil
// and the postgres URL lives in Parameter Store, an SSM client is built
// from the AWS configuration.
func ProvideCheckRepository(ctx context.Context, cfg *config.Config, secretGetter SecretGetter, m *metrics.Metrics, logger *slog.Logger) (domain.CheckRepository, error) {
	var repo domain.CheckRepository
	switch cfg.Persistence.Type {
	case "sqlite":
		sqliteRepo, err := persistence.NewSQLiteCheckRepository(cfg.Persistence.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		repo = sqliteRepo
	case "postgres":
		url, err := postgresURL(ctx, cfg, secretGetter)
		if err != nil {
			return nil, err
		}
		pool, err := persistence.NewConnectionPool(ctx, url, cfg.Persistence.Postgres, cfg.Server.Mode)
		if err != nil {
			return nil, err
		}
		repo = persistence.NewPostgresCheckRepository(pool, logger)
	default:
		return nil, fmt.Errorf("invalid persistence type %q: %w", cfg.Persistence.Type, app_errors.ErrConfig)
	}

	cb := cfg.Persistence.CircuitBreaker
	if !cb.Enabled {
		return repo, nil
	}
	return persistence.NewCircuitBreakerRepository(repo, cb.MaxFailures, cb.ResetTimeout, func(from, to circuitbreaker.State) {
		m.SetBreakerState(int(to))
		logger.Warn("check store circuit breaker changed state", "from", from.String(), "to", to.String())
	}), nil
}

func postgresURL(ctx context.Context, cfg *config.Config, secretGetter SecretGetter) (string, error) {
	name := cfg.Persistence.Postgres.URLParameter
	if name == "" {
		return cfg.Persistence.Postgres.URL, nil
	}
	if secretGetter == nil {
		awsCfg, err := LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return "", err
		}
		secretGetter = secrets.NewParameterStore(awsCfg)
	}
	url, err := secretGetter.GetSecret(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve database url: %w", err)
	}
	return url, nil
}

// ProvideStore builds the change-detection store on the configured backend.
func ProvideStore(ctx context.Context, cfg *config.Config, secretGetter SecretGetter, m *metrics.Metrics, logger *slog.Logger) (*StoreDeps, error) {
	repo, err := ProvideCheckRepository(ctx, cfg, secretGetter, m, logger)
	if err != nil {
		return nil, err
	}
	store, err := changes.NewStore(repo, logger, changes.WithMetrics(m))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return &StoreDeps{Store: store, Repo: repo}, nil
}
