package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// runtimeDependencies — хранилище, выбранное конфигурацией, и его проверка готовности.
type runtimeDependencies struct {
	repo           domain.OrderRepository
	store          *postgres.Store
	storageChecker health.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, registerer prometheus.Registerer) (*runtimeDependencies, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageDriver)) {
	case "", StorageDriverMemory:
		logger.Info("using in-memory order storage")
		return &runtimeDependencies{
			repo: memory.NewOrderRepository(),
			storageChecker: health.NewSimpleChecker("storage", func(context.Context) error {
				return nil
			}),
			closeFn: func() error { return nil },
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger, registerer)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry, registerer prometheus.Registerer) (*runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("postgres storage requires DATABASE_URL")
	}

	retry := defaultRetryConfig()
	if cfg.ConnectAttempts > 0 {
		retry.MaxAttempts = cfg.ConnectAttempts
	}
	if cfg.ConnectBackoff > 0 {
		retry.InitialDelay = cfg.ConnectBackoff
	}

	var store *postgres.Store
	err := retryWithBackoff(ctx, retry, logger, "postgres.open", func(ctx context.Context) error {
		opened, err := postgres.Open(ctx, postgres.PoolConfig{
			DSN:             cfg.PostgresDSN,
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
			MaxConnIdleTime: cfg.PoolMaxConnIdleTime,
		})
		if err != nil {
			return err
		}
		store = opened
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.SchemaBootstrap {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	if err := metrics.RegisterPoolCollector(registerer, poolStats(store)); err != nil {
		logger.WithError(err).Warn("failed to register pool metrics")
	}

	listMode := "count+page"
	if cfg.ListSnapshot {
		listMode = "snapshot"
	}
	logger.WithFields(log.Fields{
		"max_conns":       cfg.PoolMaxConns,
		"acquire_timeout": cfg.AcquireTimeout,
		"query_timeout":   cfg.QueryTimeout,
		"list_mode":       listMode,
	}).Info("using postgres order storage")

	repo := postgres.NewOrderRepository(store,
		postgres.WithAcquireTimeout(cfg.AcquireTimeout),
		postgres.WithQueryTimeout(cfg.QueryTimeout),
		postgres.WithSnapshotList(cfg.ListSnapshot),
	)

	return &runtimeDependencies{
		repo:           repo,
		store:          store,
		storageChecker: health.NewPingChecker("postgres", store),
		closeFn:        store.Close,
	}, nil
}

// poolStats переводит pgxpool.Stat в снимок для коллектора метрик.
func poolStats(store *postgres.Store) metrics.PoolStatsFunc {
	return func() (metrics.PoolStats, bool) {
		stat := store.Stat()
		if stat == nil {
			return metrics.PoolStats{}, false
		}
		return metrics.PoolStats{
			AcquiredConns:        stat.AcquiredConns(),
			IdleConns:            stat.IdleConns(),
			TotalConns:           stat.TotalConns(),
			MaxConns:             stat.MaxConns(),
			AcquireCount:         stat.AcquireCount(),
			EmptyAcquireCount:    stat.EmptyAcquireCount(),
			CanceledAcquireCount: stat.CanceledAcquireCount(),
			AcquireDuration:      stat.AcquireDuration(),
		}, true
	}
}
