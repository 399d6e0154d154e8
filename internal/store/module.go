package store

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/pkg/db"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config, lc fx.Lifecycle) (Store, error) {
				if cfg.DB == "" {
					logger.Info("store: no db_dsn configured, using in-memory store")
					return NewMemory(), nil
				}
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}
				if err := poolMaster.Ping(ctx); err != nil {
					return nil, err
				}
				txm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						txm.Close()
						return nil
					},
				})
				return NewPg(txm), nil
			},
		),
		fx.Provide(
			NewSettings, // func(Store) *Settings
		),
	)
}
