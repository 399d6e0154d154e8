package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/internal/metrics"
	telegram "github.com/bennert/crypto-scanner/internal/modules/telegram_bot"
	"github.com/bennert/crypto-scanner/internal/scanner"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
	"github.com/bennert/crypto-scanner/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("crypto-scanner")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		store.Module(),
		scanner.Module(),
		telegram.Module(),
		metrics.Module(),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) error {
				if cfg.Jaeger.Host == "" {
					return nil
				}
				_, closeTracer, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				})
				if err != nil {
					return err
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						closeTracer()
						return nil
					},
				})
				return nil
			},
		),
	)
	app.Run()
}
