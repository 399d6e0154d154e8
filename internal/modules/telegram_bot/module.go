package telegram

import (
	"context"

	"go.uber.org/fx"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/modules/telegram_bot/service"
	"github.com/bennert/crypto-scanner/internal/scanner"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewOptions,
		),

		// nil when no token is configured, the bot is then disabled
		fx.Provide(
			func(cfg *config.Config, settings *store.Settings, options *service.Options) (*service.Telegram, error) {
				if cfg.Telegram.Token == "" {
					return nil, nil
				}
				return service.NewTelegram(cfg, settings, options)
			},
		),

		// adapter: *service.Telegram -> scanner.Sink, log fallback without a bot
		fx.Provide(
			func(t *service.Telegram) scanner.Sink {
				if t == nil {
					return scanner.NewLogSink()
				}
				return t
			},
		),

		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, sched *scanner.Scheduler, generator *scanner.PairListGenerator, market exchange.MarketData) {
				if t == nil {
					logger.Info("telegram: no token configured, bot disabled")
					return
				}
				t.Attach(sched, generator, market)
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						go func() {
							if err := t.Start(context.Background()); err != nil {
								logger.Error("telegram: update loop: %v", err)
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
