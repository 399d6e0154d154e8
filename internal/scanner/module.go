package scanner

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/indicator"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			indicator.NewPipeline,
			NewCache,
			func() *exchange.Client {
				return exchange.NewClient()
			},
			func(c *exchange.Client) exchange.MarketData {
				return c
			},
			exchange.NewWatcher,
		),
		fx.Provide(
			func(cfg *config.Config, market exchange.MarketData, cache *Cache, settings *store.Settings, sink Sink, watcher *exchange.Watcher) *Evaluator {
				if !cfg.Scanner.UseWebsocket {
					watcher = nil
				}
				return NewEvaluator(market, cache, settings, sink, watcher)
			},
			func(cfg *config.Config, e *Evaluator, settings *store.Settings) *Scheduler {
				return NewScheduler(e, settings, time.Duration(cfg.Scanner.IntervalSeconds)*time.Second)
			},
			func(cfg *config.Config, market exchange.MarketData, settings *store.Settings, sink Sink, sched *Scheduler) *PairListGenerator {
				return NewPairListGenerator(market, settings, sink, sched, cfg.Scanner.MaxPairs)
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, sched *Scheduler, settings *store.Settings, client *exchange.Client, watcher *exchange.Watcher) {
				streamCtx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if err := sched.RecoverActive(ctx); err != nil {
							logger.Error("scanner: recover active chats: %v", err)
						}
						if cfg.Scanner.UseWebsocket {
							go startStreams(streamCtx, settings, client, watcher)
						}
						return nil
					},
					OnStop: func(ctx context.Context) error {
						cancel()
						sched.Shutdown()
						return nil
					},
				})
			},
		),
	)
}

// startStreams opens one kline stream per timeframe covering the union of
// every active chat's pair list, feeding the freshness watcher.
func startStreams(ctx context.Context, settings *store.Settings, client *exchange.Client, watcher *exchange.Watcher) {
	tenants, err := settings.Tenants(ctx)
	if err != nil {
		logger.Error("scanner: stream setup: %v", err)
		return
	}

	pairsByTF := make(map[int]map[string]bool)
	for _, t := range tenants {
		set, missing, err := settings.Load(ctx, t)
		if err != nil || len(missing) > 0 {
			continue
		}
		for _, tf := range set.Timeframes {
			if pairsByTF[tf] == nil {
				pairsByTF[tf] = make(map[string]bool)
			}
			for _, p := range set.Pairs {
				pairsByTF[tf][p] = true
			}
		}
	}

	for tf, set := range pairsByTF {
		pairs := make([]string, 0, len(set))
		for p := range set {
			pairs = append(pairs, p)
		}
		go watcher.Run(ctx, client.WatchKlines(ctx, pairs, tf))
	}
}
