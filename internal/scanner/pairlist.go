package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/metrics"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

const (
	// DefaultMaxPairs bounds the generated pair list. Larger universes
	// need manual curation before scanning starts.
	DefaultMaxPairs = 200
	// progressEvery throttles user-visible progress notices.
	progressEvery = 10
	// excludedBase is skipped during discovery, a deprecated stablecoin.
	excludedBase = "BUSD"
)

// jobControl is the slice of the scheduler the generator needs: pausing a
// chat's job for the duration of a run.
type jobControl interface {
	Pause(tenant models.TenantID) bool
	Resume(tenant models.TenantID)
}

// PairListGenerator discovers the tradable pairs of a chat: every active
// symbol quoted in the chat's base coin whose 24h quote volume exceeds the
// configured minimum. At most one run per chat may be in flight.
type PairListGenerator struct {
	market   exchange.MarketData
	settings *store.Settings
	sink     Sink
	jobs     jobControl
	maxPairs int

	mu       sync.Mutex
	inFlight map[models.TenantID]bool
}

func NewPairListGenerator(market exchange.MarketData, settings *store.Settings, sink Sink, jobs jobControl, maxPairs int) *PairListGenerator {
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	return &PairListGenerator{
		market:   market,
		settings: settings,
		sink:     sink,
		jobs:     jobs,
		maxPairs: maxPairs,
		inFlight: make(map[models.TenantID]bool),
	}
}

// Trigger starts one generation run for the chat. The returned channel
// receives the run's outcome exactly once and is then closed. A second
// trigger while a run is in flight fails with ErrConcurrentPairListUpdate.
// The chat's scan job is paused before the first network call and restored
// to its prior state when the run finishes, success or not; a start
// request arriving mid-run is held until then.
func (g *PairListGenerator) Trigger(ctx context.Context, tenant models.TenantID) (<-chan error, error) {
	g.mu.Lock()
	if g.inFlight[tenant] {
		g.mu.Unlock()
		return nil, ErrConcurrentPairListUpdate
	}
	g.inFlight[tenant] = true
	g.mu.Unlock()

	metrics.PairListRuns.Inc()
	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer func() {
			g.mu.Lock()
			delete(g.inFlight, tenant)
			g.mu.Unlock()
		}()
		done <- g.run(ctx, tenant)
	}()
	return done, nil
}

func (g *PairListGenerator) run(ctx context.Context, tenant models.TenantID) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pairlist.run")
	defer span.Finish()
	span.SetTag("chat", string(tenant))

	set, missing, err := g.settings.Load(ctx, tenant)
	if err != nil {
		return err
	}
	for _, k := range missing {
		if k == models.KeyExchange || k == models.KeyBaseCoin || k == models.KeyMinQuoteVolume {
			return errors.Wrapf(ErrConfigIncomplete, "missing %s", k)
		}
	}

	g.jobs.Pause(tenant)
	// Resume also releases the update hold for chats that were not
	// running, otherwise a deferred start would never take effect
	defer g.jobs.Resume(tenant)

	symbols, err := g.market.ListSymbols(ctx)
	if err != nil {
		return err
	}

	candidates := make([]exchange.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if !s.Active || s.QuoteAsset != set.BaseCoin || s.BaseAsset == excludedBase {
			continue
		}
		candidates = append(candidates, s)
	}
	logger.Info("pairlist: chat=%s %d candidates quoted in %s", tenant, len(candidates), set.BaseCoin)

	pairs := make([]string, 0, len(candidates))
	for i, s := range candidates {
		if (i+1)%progressEvery == 0 {
			_ = g.sink.SendText(ctx, tenant, fmt.Sprintf("Checking pair %d of %d...", i+1, len(candidates)))
		}
		ticker, err := g.market.FetchTicker(ctx, s.Pair)
		if err != nil {
			// one unfetchable symbol must not sink the whole run
			logger.Error("pairlist: chat=%s %s: %v", tenant, s.Pair, err)
			continue
		}
		if ticker.QuoteVolume > set.MinQuoteVolume {
			pairs = append(pairs, s.Pair)
		}
	}

	// persist even an oversized list so the user can curate it manually
	if err := g.settings.SetPairList(ctx, tenant, pairs); err != nil {
		return err
	}
	logger.Info("pairlist: chat=%s %d pairs kept", tenant, len(pairs))

	if len(pairs) > g.maxPairs {
		return errors.Wrapf(ErrPairListTooLarge, "%d pairs, max %d", len(pairs), g.maxPairs)
	}
	return nil
}

// InFlight reports whether a run is active for the chat.
func (g *PairListGenerator) InFlight(tenant models.TenantID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[tenant]
}
