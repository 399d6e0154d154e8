package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/metrics"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

// fetchLimit is how many closed candles one evaluation pulls per pair.
// Enough for the EMA(200) trend filter with headroom.
const fetchLimit = 250

type seenKey struct {
	tenant    models.TenantID
	timeframe int
}

// Evaluator runs one scan pass for one chat: loads settings, walks the
// pair list per timeframe through the shared cache, classifies snapshots
// against the chat's trigger set and hands the result to the sink.
type Evaluator struct {
	market   exchange.MarketData
	cache    *Cache
	settings *store.Settings
	sink     Sink
	watcher  *exchange.Watcher // may be nil, then probes fall back to REST
	gate     func(models.TenantID) bool

	mu       sync.Mutex
	lastSeen map[seenKey]int64
	notices  map[models.TenantID]string
}

func NewEvaluator(market exchange.MarketData, cache *Cache, settings *store.Settings, sink Sink, watcher *exchange.Watcher) *Evaluator {
	return &Evaluator{
		market:   market,
		cache:    cache,
		settings: settings,
		sink:     sink,
		watcher:  watcher,
		lastSeen: make(map[seenKey]int64),
		notices:  make(map[models.TenantID]string),
	}
}

// SetDeliveryGate installs a check consulted right before anything is
// handed to the sink, so results of a pass finishing after the chat's
// job was stopped are discarded. Installed by the scheduler.
func (e *Evaluator) SetDeliveryGate(gate func(models.TenantID) bool) {
	e.gate = gate
}

func (e *Evaluator) deliverable(tenant models.TenantID) bool {
	return e.gate == nil || e.gate(tenant)
}

// notifyConfig tells the chat its configuration blocks scanning, once
// per distinct problem instead of every tick.
func (e *Evaluator) notifyConfig(ctx context.Context, tenant models.TenantID, msg string) {
	e.mu.Lock()
	repeat := e.notices[tenant] == msg
	e.notices[tenant] = msg
	e.mu.Unlock()
	if repeat || !e.deliverable(tenant) {
		return
	}
	if err := e.sink.SendText(ctx, tenant, msg); err != nil {
		logger.Error("evaluator: chat=%s notice: %v", tenant, err)
	}
}

func (e *Evaluator) clearConfigNotice(tenant models.TenantID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.notices, tenant)
}

func (e *Evaluator) seen(tenant models.TenantID, timeframe int) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen[seenKey{tenant: tenant, timeframe: timeframe}]
}

func (e *Evaluator) markSeen(tenant models.TenantID, timeframe int, closedAt int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := seenKey{tenant: tenant, timeframe: timeframe}
	if closedAt > e.lastSeen[key] {
		e.lastSeen[key] = closedAt
	}
}

// probeFor returns a cheap freshness probe for the pair and timeframe,
// backed by the kline stream when available.
func (e *Evaluator) probeFor(pair string, timeframe int) ProbeFunc {
	if e.watcher == nil {
		return nil
	}
	return func(ctx context.Context) (int64, bool) {
		return e.watcher.LastClosed(pair, timeframe)
	}
}

// latestCloseTime reports the newest closed-bar timestamp for a pair,
// preferring the stream and falling back to a two-candle fetch.
func (e *Evaluator) latestCloseTime(ctx context.Context, pair string, timeframe int) (int64, error) {
	if e.watcher != nil {
		if ts, ok := e.watcher.LastClosed(pair, timeframe); ok {
			return ts, nil
		}
	}
	candles, err := e.market.FetchOHLCV(ctx, pair, timeframe, 2)
	if err != nil {
		return 0, err
	}
	return models.LastTimestamp(candles), nil
}

// RunOnce executes a full evaluation pass for the chat.
func (e *Evaluator) RunOnce(ctx context.Context, tenant models.TenantID) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "evaluator.RunOnce")
	defer span.Finish()
	span.SetTag("chat", string(tenant))

	set, missing, err := e.settings.Load(ctx, tenant)
	if err != nil {
		return err
	}
	// a never-written pair list scans nothing, same as an empty one, and
	// a never-written trigger set is an empty trigger set
	var required []string
	for _, k := range missing {
		if k != models.KeyPairList && k != models.KeyTriggers {
			required = append(required, k)
		}
	}
	if len(required) > 0 {
		e.notifyConfig(ctx, tenant, fmt.Sprintf("⚠️ Scanning is on, but settings are missing: %s.", strings.Join(required, ", ")))
		return errors.Wrapf(ErrConfigIncomplete, "missing %v", required)
	}
	if len(set.Triggers) == 0 {
		e.notifyConfig(ctx, tenant, "⚠️ Scanning is on, but no trigger indicators are selected.")
		return ErrEmptyTriggerSet
	}
	e.clearConfigNotice(tenant)
	if len(set.Pairs) == 0 {
		return nil
	}

	metrics.TicksTotal.Inc()

	tickers := make(map[string]float64)
	for _, tf := range set.Timeframes {
		if err := e.evalTimeframe(ctx, tenant, set, tf, tickers); err != nil {
			// a broken timeframe must not stop the remaining ones
			logger.Error("evaluator: chat=%s tf=%dm: %v", tenant, tf, err)
		}
	}
	return nil
}

func (e *Evaluator) evalTimeframe(ctx context.Context, tenant models.TenantID, set *models.Settings, timeframe int, tickers map[string]float64) error {
	// nothing new on this timeframe since the last tick: skip it entirely
	latest, err := e.latestCloseTime(ctx, set.Pairs[0], timeframe)
	if err == nil && latest != 0 && latest == e.seen(tenant, timeframe) {
		return nil
	}

	report := models.Report{Timeframe: timeframe}
	var newest int64
	for _, pair := range set.Pairs {
		snap, err := e.cache.GetOrCompute(ctx, pair, timeframe,
			e.probeFor(pair, timeframe),
			func(ctx context.Context) ([]models.Candle, error) {
				return e.market.FetchOHLCV(ctx, pair, timeframe, fetchLimit)
			})
		if err != nil {
			// pair-level failures are logged and skipped, never fatal
			metrics.PairErrors.Inc()
			logger.Error("evaluator: chat=%s %s %dm: %v", tenant, pair, timeframe, err)
			continue
		}
		if snap.ClosedAt > newest {
			newest = snap.ClosedAt
		}

		cls := Classify(snap, set.Triggers, set.MinStochRSI)
		switch cls.Type {
		case models.SignalBuy:
			report.Buys = append(report.Buys, models.Signal{Snapshot: e.enrich(ctx, snap, tickers), Classification: cls})
			metrics.SignalsTotal.WithLabelValues(string(models.SignalBuy)).Inc()
		case models.SignalSell:
			report.Sells = append(report.Sells, models.Signal{Snapshot: e.enrich(ctx, snap, tickers), Classification: cls})
			metrics.SignalsTotal.WithLabelValues(string(models.SignalSell)).Inc()
		}
	}

	if newest != 0 {
		e.markSeen(tenant, timeframe, newest)
	}
	if len(report.Buys) == 0 && len(report.Sells) == 0 {
		return nil
	}
	if !e.deliverable(tenant) {
		return nil
	}
	return e.sink.SendReport(ctx, tenant, report)
}

// enrich copies the shared snapshot and fills in the 24h quote volume for
// delivery. Cached entries stay untouched. The memo lives for one pass, so
// a pair signalling on several timeframes costs one ticker fetch.
func (e *Evaluator) enrich(ctx context.Context, snap *models.Snapshot, tickers map[string]float64) *models.Snapshot {
	cp := *snap
	if vol, ok := tickers[snap.Pair]; ok {
		cp.QuoteVolumeM = vol
		return &cp
	}
	if t, err := e.market.FetchTicker(ctx, snap.Pair); err == nil {
		cp.QuoteVolumeM = t.QuoteVolume / 1e6
		tickers[snap.Pair] = cp.QuoteVolumeM
	}
	return &cp
}
