package scanner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/indicator"
	"github.com/bennert/crypto-scanner/internal/models"
)


func TestEvaluatorRunOnce(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1001")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{"GOODUSDT", "SHORTUSDT"})

	market.candles["GOODUSDT"] = crashCandles()
	market.candles["SHORTUSDT"] = crashCandles()[:10] // not enough history
	market.tickers["GOODUSDT"] = exchange.Ticker{Pair: "GOODUSDT", QuoteVolume: 5_000_000}

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))

	// the short pair is skipped, the good one produces a buy
	require.Equal(t, 1, sink.reportCount())
	report := sink.reports[0]
	assert.Equal(t, 5, report.Timeframe)
	require.Len(t, report.Buys, 1)
	assert.Empty(t, report.Sells)
	assert.Equal(t, "GOODUSDT", report.Buys[0].Snapshot.Pair)
	assert.Equal(t, models.SignalBuy, report.Buys[0].Classification.Type)

	// 24h volume is filled in on delivery, in millions
	assert.InDelta(t, 5.0, report.Buys[0].Snapshot.QuoteVolumeM, 0.0001)
}

func TestEvaluatorSkipsUnchangedTimeframe(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1002")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{"GOODUSDT"})
	market.candles["GOODUSDT"] = crashCandles()

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))
	require.NoError(t, ev.RunOnce(ctx, tenant))

	// no new bar closed between the ticks: one full fetch, one report
	assert.Equal(t, 1, market.fullFetches["GOODUSDT"])
	assert.Equal(t, 1, sink.reportCount())
	assert.GreaterOrEqual(t, market.probeFetches, 1)
}

func TestEvaluatorConfigIncomplete(t *testing.T) {
	ev := NewEvaluator(newFakeMarket(), NewCache(indicator.NewPipeline()), newSettings(), &recordSink{}, nil)
	err := ev.RunOnce(context.Background(), "1003")
	assert.True(t, errors.Is(err, ErrConfigIncomplete))
}

func TestEvaluatorEmptyTriggerSet(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1004")

	market := newFakeMarket()
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{"GOODUSDT"})
	require.NoError(t, settings.SetTriggers(ctx, tenant, []models.Indicator{}))

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, &recordSink{}, nil)
	err := ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrEmptyTriggerSet))
}

func TestEvaluatorEmptyPairListIsIdle(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1005")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{})

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))
	assert.Zero(t, sink.reportCount())
	assert.Empty(t, market.fullFetches)
}

func TestEvaluatorMissingPairListIsIdle(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1007")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	// everything configured except a pair list: the chat simply has
	// nothing to scan yet
	require.NoError(t, settings.SetExchange(ctx, tenant, "binance"))
	require.NoError(t, settings.SetBaseCoin(ctx, tenant, "USDT"))
	require.NoError(t, settings.SetMinQuoteVolume(ctx, tenant, 1_000_000))
	require.NoError(t, settings.SetTimeframes(ctx, tenant, []int{5}))
	require.NoError(t, settings.SetTriggers(ctx, tenant, []models.Indicator{models.IndicatorRSI}))

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))
	require.NoError(t, ev.RunOnce(ctx, tenant))

	assert.Zero(t, sink.reportCount())
	assert.Empty(t, sink.texts)
	assert.Empty(t, market.fullFetches)
}

func TestEvaluatorNotifiesBrokenConfigOnce(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1008")

	sink := &recordSink{}
	settings := newSettings()
	ev := NewEvaluator(newFakeMarket(), NewCache(indicator.NewPipeline()), settings, sink, nil)

	// missing required settings: one notice, not one per tick
	err := ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrConfigIncomplete))
	require.Len(t, sink.texts, 1)

	err = ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrConfigIncomplete))
	assert.Len(t, sink.texts, 1)

	// the problem changes: a new, different notice goes out once
	seedTenant(t, settings, tenant, []string{})
	require.NoError(t, settings.SetTriggers(ctx, tenant, []models.Indicator{}))

	err = ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrEmptyTriggerSet))
	require.Len(t, sink.texts, 2)

	err = ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrEmptyTriggerSet))
	assert.Len(t, sink.texts, 2)

	// config fixed, then broken again: the notice fires again
	require.NoError(t, settings.SetTriggers(ctx, tenant, []models.Indicator{models.IndicatorRSI}))
	require.NoError(t, ev.RunOnce(ctx, tenant))
	require.NoError(t, settings.SetTriggers(ctx, tenant, []models.Indicator{}))
	err = ev.RunOnce(ctx, tenant)
	assert.True(t, errors.Is(err, ErrEmptyTriggerSet))
	assert.Len(t, sink.texts, 3)
}

func TestEvaluatorTickerFetchedOncePerPass(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1009")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{"GOODUSDT"})
	require.NoError(t, settings.SetTimeframes(ctx, tenant, []int{5, 15}))

	market.candles["GOODUSDT"] = crashCandles()
	market.tickers["GOODUSDT"] = exchange.Ticker{Pair: "GOODUSDT", QuoteVolume: 5_000_000}

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))

	// the pair signals on both timeframes, the 24h ticker is shared
	require.Equal(t, 2, sink.reportCount())
	assert.Equal(t, 1, market.tickerFetchCount())
	for _, report := range sink.reports {
		require.Len(t, report.Buys, 1)
		assert.InDelta(t, 5.0, report.Buys[0].Snapshot.QuoteVolumeM, 0.0001)
	}
}

func TestEvaluatorPairErrorDoesNotAbortPass(t *testing.T) {
	ctx := context.Background()
	tenant := models.TenantID("1006")

	market := newFakeMarket()
	sink := &recordSink{}
	settings := newSettings()
	seedTenant(t, settings, tenant, []string{"DEADUSDT", "GOODUSDT"})

	market.errs["DEADUSDT"] = exchange.ErrNetwork
	market.candles["GOODUSDT"] = crashCandles()

	ev := NewEvaluator(market, NewCache(indicator.NewPipeline()), settings, sink, nil)
	require.NoError(t, ev.RunOnce(ctx, tenant))

	require.Equal(t, 1, sink.reportCount())
	require.Len(t, sink.reports[0].Buys, 1)
	assert.Equal(t, "GOODUSDT", sink.reports[0].Buys[0].Snapshot.Pair)
}
