package scanner

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/store"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// 55 flat bars then a crash, enough history for every indicator and all
// four buy flags set on the last bar.
func crashCandles() []models.Candle {
	closes := make([]float64, 0, 60)
	for i := 0; i < 55; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 90, 86, 83, 81, 78)

	candles := make([]models.Candle, len(closes))
	prev := closes[0]
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: int64(1700000000000 + i*60_000),
			Open:      prev,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
		prev = c
	}
	return candles
}

type fakeMarket struct {
	mu      sync.Mutex
	symbols []exchange.Symbol
	tickers map[string]exchange.Ticker
	candles map[string][]models.Candle
	errs    map[string]error

	fullFetches   map[string]int
	probeFetches  int
	tickerFetches int
	listCalls     int
	events       *eventLog     // optional, shared with fakeJobControl
	listGate     chan struct{} // optional, blocks ListSymbols until closed
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		tickers:     make(map[string]exchange.Ticker),
		candles:     make(map[string][]models.Candle),
		errs:        make(map[string]error),
		fullFetches: make(map[string]int),
	}
}

func (f *fakeMarket) ListSymbols(ctx context.Context) ([]exchange.Symbol, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.events != nil {
		f.events.add("list")
	}
	if f.listGate != nil {
		<-f.listGate
	}
	return f.symbols, nil
}

func (f *fakeMarket) FetchTicker(ctx context.Context, pair string) (exchange.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerFetches++
	t, ok := f.tickers[pair]
	if !ok {
		return exchange.Ticker{}, exchange.ErrNotFound
	}
	return t, nil
}

func (f *fakeMarket) tickerFetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickerFetches
}

func (f *fakeMarket) FetchOHLCV(ctx context.Context, pair string, timeframe int, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[pair]; err != nil {
		return nil, err
	}
	c, ok := f.candles[pair]
	if !ok {
		return nil, exchange.ErrNotFound
	}
	if limit == 2 {
		// freshness probe
		f.probeFetches++
		if len(c) > 2 {
			c = c[len(c)-2:]
		}
		return c, nil
	}
	f.fullFetches[pair]++
	return c, nil
}

func (f *fakeMarket) fullFetchCount(pair string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullFetches[pair]
}

var _ exchange.MarketData = (*fakeMarket)(nil)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeJobControl struct {
	events    *eventLog
	running   bool
	pausedRun bool
}

func (f *fakeJobControl) Pause(tenant models.TenantID) bool {
	f.events.add("pause")
	was := f.running
	f.running = false
	f.pausedRun = was
	return was
}

// Resume restores only what Pause suspended, like the scheduler does.
func (f *fakeJobControl) Resume(tenant models.TenantID) {
	f.events.add("resume")
	if f.pausedRun {
		f.running = true
		f.pausedRun = false
	}
}

type recordSink struct {
	mu      sync.Mutex
	reports []models.Report
	texts   []string
}

func (s *recordSink) SendReport(ctx context.Context, tenant models.TenantID, report models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *recordSink) SendText(ctx context.Context, tenant models.TenantID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return nil
}

func (s *recordSink) reportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// newSettings returns an empty in-memory settings store.
func newSettings() *store.Settings {
	return store.NewSettings(store.NewMemory())
}

// seedTenant configures everything a chat needs to scan.
func seedTenant(t *testing.T, s *store.Settings, tenant models.TenantID, pairs []string) {
	t.Helper()
	ctx := context.Background()
	for _, err := range []error{
		s.SetExchange(ctx, tenant, "binance"),
		s.SetBaseCoin(ctx, tenant, "USDT"),
		s.SetMinQuoteVolume(ctx, tenant, 1_000_000),
		s.SetTimeframes(ctx, tenant, []int{5}),
		s.SetTriggers(ctx, tenant, []models.Indicator{
			models.IndicatorRSI, models.IndicatorStoch, models.IndicatorStochRSI, models.IndicatorBB,
		}),
		s.SetPairList(ctx, tenant, pairs),
	} {
		if err != nil {
			t.Fatalf("seed settings: %v", err)
		}
	}
}
