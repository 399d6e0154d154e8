// Package exchange talks to the spot market data API: symbol metadata,
// 24h tickers, candle history over REST and closed-candle updates over
// WebSocket.
package exchange

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
)

var (
	// ErrNotFound marks a pair or endpoint the exchange does not know.
	ErrNotFound = errors.New("exchange: not found")
	// ErrNetwork marks transport failures and non-2xx replies worth retrying.
	ErrNetwork = errors.New("exchange: network error")
)

// Symbol describes one tradable pair from exchange metadata.
type Symbol struct {
	Pair       string
	BaseAsset  string
	QuoteAsset string
	Active     bool
}

// Ticker is the rolling 24h statistic of one pair.
type Ticker struct {
	Pair        string
	LastPrice   float64
	QuoteVolume float64
	OpenPrice   float64
}

// MarketData is the read-only port the scanner consumes. Implemented by
// Client; tests substitute fakes.
type MarketData interface {
	ListSymbols(ctx context.Context) ([]Symbol, error)
	FetchTicker(ctx context.Context, pair string) (Ticker, error)
	FetchOHLCV(ctx context.Context, pair string, timeframe int, limit int) ([]models.Candle, error)
}

// IntervalString maps a timeframe in minutes onto the exchange interval
// notation ("15m", "1h", "4h", "1d").
func IntervalString(timeframe int) string {
	switch {
	case timeframe >= 1440 && timeframe%1440 == 0:
		return fmt.Sprintf("%dd", timeframe/1440)
	case timeframe >= 60 && timeframe%60 == 0:
		return fmt.Sprintf("%dh", timeframe/60)
	default:
		return fmt.Sprintf("%dm", timeframe)
	}
}
