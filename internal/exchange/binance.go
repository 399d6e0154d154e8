package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
)

const (
	defaultRESTBase = "https://api.binance.com"
	defaultWSBase   = "wss://stream.binance.com:9443"

	// klineFetchCap is the exchange hard limit per klines request.
	klineFetchCap = 1000
)

// Client is the Binance spot market data client. Only public endpoints
// are used, no credentials involved.
type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer
	restBase string
	wsBase   string
}

type Option func(*Client)

// WithBaseURL points the client at a different REST endpoint, used by
// tests with httptest servers.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.restBase = base }
}

func WithWSBase(base string) Option {
	return func(c *Client) { c.wsBase = base }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		restBase: defaultRESTBase,
		wsBase:   defaultWSBase,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.restBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, errors.Wrapf(ErrNotFound, "http %d: %s", resp.StatusCode, string(rb))
	case resp.StatusCode/100 != 2:
		return nil, errors.Wrapf(ErrNetwork, "http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}

// ListSymbols returns every pair from exchange metadata with its trading
// status.
func (c *Client) ListSymbols(ctx context.Context) ([]Symbol, error) {
	rb, err := c.get(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	var wrap struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Status     string `json:"status"`
		} `json:"symbols"`
	}
	if err := sonic.Unmarshal(rb, &wrap); err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	res := make([]Symbol, 0, len(wrap.Symbols))
	for _, s := range wrap.Symbols {
		res = append(res, Symbol{
			Pair:       s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Active:     s.Status == "TRADING",
		})
	}
	return res, nil
}

type ticker24 struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
	OpenPrice   string `json:"openPrice"`
}

func (t ticker24) toTicker() Ticker {
	last, _ := strconv.ParseFloat(t.LastPrice, 64)
	vol, _ := strconv.ParseFloat(t.QuoteVolume, 64)
	open, _ := strconv.ParseFloat(t.OpenPrice, 64)
	return Ticker{Pair: t.Symbol, LastPrice: last, QuoteVolume: vol, OpenPrice: open}
}

// FetchTicker returns the rolling 24h statistic of one pair.
func (c *Client) FetchTicker(ctx context.Context, pair string) (Ticker, error) {
	q := url.Values{"symbol": {pair}}
	rb, err := c.get(ctx, "/api/v3/ticker/24hr", q)
	if err != nil {
		return Ticker{}, err
	}
	var t ticker24
	if err := sonic.Unmarshal(rb, &t); err != nil {
		return Ticker{}, errors.Wrap(ErrNetwork, err.Error())
	}
	return t.toTicker(), nil
}

// FetchOHLCV returns up to limit closed candles for pair at the given
// timeframe in minutes, oldest first. The trailing candle reported by the
// exchange is still forming and is dropped, so the last element is always
// a closed bar.
func (c *Client) FetchOHLCV(ctx context.Context, pair string, timeframe int, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > klineFetchCap {
		limit = klineFetchCap
	}
	q := url.Values{
		"symbol":   {pair},
		"interval": {IntervalString(timeframe)},
		// one extra row for the open candle we drop
		"limit": {fmt.Sprintf("%d", limit+1)},
	}
	rb, err := c.get(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, err
	}

	// kline row: [openTime,o,h,l,c,vol,closeTime,quoteVol,...]
	var rows [][]any
	if err := sonic.Unmarshal(rb, &rows); err != nil {
		return nil, errors.Wrap(ErrNetwork, err.Error())
	}
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, ok := row[0].(float64)
		if !ok {
			continue
		}
		cd := models.Candle{Timestamp: int64(ts)}
		if cd.Open, err = fieldFloat(row[1]); err != nil {
			continue
		}
		if cd.High, err = fieldFloat(row[2]); err != nil {
			continue
		}
		if cd.Low, err = fieldFloat(row[3]); err != nil {
			continue
		}
		if cd.Close, err = fieldFloat(row[4]); err != nil {
			continue
		}
		if cd.Volume, err = fieldFloat(row[5]); err != nil {
			continue
		}
		candles = append(candles, cd)
	}
	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no candles for %s %s", pair, IntervalString(timeframe))
	}
	// drop the still-forming bar
	candles = candles[:len(candles)-1]
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func fieldFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected kline field type %T", v)
	}
}
