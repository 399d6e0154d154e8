package exchange

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/bennert/crypto-scanner/pkg/logger"
)

// ClosedBar is one finished candle delivered over the stream.
type ClosedBar struct {
	Pair      string
	Timeframe int
	ClosedAt  int64
	Close     float64
}

// WatchKlines opens one WebSocket per timeframe with the whole pair batch
// in a combined stream and emits every closed candle. Reconnects with a
// short backoff until ctx is cancelled.
func (c *Client) WatchKlines(ctx context.Context, pairs []string, timeframe int) <-chan ClosedBar {
	ch := make(chan ClosedBar)
	go func() {
		defer close(ch)

		if len(pairs) == 0 {
			return
		}

		interval := IntervalString(timeframe)
		streams := make([]string, 0, len(pairs))
		for _, p := range pairs {
			streams = append(streams, strings.ToLower(p)+"@kline_"+interval)
		}
		url := c.wsBase + "/stream?streams=" + strings.Join(streams, "/")

		for {
			logger.Info("[WS] connect kline_%s %d symbols", interval, len(pairs))
			conn, _, err := c.wsDialer.Dial(url, nil)
			if err != nil {
				logger.Error("[WS] dial error kline_%s: %v", interval, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			// the server pings us; answering pong keeps the session alive
			conn.SetPingHandler(func(appData string) error {
				return conn.WriteMessage(websocket.PongMessage, []byte(appData))
			})

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					logger.Error("[WS] read error kline_%s: %v", interval, err)
					_ = conn.Close()
					break
				}

				var frame struct {
					Data struct {
						Kline struct {
							Symbol string `json:"s"`
							// bar open time, the id candles carry everywhere else
							OpenTime int64  `json:"t"`
							Close    string `json:"c"`
							Final    bool   `json:"x"`
						} `json:"k"`
					} `json:"data"`
				}
				if err := sonic.Unmarshal(msg, &frame); err != nil {
					continue
				}
				k := frame.Data.Kline
				if !k.Final || k.Symbol == "" {
					continue // wait for the closed candle
				}
				closePrice, err := fieldFloat(k.Close)
				if err != nil || closePrice <= 0 {
					continue
				}

				select {
				case ch <- ClosedBar{Pair: k.Symbol, Timeframe: timeframe, ClosedAt: k.OpenTime, Close: closePrice}:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()
	return ch
}

// Watcher tracks the newest closed bar per (pair, timeframe) seen on the
// stream. It backs the cheap freshness probe of the signal cache without
// extra REST calls.
type Watcher struct {
	mu     sync.RWMutex
	latest map[watchKey]ClosedBar
}

type watchKey struct {
	pair      string
	timeframe int
}

func NewWatcher() *Watcher {
	return &Watcher{latest: make(map[watchKey]ClosedBar)}
}

// Run consumes a kline stream until ctx is done.
func (w *Watcher) Run(ctx context.Context, bars <-chan ClosedBar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-bars:
			if !ok {
				return
			}
			w.mu.Lock()
			key := watchKey{pair: bar.Pair, timeframe: bar.Timeframe}
			if prev, exists := w.latest[key]; !exists || bar.ClosedAt > prev.ClosedAt {
				w.latest[key] = bar
			}
			w.mu.Unlock()
		}
	}
}

// LastClosed reports the newest known close time for the pair and
// timeframe. ok is false when the stream has not delivered a bar yet.
func (w *Watcher) LastClosed(pair string, timeframe int) (closedAt int64, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bar, ok := w.latest[watchKey{pair: pair, timeframe: timeframe}]
	return bar.ClosedAt, ok
}
