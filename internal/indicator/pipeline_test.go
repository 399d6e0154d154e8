package indicator

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bennert/crypto-scanner/internal/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
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

// 55 flat bars then a five-bar crash: every buy condition fires at once.
func crashCloses() []float64 {
	closes := make([]float64, 0, 60)
	for i := 0; i < 55; i++ {
		closes = append(closes, 100)
	}
	return append(closes, 90, 86, 83, 81, 78)
}

// a slow drift down then a five-bar spike: every sell condition fires.
func spikeCloses() []float64 {
	closes := make([]float64, 0, 60)
	for i := 0; i < 55; i++ {
		closes = append(closes, 105.4-0.1*float64(i))
	}
	return append(closes, 110, 114, 117, 119, 122)
}

func TestPipelineComputeBuy(t *testing.T) {
	candles := candlesFromCloses(crashCloses())
	snap, err := NewPipeline().Compute(candles, models.DefaultMinStochRSI)
	require.NoError(t, err)

	assert.Equal(t, candles[len(candles)-1].Timestamp, snap.ClosedAt)
	assert.InDelta(t, 78.0, snap.Close, 0.0001)

	assert.InDelta(t, 0.0, snap.RSI, 0.01)
	assert.InDelta(t, 4.17, snap.StochK, 0.01)
	assert.InDelta(t, 4.73, snap.StochD, 0.01)
	assert.InDelta(t, 0.0, snap.StochRSIK, 0.01)
	assert.InDelta(t, 0.0, snap.StochRSID, 0.01)
	assert.InDelta(t, 95.90, snap.BBMid, 0.01)
	assert.InDelta(t, 81.11, snap.BBLow, 0.01)
	assert.InDelta(t, 110.69, snap.BBHigh, 0.01)
	assert.InDelta(t, 30.85, snap.BBWidth, 0.01)
	assert.InDelta(t, -4.44, snap.MACDValue, 0.01)
	assert.InDelta(t, -2.04, snap.MACDSignal, 0.01)

	assert.True(t, snap.RSIBuy)
	assert.True(t, snap.StochBuy)
	assert.True(t, snap.StochRSIBuy)
	assert.True(t, snap.BBBuy)
	assert.False(t, snap.RSISell)
	assert.False(t, snap.StochSell)
	assert.False(t, snap.StochRSISell)
	assert.False(t, snap.BBSell)

	// day change against the first open of the series
	assert.InDelta(t, -22.0, snap.ChangeDay, 0.0001)
	assert.InDelta(t, -22.0, snap.ChangeDayPerc, 0.0001)
}

func TestPipelineComputeSell(t *testing.T) {
	candles := candlesFromCloses(spikeCloses())
	snap, err := NewPipeline().Compute(candles, models.DefaultMinStochRSI)
	require.NoError(t, err)

	assert.True(t, snap.RSISell)
	assert.True(t, snap.StochSell)
	assert.True(t, snap.StochRSISell)
	assert.True(t, snap.BBSell)
	assert.False(t, snap.RSIBuy)
	assert.False(t, snap.StochBuy)
	assert.False(t, snap.StochRSIBuy)
	assert.False(t, snap.BBBuy)

	assert.InDelta(t, 94.94, snap.RSI, 0.01)
	assert.InDelta(t, 95.83, snap.StochK, 0.01)
	assert.InDelta(t, 100.0, snap.StochRSIK, 0.01)
}

func TestPipelineComputeDeterministic(t *testing.T) {
	candles := candlesFromCloses(crashCloses())
	p := NewPipeline()

	a, err := p.Compute(candles, models.DefaultMinStochRSI)
	require.NoError(t, err)
	b, err := p.Compute(candles, models.DefaultMinStochRSI)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelineComputeInsufficientData(t *testing.T) {
	candles := candlesFromCloses([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	_, err := NewPipeline().Compute(candles, models.DefaultMinStochRSI)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestPipelineStochRSIFloor(t *testing.T) {
	candles := candlesFromCloses(crashCloses())

	// floor 0 makes the strict < comparison unreachable for a zero reading
	snap, err := NewPipeline().Compute(candles, 0)
	require.NoError(t, err)
	assert.False(t, snap.StochRSIBuy)

	snap, err = NewPipeline().Compute(candles, 0.5)
	require.NoError(t, err)
	assert.True(t, snap.StochRSIBuy)
}

func TestSignalThresholds(t *testing.T) {
	t.Run("rsi strict at 30 and 70", func(t *testing.T) {
		for _, tc := range []struct {
			value     float64
			buy, sell bool
		}{
			{value: 29.99, buy: true},
			{value: 30.0},
			{value: 30.01},
			{value: 50.0},
			{value: 70.0},
			{value: 70.01, sell: true},
		} {
			buy, sell := rsiSignals(tc.value)
			assert.Equal(t, tc.buy, buy, "rsi=%v buy", tc.value)
			assert.Equal(t, tc.sell, sell, "rsi=%v sell", tc.value)
		}
	})

	t.Run("stoch needs both lines beyond the band", func(t *testing.T) {
		for _, tc := range []struct {
			k, d      float64
			buy, sell bool
		}{
			{k: 19.9, d: 19.9, buy: true},
			{k: 20.0, d: 19.9},
			{k: 19.9, d: 20.0},
			{k: 80.1, d: 80.1, sell: true},
			{k: 80.0, d: 80.1},
			{k: 80.1, d: 80.0},
		} {
			buy, sell := stochSignals(tc.k, tc.d)
			assert.Equal(t, tc.buy, buy, "k=%v d=%v buy", tc.k, tc.d)
			assert.Equal(t, tc.sell, sell, "k=%v d=%v sell", tc.k, tc.d)
		}
	})

	t.Run("stochrsi buy bound is per chat", func(t *testing.T) {
		buy, _ := stochRSISignals(9.9, 9.9, 10)
		assert.True(t, buy)
		buy, _ = stochRSISignals(10.0, 9.9, 10)
		assert.False(t, buy)
		_, sell := stochRSISignals(80.1, 80.1, 10)
		assert.True(t, sell)
		_, sell = stochRSISignals(80.0, 80.0, 10)
		assert.False(t, sell)
	})

	t.Run("bollinger touch counts", func(t *testing.T) {
		buy, sell := bbSignals(95, 95, 105)
		assert.True(t, buy)
		assert.False(t, sell)
		buy, sell = bbSignals(105, 95, 105)
		assert.False(t, buy)
		assert.True(t, sell)
		buy, sell = bbSignals(100, 95, 105)
		assert.False(t, buy)
		assert.False(t, sell)
	})
}

func TestPipelineEMA200(t *testing.T) {
	closes := make([]float64, 220)
	for i := range closes {
		closes[i] = 50 + 0.1*float64(i%7)
	}
	snap, err := NewPipeline().Compute(candlesFromCloses(closes), models.DefaultMinStochRSI)
	require.NoError(t, err)
	assert.Greater(t, snap.EMA200, 0.0)

	short, err := NewPipeline().Compute(candlesFromCloses(closes[:100]), models.DefaultMinStochRSI)
	require.NoError(t, err)
	assert.Zero(t, short.EMA200)
}
