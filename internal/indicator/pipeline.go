package indicator

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
)

// Standard parameterisation of the evaluated indicators.
const (
	BBWindow       = 20
	BBDeviations   = 2.0
	StochWindow    = 14
	StochSmooth    = 3
	RSIPeriod      = 14
	StochRSIWindow = 14
	StochRSISmooth = 3
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignal     = 9
	EMATrendPeriod = 200

	// MinBars is the shortest closed-candle series the pipeline accepts.
	// MACD(12,26,9) is the hungriest consumer: its signal line needs
	// MACDSlow+MACDSignal-1 bars.
	MinBars = MACDSlow + MACDSignal - 1

	buyThreshold  = 30.0
	sellThreshold = 70.0
	oscLow        = 20.0
	oscHigh       = 80.0
)

// Pipeline computes the full indicator snapshot for one closed-candle
// series. It is stateless and safe for concurrent use.
type Pipeline struct{}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Compute evaluates every indicator over the given closed candles and
// returns the snapshot of the last bar with buy/sell flags set per the
// strict thresholds. The caller fills in pair, timeframe and quote volume.
// minStochRSI is the per-tenant lower bound for the Stochastic RSI buy flag.
func (p *Pipeline) Compute(candles []models.Candle, minStochRSI float64) (snap *models.Snapshot, err error) {
	if len(candles) < MinBars {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d closed candles, have %d", MinBars, len(candles))
	}

	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	last := n - 1
	lastClose := closes[last]

	bb, err := CalculateBollinger(closes, BBWindow, BBDeviations)
	if err != nil {
		return nil, err
	}
	stoch, err := CalculateStochastic(highs, lows, closes, StochWindow, StochSmooth)
	if err != nil {
		return nil, err
	}
	stochRSI, err := CalculateStochRSI(closes, StochRSIWindow, StochRSISmooth, StochRSISmooth)
	if err != nil {
		return nil, err
	}
	macd, err := CalculateMACD(closes, MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		return nil, err
	}
	rsi := CalculateRSI(closes, RSIPeriod)
	if rsi == nil {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d closed candles, have %d", RSIPeriod, n)
	}

	snap = &models.Snapshot{
		ClosedAt:   candles[last].Timestamp,
		Close:      lastClose,
		BBMid:      bb.Mid[last],
		BBHigh:     bb.High[last],
		BBLow:      bb.Low[last],
		BBWidth:    bb.Width[last],
		StochK:     stoch.K[last],
		StochD:     stoch.D[last],
		StochRSIK:  stochRSI.K[last],
		StochRSID:  stochRSI.D[last],
		RSI:        rsi[last],
		MACDValue:  macd.Value[last],
		MACDSignal: macd.Signal[last],
		MACDDiff:   macd.Diff[last],
	}

	// day change relative to the first open of the series
	if first := candles[0].Open; first != 0 {
		snap.ChangeDay = lastClose - first
		snap.ChangeDayPerc = (lastClose - first) / first * 100
	}

	if n >= EMATrendPeriod {
		snap.EMA200 = EMA(closes, EMATrendPeriod)[last]
	}

	snap.BBBuy, snap.BBSell = bbSignals(lastClose, snap.BBLow, snap.BBHigh)
	snap.StochBuy, snap.StochSell = stochSignals(snap.StochK, snap.StochD)
	snap.StochRSIBuy, snap.StochRSISell = stochRSISignals(snap.StochRSIK, snap.StochRSID, minStochRSI)
	snap.RSIBuy, snap.RSISell = rsiSignals(snap.RSI)

	if math.IsNaN(snap.StochK) || math.IsNaN(snap.StochRSIK) {
		return nil, errors.Wrap(ErrInsufficientData, "oscillator series not warmed up")
	}
	return snap, nil
}

// rsiSignals derives the buy/sell flags from an RSI value. The comparison
// is strict on both sides: exactly 30 or 70 fires nothing.
func rsiSignals(v float64) (buy, sell bool) {
	return v < buyThreshold, v > sellThreshold
}

// stochSignals requires both the %K and %D lines beyond the band, strict.
func stochSignals(k, d float64) (buy, sell bool) {
	return k < oscLow && d < oscLow, k > oscHigh && d > oscHigh
}

// stochRSISignals uses the per-chat lower bound on the buy side and the
// standard upper band on the sell side.
func stochRSISignals(k, d, minStochRSI float64) (buy, sell bool) {
	return k < minStochRSI && d < minStochRSI, k > oscHigh && d > oscHigh
}

// bbSignals is inclusive: a close touching a band counts.
func bbSignals(close, low, high float64) (buy, sell bool) {
	return close <= low, close >= high
}
