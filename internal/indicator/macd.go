package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	Value  []float64
	Signal []float64
	Diff   []float64
}

// CalculateMACD computes MACD(fast,slow,signal) over a price series.
// The MACD line is valid from index slow-1, the signal line from index
// slow+signal-2.
func CalculateMACD(prices []float64, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "invalid periods %d/%d/%d", fast, slow, signal)
	}
	minRequired := slow + signal - 1
	if len(prices) < minRequired {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d bars, have %d", minRequired, len(prices))
	}

	emaFast := EMA(prices, fast)
	emaSlow := EMA(prices, slow)
	n := len(prices)

	res := &MACDResult{
		Value:  make([]float64, n),
		Signal: make([]float64, n),
		Diff:   make([]float64, n),
	}
	for i := 0; i < slow-1; i++ {
		res.Value[i] = math.NaN()
		res.Signal[i] = math.NaN()
		res.Diff[i] = math.NaN()
	}
	for i := slow - 1; i < n; i++ {
		res.Value[i] = emaFast[i] - emaSlow[i]
	}

	// signal line: EMA over the valid part of the MACD line
	sigSeries := EMA(res.Value[slow-1:], signal)
	for i := slow - 1; i < n; i++ {
		v := sigSeries[i-(slow-1)]
		res.Signal[i] = v
		if math.IsNaN(v) {
			res.Diff[i] = math.NaN()
		} else {
			res.Diff[i] = res.Value[i] - v
		}
	}
	return res, nil
}
