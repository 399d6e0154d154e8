package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// BollingerResult holds the Bollinger band series: middle (SMA), upper and
// lower bands and the band width in percent of the middle band.
type BollingerResult struct {
	Mid   []float64
	High  []float64
	Low   []float64
	Width []float64
}

// CalculateBollinger computes Bollinger Bands over a price series using a
// window-bar SMA and dev population standard deviations.
func CalculateBollinger(prices []float64, window int, dev float64) (*BollingerResult, error) {
	if window <= 0 || dev <= 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "invalid window %d dev %.1f", window, dev)
	}
	if len(prices) < window {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d bars, have %d", window, len(prices))
	}

	mid := SMA(prices, window)
	n := len(prices)
	res := &BollingerResult{
		Mid:   mid,
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Width: make([]float64, n),
	}
	for i := 0; i < window-1; i++ {
		res.High[i] = math.NaN()
		res.Low[i] = math.NaN()
		res.Width[i] = math.NaN()
	}
	for i := window - 1; i < n; i++ {
		sd := stdDev(prices, i, window, mid[i])
		res.High[i] = mid[i] + dev*sd
		res.Low[i] = mid[i] - dev*sd
		res.Width[i] = (res.High[i] - res.Low[i]) / mid[i] * 100
	}
	return res, nil
}
