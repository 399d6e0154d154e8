package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// StochasticResult holds the %K and %D series of a stochastic oscillator.
type StochasticResult struct {
	K []float64
	D []float64
}

// CalculateStochastic computes the Stochastic Oscillator over high/low/close
// series: raw %K = 100 * (close - lowestLow) / (highestHigh - lowestLow)
// over window bars, %D = periodD-bar SMA of %K. When the window range is
// flat, %K defaults to the middle value 50.
func CalculateStochastic(highs, lows, closes []float64, window, periodD int) (*StochasticResult, error) {
	if window <= 0 || periodD <= 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "invalid periods %d/%d", window, periodD)
	}
	minRequired := window + periodD - 1
	if len(closes) < minRequired || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d bars, have %d", minRequired, len(closes))
	}

	n := len(closes)
	res := &StochasticResult{
		K: make([]float64, n),
		D: make([]float64, n),
	}
	for i := 0; i < window-1; i++ {
		res.K[i] = math.NaN()
	}
	for i := window - 1; i < n; i++ {
		lowest := lows[i-window+1]
		highest := highs[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if lows[j] < lowest {
				lowest = lows[j]
			}
			if highs[j] > highest {
				highest = highs[j]
			}
		}
		if highest == lowest {
			res.K[i] = 50.0
		} else {
			res.K[i] = 100.0 * (closes[i] - lowest) / (highest - lowest)
		}
	}

	minIdxForD := window - 1 + periodD - 1
	for i := 0; i < minIdxForD; i++ {
		res.D[i] = math.NaN()
	}
	for i := minIdxForD; i < n; i++ {
		sum := 0.0
		for j := i - periodD + 1; j <= i; j++ {
			sum += res.K[j]
		}
		res.D[i] = sum / float64(periodD)
	}
	return res, nil
}

// CalculateStochRSI computes the Stochastic RSI: a stochastic oscillator
// applied to the RSI series, rescaled to 0..100. %K is smooth1-smoothed,
// %D is the smooth2-bar SMA of %K.
func CalculateStochRSI(prices []float64, window, smooth1, smooth2 int) (*StochasticResult, error) {
	if window <= 0 || smooth1 <= 0 || smooth2 <= 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "invalid periods %d/%d/%d", window, smooth1, smooth2)
	}
	minRequired := 2*window + smooth1 + smooth2 - 3
	if len(prices) < minRequired {
		return nil, errors.Wrapf(ErrInsufficientData, "need %d bars, have %d", minRequired, len(prices))
	}

	rsi := CalculateRSI(prices, window)
	n := len(rsi)
	raw := make([]float64, n)
	// stochastic of the RSI series itself
	for i := 0; i < n; i++ {
		if i < 2*window-2 {
			raw[i] = math.NaN()
			continue
		}
		lowest := rsi[i-window+1]
		highest := rsi[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if rsi[j] < lowest {
				lowest = rsi[j]
			}
			if rsi[j] > highest {
				highest = rsi[j]
			}
		}
		if highest == lowest {
			raw[i] = 50.0
		} else {
			raw[i] = 100.0 * (rsi[i] - lowest) / (highest - lowest)
		}
	}

	res := &StochasticResult{
		K: make([]float64, n),
		D: make([]float64, n),
	}
	minIdxForK := 2*window - 2 + smooth1 - 1
	for i := 0; i < n; i++ {
		if i < minIdxForK {
			res.K[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - smooth1 + 1; j <= i; j++ {
			sum += raw[j]
		}
		res.K[i] = sum / float64(smooth1)
	}
	minIdxForD := minIdxForK + smooth2 - 1
	for i := 0; i < n; i++ {
		if i < minIdxForD {
			res.D[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - smooth2 + 1; j <= i; j++ {
			sum += res.K[j]
		}
		res.D[i] = sum / float64(smooth2)
	}
	return res, nil
}
