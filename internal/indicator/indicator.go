// Package indicator implements the technical indicators the scanner
// evaluates: Bollinger Bands, Stochastic Oscillator, Stochastic RSI,
// RSI, MACD and EMA. All functions are pure: identical input produces
// bit-identical output.
package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInsufficientData is returned when the candle series is shorter than
// the minimum window an indicator needs.
var ErrInsufficientData = errors.New("insufficient data")

// SMA computes a simple moving average. The first window-1 elements are NaN.
func SMA(values []float64, window int) []float64 {
	if len(values) < window || window <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := 0; i < window-1; i++ {
		out[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < window; i++ {
		sum += values[i]
	}
	out[window-1] = sum / float64(window)
	for i := window; i < len(values); i++ {
		sum += values[i] - values[i-window]
		out[i] = sum / float64(window)
	}
	return out
}

// EMA computes an exponential moving average seeded with the SMA of the
// first period values. The first period-1 elements are NaN.
func EMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[period-1] = prev
	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// stdDev computes the population standard deviation over the last window
// elements ending at index i (inclusive).
func stdDev(values []float64, i, window int, mean float64) float64 {
	var sum float64
	for j := i - window + 1; j <= i; j++ {
		d := values[j] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(window))
}
