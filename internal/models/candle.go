package models

// Candle — закрытая свеча. Timestamp в миллисекундах (открытие бара).
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Closes returns the closing-price series of a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// LastTimestamp returns the timestamp of the newest candle, 0 for empty input.
func LastTimestamp(candles []Candle) int64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Timestamp
}
