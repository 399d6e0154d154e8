package models

// Snapshot — рассчитанные индикаторы по одной паре на одном таймфрейме.
// Ключ: (Pair, Timeframe, ClosedAt). После расчёта не меняется и шарится
// между чатами только на чтение.
type Snapshot struct {
	Pair      string
	Timeframe int   // minutes
	ClosedAt  int64 // timestamp of the newest closed bar, ms

	Close         float64
	QuoteVolumeM  float64 // 24h quote volume in millions
	ChangeDay     float64 // last close - first open of the series
	ChangeDayPerc float64

	BBMid   float64
	BBHigh  float64
	BBLow   float64
	BBWidth float64 // (high-low)/mid*100

	StochK float64
	StochD float64

	StochRSIK float64
	StochRSID float64

	RSI float64

	MACDValue  float64
	MACDSignal float64
	MACDDiff   float64

	EMA200 float64

	BBBuy        bool
	BBSell       bool
	StochBuy     bool
	StochSell    bool
	StochRSIBuy  bool
	StochRSISell bool
	RSIBuy       bool
	RSISell      bool
}

// BuyFlag returns the buy flag of the given trigger indicator.
func (s *Snapshot) BuyFlag(ind Indicator) bool {
	switch ind {
	case IndicatorBB:
		return s.BBBuy
	case IndicatorStoch:
		return s.StochBuy
	case IndicatorStochRSI:
		return s.StochRSIBuy
	case IndicatorRSI:
		return s.RSIBuy
	}
	return false
}

// SellFlag returns the sell flag of the given trigger indicator.
func (s *Snapshot) SellFlag(ind Indicator) bool {
	switch ind {
	case IndicatorBB:
		return s.BBSell
	case IndicatorStoch:
		return s.StochSell
	case IndicatorStochRSI:
		return s.StochRSISell
	case IndicatorRSI:
		return s.RSISell
	}
	return false
}

// SignalType classifies a snapshot for one tenant.
type SignalType string

const (
	SignalBuy  SignalType = "Buy"
	SignalSell SignalType = "Sell"
	SignalNone SignalType = "None"
)

// Classification — результат сверки снапшота с trigger set чата.
type Classification struct {
	Type         SignalType
	Contributing []Indicator
}

// Signal pairs a snapshot with its classification for delivery.
type Signal struct {
	Snapshot       *Snapshot
	Classification Classification
}

// Report — итог одного тика: таймфрейм -> buy/sell списки.
type Report struct {
	Timeframe int
	Buys      []Signal
	Sells     []Signal
}
