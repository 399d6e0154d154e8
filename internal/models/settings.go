package models

// TenantID — телеграмный chat id как строка; все состояние сканера
// ключуется по нему.
type TenantID string

// Indicator identifies one of the supported indicators.
type Indicator string

const (
	IndicatorBB       Indicator = "BB"
	IndicatorStoch    Indicator = "Stoch"
	IndicatorStochRSI Indicator = "StochRsi"
	IndicatorRSI      Indicator = "RSI"
	// informational only, not valid as triggers
	IndicatorMACD   Indicator = "MACD"
	IndicatorEMA200 Indicator = "EMA200"
)

// TriggerCapabilities — индикаторы, которые можно выбрать триггером.
var TriggerCapabilities = []Indicator{IndicatorBB, IndicatorStoch, IndicatorStochRSI, IndicatorRSI}

// ValidTrigger reports whether ind may be used in a trigger set.
func ValidTrigger(ind Indicator) bool {
	for _, c := range TriggerCapabilities {
		if c == ind {
			return true
		}
	}
	return false
}

// Settings keys as persisted in the kv store, one key per value.
const (
	KeyExchange       = "exchange"
	KeyBaseCoin       = "basecoin"
	KeyMinQuoteVolume = "minquotevol"
	KeyTimeframes     = "timeframes"
	KeyTriggers       = "indicator_trigger"
	KeyPairList       = "pairlist"
	KeyMinStochRSI    = "minstochrsi"
	KeyActive         = "buysignalsactive"
)

// Settings — снимок настроек одного чата на время одного тика.
// Не кешируется дольше одного прохода эвалюатора.
type Settings struct {
	Exchange       string
	BaseCoin       string
	MinQuoteVolume float64
	Timeframes     []int
	Triggers       []Indicator
	Pairs          []string
	MinStochRSI    float64
	Active         bool
}

// DefaultMinStochRSI — нижняя граница StochRsi, если юзер не выбрал свою.
const DefaultMinStochRSI = 20
