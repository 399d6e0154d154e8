package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bennert/crypto-scanner/internal/models"
)

func buySignal() models.Signal {
	return models.Signal{
		Snapshot: &models.Snapshot{
			Pair:         "BTC/USDT",
			Timeframe:    5,
			Close:        25000,
			QuoteVolumeM: 120,
			RSI:          25,
			StochK:       45,
			StochD:       48,
			StochRSIK:    60,
			StochRSID:    62,
			BBLow:        24800,
			BBMid:        26000,
			BBHigh:       27200,
			BBWidth:      9.23,
			RSIBuy:       true,
			BBBuy:        true,
		},
		Classification: models.Classification{
			Type:         models.SignalBuy,
			Contributing: []models.Indicator{models.IndicatorRSI, models.IndicatorBB},
		},
	}
}

func TestFormatSignalContributing(t *testing.T) {
	out := formatSignal(buySignal())

	assert.Contains(t, out, "Buy signal: [RSI, BB]")
	assert.Contains(t, out, "<b>25.00</b>")
	assert.Contains(t, out, "<b>24800</b>")
	// calm oscillators stay unmarked
	assert.Contains(t, out, "Stoch 45.00/48.00")
	assert.Contains(t, out, "StochRSI 60.00/62.00")
	assert.NotContains(t, out, "<b>45.00</b>")
}

func TestFormatSignalSellBoldsUpperBand(t *testing.T) {
	s := models.Signal{
		Snapshot: &models.Snapshot{
			Pair:      "ETH/USDT",
			Timeframe: 15,
			Close:     4100,
			RSI:       82,
			BBLow:     3600,
			BBMid:     3850,
			BBHigh:    4090,
			RSISell:   true,
			BBSell:    true,
		},
		Classification: models.Classification{
			Type:         models.SignalSell,
			Contributing: []models.Indicator{models.IndicatorRSI, models.IndicatorBB},
		},
	}
	out := formatSignal(s)

	assert.Contains(t, out, "Sell signal: [RSI, BB]")
	assert.Contains(t, out, "<b>82.00</b>")
	assert.Contains(t, out, "<b>4090</b>")
	assert.NotContains(t, out, "<b>3600</b>")
}

func TestFormatReportSections(t *testing.T) {
	report := models.Report{
		Timeframe: 5,
		Buys:      []models.Signal{buySignal()},
	}
	out := formatReport(report)

	assert.Contains(t, out, "Buy signals (5m)")
	assert.Contains(t, out, "BTC/USDT")
	assert.NotContains(t, out, "Sell signals")
}
