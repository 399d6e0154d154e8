package service

import (
	"fmt"
	"strings"

	"github.com/bennert/crypto-scanner/internal/exchange"
	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/internal/scanner"
)

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// mark wraps a rendered reading in bold when its indicator fired.
func mark(s string, fired bool) string {
	if fired {
		return "<b>" + s + "</b>"
	}
	return s
}

func formatSignal(s models.Signal) string {
	snap := s.Snapshot

	// highlight the readings that fired in the signal's direction
	fired := func(ind models.Indicator) bool {
		if s.Classification.Type == models.SignalSell {
			return snap.SellFlag(ind)
		}
		return snap.BuyFlag(ind)
	}
	contributing := make([]string, 0, len(s.Classification.Contributing))
	for _, ind := range s.Classification.Contributing {
		contributing = append(contributing, string(ind))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>  close <code>%.8g</code>\n", snap.Pair, snap.Close)
	fmt.Fprintf(&b, "  %s signal: [%s]\n", s.Classification.Type, strings.Join(contributing, ", "))
	fmt.Fprintf(&b, "  Δday %s%% | vol %sM\n", f2(snap.ChangeDayPerc), f2(snap.QuoteVolumeM))
	fmt.Fprintf(&b, "  RSI %s | Stoch %s/%s | StochRSI %s/%s\n",
		mark(f2(snap.RSI), fired(models.IndicatorRSI)),
		mark(f2(snap.StochK), fired(models.IndicatorStoch)),
		mark(f2(snap.StochD), fired(models.IndicatorStoch)),
		mark(f2(snap.StochRSIK), fired(models.IndicatorStochRSI)),
		mark(f2(snap.StochRSID), fired(models.IndicatorStochRSI)))
	sell := s.Classification.Type == models.SignalSell
	fmt.Fprintf(&b, "  BB %s / %.8g / %s (width %s%%)\n",
		mark(fmt.Sprintf("%.8g", snap.BBLow), !sell && fired(models.IndicatorBB)),
		snap.BBMid,
		mark(fmt.Sprintf("%.8g", snap.BBHigh), sell && fired(models.IndicatorBB)),
		f2(snap.BBWidth))
	fmt.Fprintf(&b, "  MACD %s / %s / %s\n", f2(snap.MACDValue), f2(snap.MACDSignal), f2(snap.MACDDiff))
	if snap.EMA200 != 0 {
		fmt.Fprintf(&b, "  EMA200 <code>%.8g</code>\n", snap.EMA200)
	}
	return b.String()
}

func formatReport(report models.Report) string {
	var b strings.Builder
	tf := exchange.IntervalString(report.Timeframe)
	if len(report.Buys) > 0 {
		fmt.Fprintf(&b, "📈 <b>Buy signals (%s)</b>\n\n", tf)
		for _, s := range report.Buys {
			b.WriteString(formatSignal(s))
			b.WriteString("\n")
		}
	}
	if len(report.Sells) > 0 {
		fmt.Fprintf(&b, "📉 <b>Sell signals (%s)</b>\n\n", tf)
		for _, s := range report.Sells {
			b.WriteString(formatSignal(s))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSettings(set *models.Settings, state scanner.State) string {
	triggers := make([]string, 0, len(set.Triggers))
	for _, tr := range set.Triggers {
		triggers = append(triggers, string(tr))
	}
	tfs := make([]string, 0, len(set.Timeframes))
	for _, tf := range set.Timeframes {
		tfs = append(tfs, exchange.IntervalString(tf))
	}
	return fmt.Sprintf(
		"<b>⚙️ Current settings</b>\n\n"+
			"Exchange: <code>%s</code>\n"+
			"Base coin: <code>%s</code>\n"+
			"Min 24h volume: <code>%.0f</code>\n"+
			"Timeframes: <code>%s</code>\n"+
			"Triggers: <code>%s</code>\n"+
			"StochRSI floor: <code>%s</code>\n"+
			"Pairs: <code>%d</code>\n"+
			"Scanning: <b>%s</b> (%s)\n",
		set.Exchange,
		set.BaseCoin,
		set.MinQuoteVolume,
		strings.Join(tfs, ", "),
		strings.Join(triggers, ", "),
		f2(set.MinStochRSI),
		len(set.Pairs),
		onOff(set.Active),
		state,
	)
}
