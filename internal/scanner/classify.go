package scanner

import "github.com/bennert/crypto-scanner/internal/models"

// Classify checks one snapshot against a chat's trigger set. Buy requires
// every trigger indicator to flag buy on this bar, Sell is symmetric. The
// per-chat StochRSI floor overrides the default buy bound the snapshot was
// computed with; the sell bound is fixed. An empty trigger set never
// matches.
func Classify(snap *models.Snapshot, triggers []models.Indicator, minStochRSI float64) models.Classification {
	if len(triggers) == 0 {
		return models.Classification{Type: models.SignalNone}
	}

	buy, sell := true, true
	for _, t := range triggers {
		if t == models.IndicatorStochRSI {
			if !(snap.StochRSIK < minStochRSI && snap.StochRSID < minStochRSI) {
				buy = false
			}
			if !snap.SellFlag(t) {
				sell = false
			}
			continue
		}
		if !snap.BuyFlag(t) {
			buy = false
		}
		if !snap.SellFlag(t) {
			sell = false
		}
	}

	switch {
	case buy:
		return models.Classification{Type: models.SignalBuy, Contributing: append([]models.Indicator(nil), triggers...)}
	case sell:
		return models.Classification{Type: models.SignalSell, Contributing: append([]models.Indicator(nil), triggers...)}
	default:
		return models.Classification{Type: models.SignalNone}
	}
}
