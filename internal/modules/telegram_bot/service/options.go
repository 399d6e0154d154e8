package service

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Options are the choices offered in the setting polls. Kept in
// configs/options.yaml so deployments can tune them without a rebuild.
type Options struct {
	Exchanges      []string  `yaml:"exchanges"`
	BaseCoins      []string  `yaml:"base_coins"`
	MinQuoteVolume []float64 `yaml:"min_quote_volumes"`
	Timeframes     []int     `yaml:"timeframes"`
	MinStochRSI    []float64 `yaml:"min_stoch_rsi"`
}

const optionsFile = "configs/options.yaml"

func NewOptions() (*Options, error) {
	opts := Options{
		Exchanges:      []string{"binance"},
		BaseCoins:      []string{"USDT", "BTC", "ETH"},
		MinQuoteVolume: []float64{100000, 500000, 1000000, 5000000},
		Timeframes:     []int{15, 60, 240, 1440},
		MinStochRSI:    []float64{5, 10, 15, 20},
	}

	file, err := os.Open(optionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &opts, nil
		}
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&opts); err != nil {
		return nil, err
	}
	return &opts, nil
}
