package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bennert/crypto-scanner/internal/models"
)

func TestSettingsLoadFreshChat(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())

	set, missing, err := s.Load(ctx, "100")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		models.KeyExchange,
		models.KeyBaseCoin,
		models.KeyMinQuoteVolume,
		models.KeyTimeframes,
		models.KeyTriggers,
		models.KeyPairList,
	}, missing)

	// optional keys fall back to defaults instead of going missing
	assert.InDelta(t, models.DefaultMinStochRSI, set.MinStochRSI, 0.0001)
	assert.False(t, set.Active)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())
	tenant := models.TenantID("100")

	require.NoError(t, s.SetExchange(ctx, tenant, "binance"))
	require.NoError(t, s.SetBaseCoin(ctx, tenant, "USDT"))
	require.NoError(t, s.SetMinQuoteVolume(ctx, tenant, 2_500_000))
	require.NoError(t, s.SetTimeframes(ctx, tenant, []int{15, 60}))
	require.NoError(t, s.SetTriggers(ctx, tenant, []models.Indicator{models.IndicatorRSI}))
	require.NoError(t, s.SetPairList(ctx, tenant, []string{"BTCUSDT", "ETHUSDT"}))
	require.NoError(t, s.SetMinStochRSI(ctx, tenant, 15))

	set, missing, err := s.Load(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.Equal(t, "binance", set.Exchange)
	assert.Equal(t, "USDT", set.BaseCoin)
	assert.InDelta(t, 2_500_000.0, set.MinQuoteVolume, 0.0001)
	assert.Equal(t, []int{15, 60}, set.Timeframes)
	assert.Equal(t, []models.Indicator{models.IndicatorRSI}, set.Triggers)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, set.Pairs)
	assert.InDelta(t, 15.0, set.MinStochRSI, 0.0001)
}

func TestSettingsAddTriggers(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())
	tenant := models.TenantID("100")

	// works on a chat with no stored trigger set yet
	require.NoError(t, s.AddTriggers(ctx, tenant, []models.Indicator{models.IndicatorRSI}))
	require.NoError(t, s.AddTriggers(ctx, tenant, []models.Indicator{models.IndicatorRSI, models.IndicatorBB}))

	set, _, err := s.Load(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, []models.Indicator{models.IndicatorRSI, models.IndicatorBB}, set.Triggers)
}

func TestSettingsAddPairs(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())
	tenant := models.TenantID("100")

	require.NoError(t, s.SetPairList(ctx, tenant, []string{"BTCUSDT"}))
	require.NoError(t, s.AddPairs(ctx, tenant, []string{"BTCUSDT", "ETHUSDT"}))

	set, _, err := s.Load(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, set.Pairs)
}

func TestSettingsActiveFlag(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())
	tenant := models.TenantID("100")

	active, err := s.Active(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, s.SetActive(ctx, tenant, true))
	active, err = s.Active(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, s.SetActive(ctx, tenant, false))
	active, err = s.Active(ctx, tenant)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSettingsTenants(t *testing.T) {
	ctx := context.Background()
	s := NewSettings(NewMemory())

	require.NoError(t, s.SetExchange(ctx, "100", "binance"))
	require.NoError(t, s.SetExchange(ctx, "200", "binance"))

	tenants, err := s.Tenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
