package store

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
)

// Settings wraps a Store with typed accessors for the per-chat scanner
// settings. Values are JSON encoded, lists are stored whole.
type Settings struct {
	store Store
}

func NewSettings(s Store) *Settings {
	return &Settings{store: s}
}

func (s *Settings) get(ctx context.Context, tenant models.TenantID, key string, out any) error {
	raw, err := s.store.Get(ctx, tenant, key)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, out)
}

func (s *Settings) set(ctx context.Context, tenant models.TenantID, key string, v any) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, tenant, key, raw)
}

// Load reads the full settings snapshot of one chat. missing lists the
// keys required for scanning that have no value yet; optional keys fall
// back to defaults.
func (s *Settings) Load(ctx context.Context, tenant models.TenantID) (set *models.Settings, missing []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Settings.Load: %w", err)
		}
	}()
	set = &models.Settings{MinStochRSI: models.DefaultMinStochRSI}

	required := []struct {
		key string
		out any
	}{
		{models.KeyExchange, &set.Exchange},
		{models.KeyBaseCoin, &set.BaseCoin},
		{models.KeyMinQuoteVolume, &set.MinQuoteVolume},
		{models.KeyTimeframes, &set.Timeframes},
		{models.KeyTriggers, &set.Triggers},
		{models.KeyPairList, &set.Pairs},
	}
	for _, r := range required {
		if getErr := s.get(ctx, tenant, r.key, r.out); getErr != nil {
			if errors.Is(getErr, ErrNoValue) {
				missing = append(missing, r.key)
				continue
			}
			return nil, nil, getErr
		}
	}

	if getErr := s.get(ctx, tenant, models.KeyMinStochRSI, &set.MinStochRSI); getErr != nil && !errors.Is(getErr, ErrNoValue) {
		return nil, nil, getErr
	}
	if getErr := s.get(ctx, tenant, models.KeyActive, &set.Active); getErr != nil && !errors.Is(getErr, ErrNoValue) {
		return nil, nil, getErr
	}
	return set, missing, nil
}

func (s *Settings) SetExchange(ctx context.Context, tenant models.TenantID, name string) error {
	return s.set(ctx, tenant, models.KeyExchange, name)
}

func (s *Settings) SetBaseCoin(ctx context.Context, tenant models.TenantID, coin string) error {
	return s.set(ctx, tenant, models.KeyBaseCoin, coin)
}

func (s *Settings) SetMinQuoteVolume(ctx context.Context, tenant models.TenantID, vol float64) error {
	return s.set(ctx, tenant, models.KeyMinQuoteVolume, vol)
}

func (s *Settings) SetTimeframes(ctx context.Context, tenant models.TenantID, tfs []int) error {
	return s.set(ctx, tenant, models.KeyTimeframes, tfs)
}

func (s *Settings) SetTriggers(ctx context.Context, tenant models.TenantID, triggers []models.Indicator) error {
	return s.set(ctx, tenant, models.KeyTriggers, triggers)
}

// AddTriggers unions the given indicators into the stored trigger set,
// keeping the existing order and appending new ones.
func (s *Settings) AddTriggers(ctx context.Context, tenant models.TenantID, triggers []models.Indicator) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Settings.AddTriggers: %w", err)
		}
	}()
	var current []models.Indicator
	if getErr := s.get(ctx, tenant, models.KeyTriggers, &current); getErr != nil && !errors.Is(getErr, ErrNoValue) {
		return getErr
	}
	for _, t := range triggers {
		seen := false
		for _, c := range current {
			if c == t {
				seen = true
				break
			}
		}
		if !seen {
			current = append(current, t)
		}
	}
	return s.set(ctx, tenant, models.KeyTriggers, current)
}

func (s *Settings) SetPairList(ctx context.Context, tenant models.TenantID, pairs []string) error {
	return s.set(ctx, tenant, models.KeyPairList, pairs)
}

// AddPairs unions the given pairs into the stored pair list.
func (s *Settings) AddPairs(ctx context.Context, tenant models.TenantID, pairs []string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Settings.AddPairs: %w", err)
		}
	}()
	var current []string
	if getErr := s.get(ctx, tenant, models.KeyPairList, &current); getErr != nil && !errors.Is(getErr, ErrNoValue) {
		return getErr
	}
	for _, p := range pairs {
		seen := false
		for _, c := range current {
			if c == p {
				seen = true
				break
			}
		}
		if !seen {
			current = append(current, p)
		}
	}
	return s.set(ctx, tenant, models.KeyPairList, current)
}

func (s *Settings) SetMinStochRSI(ctx context.Context, tenant models.TenantID, min float64) error {
	return s.set(ctx, tenant, models.KeyMinStochRSI, min)
}

func (s *Settings) SetActive(ctx context.Context, tenant models.TenantID, active bool) error {
	return s.set(ctx, tenant, models.KeyActive, active)
}

// Active reports the persisted scanning flag, false when never set.
func (s *Settings) Active(ctx context.Context, tenant models.TenantID) (bool, error) {
	var active bool
	if err := s.get(ctx, tenant, models.KeyActive, &active); err != nil {
		if errors.Is(err, ErrNoValue) {
			return false, nil
		}
		return false, err
	}
	return active, nil
}

// Tenants lists every chat with persisted state.
func (s *Settings) Tenants(ctx context.Context) ([]models.TenantID, error) {
	return s.store.Tenants(ctx)
}
