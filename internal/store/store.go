// Package store persists per-chat scanner settings as a key-value table:
// one row per (chat, key), values JSON encoded.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
)

// ErrNoValue is returned when the chat has no row for the key.
var ErrNoValue = errors.New("store: no value")

// Store is the persistence port of the scanner.
type Store interface {
	Get(ctx context.Context, tenant models.TenantID, key string) ([]byte, error)
	Set(ctx context.Context, tenant models.TenantID, key string, value []byte) error
	Delete(ctx context.Context, tenant models.TenantID, key string) error
	// Tenants lists every chat that has at least one persisted key.
	Tenants(ctx context.Context) ([]models.TenantID, error)
}
