package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/bennert/crypto-scanner/internal/models"
	"github.com/bennert/crypto-scanner/pkg/db"
)

// Pg stores chat settings in Postgres.
//
// Schema:
//
//	CREATE TABLE tenant_settings (
//	    chat_id text NOT NULL,
//	    key     text NOT NULL,
//	    value   jsonb NOT NULL,
//	    PRIMARY KEY (chat_id, key)
//	);
type Pg struct {
	db db.TxManager
}

func NewPg(txm db.TxManager) *Pg {
	return &Pg{db: txm}
}

func (p *Pg) Get(ctx context.Context, tenant models.TenantID, key string) (value []byte, err error) {
	defer func() {
		if err != nil && !errors.Is(err, ErrNoValue) {
			err = fmt.Errorf("Pg.Get: %w", err)
		}
	}()
	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx,
			`SELECT value FROM tenant_settings WHERE chat_id = $1 AND key = $2`,
			string(tenant), key)
		if scanErr := row.Scan(&value); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return ErrNoValue
			}
			return scanErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *Pg) Set(ctx context.Context, tenant models.TenantID, key string, value []byte) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Pg.Set: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx,
			`INSERT INTO tenant_settings (chat_id, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (chat_id, key) DO UPDATE SET value = excluded.value`,
			string(tenant), key, value)
		return execErr
	})
}

func (p *Pg) Delete(ctx context.Context, tenant models.TenantID, key string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Pg.Delete: %w", err)
		}
	}()
	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx,
			`DELETE FROM tenant_settings WHERE chat_id = $1 AND key = $2`,
			string(tenant), key)
		return execErr
	})
}

func (p *Pg) Tenants(ctx context.Context) (tenants []models.TenantID, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Pg.Tenants: %w", err)
		}
	}()
	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx, `SELECT DISTINCT chat_id FROM tenant_settings`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if scanErr := rows.Scan(&id); scanErr != nil {
				return scanErr
			}
			tenants = append(tenants, models.TenantID(id))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tenants, nil
}
