package database

import (
	"context"

	"plotforge/internal/interfaces"

	"github.com/jackc/pgx/v5"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.TxManager = (*pgTxManager)(nil)

type pgTxManager struct {
	db interfaces.DBTX
}

// NewTxManager wraps a pool (or an outer transaction) as a TxManager.
func NewTxManager(db interfaces.DBTX) interfaces.TxManager {
	return &pgTxManager{db: db}
}

func (m *pgTxManager) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	return WithTx(ctx, m.db, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
