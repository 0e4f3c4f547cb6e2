package mocks

import (
	"context"

	"plotforge/internal/interfaces"
)

// TxManager is a pass-through transaction manager for tests: fn runs against
// Querier (usually nil, since repository mocks ignore it), and BeginErr can
// simulate a transaction that fails to start.
type TxManager struct {
	Querier  interfaces.DBTX
	BeginErr error
}

func (m *TxManager) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	return fn(m.Querier)
}
