package interfaces

import "context"

// TxManager runs a function inside a database transaction. The querier handed
// to fn is the transaction; fn returning an error rolls everything back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(q DBTX) error) error
}
