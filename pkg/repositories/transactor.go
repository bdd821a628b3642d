package repositories

import (
	"context"

	"github.com/ripclass/trdrhub.com-sub003/pkg/database"
)

// Transactor groups repository writes into one database transaction.
type Transactor interface {
	// InTransaction runs fn with all repository calls in its context on a
	// single transaction, committing on nil and rolling back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactor struct{}

// NewTransactor creates a Transactor backed by the tenant-scoped connection.
func NewTransactor() Transactor {
	return &transactor{}
}

var _ Transactor = (*transactor)(nil)

func (t *transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.InTransaction(ctx, fn)
}
