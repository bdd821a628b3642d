//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	tc := setupSessionTest(t)
	ctx, done := tc.tenantContext(tc.tenantID)
	defer done()

	session := tc.newSession("LC-TX-001")
	require.NoError(t, tc.repo.Create(ctx, session))

	tx := NewTransactor()
	err := tx.InTransaction(ctx, func(ctx context.Context) error {
		patch := SessionPatch{Documents: []string{"invoice.pdf", "packing_list.pdf"}}
		return tc.repo.ApplyPatch(ctx, session.ID, patch, session.Version)
	})
	require.NoError(t, err)

	got, err := tc.repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.pdf", "packing_list.pdf"}, got.Documents)
	assert.Equal(t, int64(2), got.Version)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	tc := setupSessionTest(t)
	ctx, done := tc.tenantContext(tc.tenantID)
	defer done()

	session := tc.newSession("LC-TX-002")
	require.NoError(t, tc.repo.Create(ctx, session))

	tx := NewTransactor()
	err := tx.InTransaction(ctx, func(ctx context.Context) error {
		patch := SessionPatch{Documents: []string{"packing_list.pdf"}}
		if err := tc.repo.ApplyPatch(ctx, session.ID, patch, session.Version); err != nil {
			return err
		}
		return errors.New("lost the merge race")
	})
	require.Error(t, err)

	// The patch that already executed inside the transaction is gone.
	got, err := tc.repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.pdf"}, got.Documents)
	assert.Equal(t, int64(1), got.Version)
}

func TestTransactor_RequiresTenantScope(t *testing.T) {
	tx := NewTransactor()
	err := tx.InTransaction(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}
