package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrail/academy_api/shared"
)

func TestBeginClaimsKeyExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc := &IdempotencyService{}

	claimed, err := svc.Begin(db.Db(), "evt_1", "payment_webhook")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = svc.Begin(db.Db(), "evt_1", "payment_webhook")
	require.NoError(t, err)
	assert.False(t, claimed, "second claim of the same key must lose")
}

func TestSameKeyDifferentScopeIsIndependent(t *testing.T) {
	db := newTestDB(t)
	svc := &IdempotencyService{}

	claimed, err := svc.Begin(db.Db(), "evt_1", "payment_webhook")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = svc.Begin(db.Db(), "evt_1", "other_scope")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestFinishRecordsTerminalStatus(t *testing.T) {
	db := newTestDB(t)
	svc := &IdempotencyService{}

	claimed, err := svc.Begin(db.Db(), "evt_2", "payment_webhook")
	require.NoError(t, err)
	require.True(t, claimed)

	hash := "abc123"
	require.NoError(t, svc.Finish(db.Db(), "evt_2", "payment_webhook", shared.IdempotencySucceeded, &hash))

	row, err := svc.Lookup(db.Db(), "evt_2", "payment_webhook")
	require.NoError(t, err)
	assert.Equal(t, shared.IdempotencySucceeded, row.Status)
	require.NotNil(t, row.ResponseHash)
	assert.Equal(t, hash, *row.ResponseHash)
}

func TestProcessingRowBlocksReclaim(t *testing.T) {
	db := newTestDB(t)
	svc := &IdempotencyService{}

	claimed, err := svc.Begin(db.Db(), "evt_3", "payment_webhook")
	require.NoError(t, err)
	require.True(t, claimed)

	row, err := svc.Lookup(db.Db(), "evt_3", "payment_webhook")
	require.NoError(t, err)
	assert.Equal(t, shared.IdempotencyProcessing, row.Status)

	claimed, err = svc.Begin(db.Db(), "evt_3", "payment_webhook")
	require.NoError(t, err)
	assert.False(t, claimed)
}
