package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditTestUnit(t *testing.T, serial string) *inventory.Unit {
	t.Helper()
	unit, err := inventory.NewUnit(serial, "ThinkPad X1",
		valueobject.NewMoneyUSD(decimal.NewFromInt(800)),
		valueobject.NewMoneyUSD(decimal.NewFromInt(1200)))
	require.NoError(t, err)
	return unit
}

func TestGormStatusChangeRecordRepository_AppendAndFindByUnit(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStatusChangeRecordRepository(setupInventoryTestDB(t))

	unit := newAuditTestUnit(t, "SN-6001")
	other := newAuditTestUnit(t, "SN-6002")
	invoiceID := uuid.New()

	reserve := inventory.NewStatusChangeRecord(unit,
		inventory.StatusAvailable, inventory.StatusReserved,
		inventory.ReasonInvoiceCreated, "INVOICE", &invoiceID, "alice", "")
	sell := inventory.NewStatusChangeRecord(unit,
		inventory.StatusReserved, inventory.StatusSold,
		inventory.ReasonInvoicePaid, "INVOICE", &invoiceID, "alice", "")
	unrelated := inventory.NewStatusChangeRecord(other,
		inventory.StatusAvailable, inventory.StatusSold,
		inventory.ReasonDirectSale, "", nil, "bob", "walk-in sale")

	// Distinct timestamps make the creation-order assertion deterministic.
	base := time.Now().Add(-time.Minute)
	reserve.CreatedAt = base
	sell.CreatedAt = base.Add(time.Second)
	unrelated.CreatedAt = base.Add(2 * time.Second)

	require.NoError(t, repo.Append(ctx, reserve, sell, unrelated))

	t.Run("returns the trail for one unit in creation order", func(t *testing.T) {
		trail, err := repo.FindByUnit(ctx, unit.ID)
		require.NoError(t, err)
		require.Len(t, trail, 2)
		assert.Equal(t, reserve.ID, trail[0].ID)
		assert.Equal(t, sell.ID, trail[1].ID)
		assert.Equal(t, inventory.StatusReserved, trail[0].ToStatus)
		require.NotNil(t, trail[0].ReferenceID)
		assert.Equal(t, invoiceID, *trail[0].ReferenceID)
	})

	t.Run("unit without transitions has an empty trail", func(t *testing.T) {
		trail, err := repo.FindByUnit(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, trail)
	})

	t.Run("appending nothing is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Append(ctx))
	})
}

func TestGormStatusChangeRecordRepository_CountByReasonSince(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStatusChangeRecordRepository(setupInventoryTestDB(t))

	unit := newAuditTestUnit(t, "SN-7001")
	now := time.Now()

	recent := inventory.NewStatusChangeRecord(unit,
		inventory.StatusAvailable, inventory.StatusReserved,
		inventory.ReasonInvoiceCreated, "", nil, "alice", "")
	recent.CreatedAt = now.Add(-time.Hour)
	released := inventory.NewStatusChangeRecord(unit,
		inventory.StatusReserved, inventory.StatusAvailable,
		inventory.ReasonSystemCleanup, "", nil, "system", "")
	released.CreatedAt = now.Add(-30 * time.Minute)
	stale := inventory.NewStatusChangeRecord(unit,
		inventory.StatusAvailable, inventory.StatusReserved,
		inventory.ReasonInvoiceCreated, "", nil, "alice", "")
	stale.CreatedAt = now.Add(-48 * time.Hour)

	require.NoError(t, repo.Append(ctx, recent, released, stale))

	counts, err := repo.CountByReasonSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[inventory.ReasonInvoiceCreated])
	assert.Equal(t, int64(1), counts[inventory.ReasonSystemCleanup])
	assert.Len(t, counts, 2)
}
