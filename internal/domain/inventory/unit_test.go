package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/valueobject"
)

const testActor = shared.Actor("tester")

func createTestUnit(t *testing.T) *Unit {
	t.Helper()
	unit, err := NewUnit("SN-0001", "Widget X",
		valueobject.NewMoneyUSD(decimal.NewFromInt(100)),
		valueobject.NewMoneyUSD(decimal.NewFromInt(150)))
	require.NoError(t, err)
	return unit
}

func TestNewUnit(t *testing.T) {
	t.Run("creates available in-transit unit", func(t *testing.T) {
		unit := createTestUnit(t)

		assert.NotEqual(t, uuid.Nil, unit.ID)
		assert.Equal(t, StatusAvailable, unit.InventoryStatus)
		assert.Equal(t, PhysicalInTransit, unit.PhysicalStatus)
		assert.True(t, unit.PurchasePrice.Equal(decimal.NewFromInt(100)))
	})

	t.Run("rejects empty serial number", func(t *testing.T) {
		_, err := NewUnit("", "Widget X",
			valueobject.NewMoneyUSD(decimal.NewFromInt(100)),
			valueobject.NewMoneyUSD(decimal.NewFromInt(150)))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Serial number")
	})

	t.Run("rejects negative prices", func(t *testing.T) {
		_, err := NewUnit("SN-0002", "Widget X",
			valueobject.NewMoneyUSD(decimal.NewFromInt(-1)),
			valueobject.NewMoneyUSD(decimal.NewFromInt(150)))

		require.Error(t, err)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    InventoryStatus
		to      InventoryStatus
		allowed bool
	}{
		{StatusAvailable, StatusReserved, true},
		{StatusAvailable, StatusSold, true},
		{StatusAvailable, StatusDelivered, false},
		{StatusReserved, StatusAvailable, true},
		{StatusReserved, StatusSold, true},
		{StatusReserved, StatusDelivered, false},
		{StatusSold, StatusDelivered, true},
		{StatusSold, StatusAvailable, false},
		{StatusSold, StatusReserved, false},
		{StatusDelivered, StatusAvailable, false},
		{StatusDelivered, StatusReserved, false},
		{StatusDelivered, StatusSold, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestUnit_Reserve(t *testing.T) {
	invoiceID := uuid.New()

	t.Run("reserves an available unit", func(t *testing.T) {
		unit := createTestUnit(t)

		err := unit.Reserve(HolderTypeInvoice, invoiceID, testActor, nil)

		require.NoError(t, err)
		assert.Equal(t, StatusReserved, unit.InventoryStatus)
		assert.True(t, unit.IsReservedFor(HolderTypeInvoice, invoiceID))
		assert.Nil(t, unit.ReservationExpiry)
		assert.Equal(t, "tester", unit.ReservedBy)
		assert.Equal(t, 2, unit.Version)
	})

	t.Run("rejects reserving a reserved unit", func(t *testing.T) {
		unit := createTestUnit(t)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, invoiceID, testActor, nil))

		err := unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "UNIT_NOT_AVAILABLE", domainErr.Code)
		assert.Equal(t, invoiceID.String(), domainErr.Details["held_by_id"])
	})

	t.Run("requires an actor", func(t *testing.T) {
		unit := createTestUnit(t)

		err := unit.Reserve(HolderTypeInvoice, invoiceID, shared.Actor(""), nil)

		require.ErrorIs(t, err, shared.ErrMissingActor)
	})
}

func TestUnit_ReleaseReservation(t *testing.T) {
	t.Run("clears all reservation metadata", func(t *testing.T) {
		unit := createTestUnit(t)
		expiry := time.Now().Add(time.Hour)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, &expiry))

		err := unit.ReleaseReservation()

		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, unit.InventoryStatus)
		assert.Nil(t, unit.ReservedForID)
		assert.Nil(t, unit.ReservationExpiry)
		assert.Empty(t, unit.ReservedBy)
	})

	t.Run("rejects releasing a sold unit", func(t *testing.T) {
		unit := createTestUnit(t)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil))
		require.NoError(t, unit.MarkSold())

		err := unit.ReleaseReservation()

		require.Error(t, err)
	})
}

func TestUnit_MarkSold(t *testing.T) {
	t.Run("keeps holder link and drops expiry", func(t *testing.T) {
		unit := createTestUnit(t)
		invoiceID := uuid.New()
		expiry := time.Now().Add(time.Hour)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, invoiceID, testActor, &expiry))

		err := unit.MarkSold()

		require.NoError(t, err)
		assert.Equal(t, StatusSold, unit.InventoryStatus)
		require.NotNil(t, unit.ReservedForID)
		assert.Equal(t, invoiceID, *unit.ReservedForID)
		assert.Nil(t, unit.ReservationExpiry)
		assert.NotNil(t, unit.SoldAt)
	})

	t.Run("rejects selling a delivered unit", func(t *testing.T) {
		unit := createTestUnit(t)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil))
		require.NoError(t, unit.MarkSold())
		require.NoError(t, unit.MarkDelivered("warehouse", ""))

		err := unit.MarkSold()

		require.Error(t, err)
	})
}

func TestUnit_SellDirect(t *testing.T) {
	t.Run("skips the reservation stage", func(t *testing.T) {
		unit := createTestUnit(t)
		invoiceID := uuid.New()

		err := unit.SellDirect(HolderTypeInvoice, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, StatusSold, unit.InventoryStatus)
		require.NotNil(t, unit.ReservedForID)
		assert.Equal(t, invoiceID, *unit.ReservedForID)
	})

	t.Run("rejects a reserved unit", func(t *testing.T) {
		unit := createTestUnit(t)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil))

		err := unit.SellDirect(HolderTypeInvoice, uuid.New(), testActor)

		require.Error(t, err)
	})
}

func TestUnit_MarkDelivered(t *testing.T) {
	unit := createTestUnit(t)
	require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil))
	require.NoError(t, unit.MarkSold())

	err := unit.MarkDelivered("Jordan at front desk", "left at reception")

	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, unit.InventoryStatus)
	assert.Equal(t, "Jordan at front desk", unit.DeliveredTo)
	assert.NotNil(t, unit.DeliveredAt)
}

func TestUnit_HasExpirableReservation(t *testing.T) {
	now := time.Now()

	t.Run("nil expiry never qualifies", func(t *testing.T) {
		unit := createTestUnit(t)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, nil))

		assert.False(t, unit.HasExpirableReservation(now.Add(24*365*time.Hour)))
	})

	t.Run("passed expiry qualifies", func(t *testing.T) {
		unit := createTestUnit(t)
		expiry := now.Add(-time.Minute)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, &expiry))

		assert.True(t, unit.HasExpirableReservation(now))
	})

	t.Run("future expiry does not qualify", func(t *testing.T) {
		unit := createTestUnit(t)
		expiry := now.Add(time.Hour)
		require.NoError(t, unit.Reserve(HolderTypeInvoice, uuid.New(), testActor, &expiry))

		assert.False(t, unit.HasExpirableReservation(now))
	})
}

func TestUnit_SetPhysicalStatus(t *testing.T) {
	unit := createTestUnit(t)

	require.NoError(t, unit.SetPhysicalStatus(PhysicalInStock))
	assert.Equal(t, PhysicalInStock, unit.PhysicalStatus)

	err := unit.SetPhysicalStatus(PhysicalStatus("LOST"))
	require.Error(t, err)
}
