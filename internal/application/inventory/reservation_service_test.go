package inventory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/valueobject"
)

const testActor = shared.Actor("tester")

// fakeScope is an in-memory TransactionScope. Execute serializes callers
// with a mutex, matching the row locks the real scope holds, and snapshots
// the stores before running fn so a failing fn rolls everything back.
type fakeScope struct {
	mu      sync.Mutex
	units   map[uuid.UUID]inventory.Unit
	records []inventory.StatusChangeRecord
}

func newFakeScope() *fakeScope {
	return &fakeScope{units: make(map[uuid.UUID]inventory.Unit)}
}

func (s *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]inventory.Unit, len(s.units))
	for id, u := range s.units {
		snapshot[id] = u
	}
	recordCount := len(s.records)

	if err := fn(s); err != nil {
		s.units = snapshot
		s.records = s.records[:recordCount]
		return err
	}
	return nil
}

func (s *fakeScope) Units() inventory.UnitRepository { return (*fakeUnitRepo)(s) }
func (s *fakeScope) StatusChanges() inventory.StatusChangeRecordRepository {
	return (*fakeStatusChangeRepo)(s)
}

type fakeUnitRepo fakeScope

func (r *fakeUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Unit, error) {
	u, ok := r.units[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUnitRepo) FindBySerialNumber(_ context.Context, serialNumber string) (*inventory.Unit, error) {
	for _, u := range r.units {
		if u.SerialNumber == serialNumber {
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUnitRepo) FindByIDsForUpdate(_ context.Context, ids []uuid.UUID) ([]inventory.Unit, error) {
	var out []inventory.Unit
	for _, id := range ids {
		if u, ok := r.units[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeUnitRepo) FindByHolderForUpdate(_ context.Context, holderType inventory.HolderType, holderID uuid.UUID, status inventory.InventoryStatus) ([]inventory.Unit, error) {
	var out []inventory.Unit
	for _, u := range r.units {
		if u.InventoryStatus == status && u.ReservedForType == holderType &&
			u.ReservedForID != nil && *u.ReservedForID == holderID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeUnitRepo) FindExpiredReservations(_ context.Context, now time.Time) ([]inventory.Unit, error) {
	var out []inventory.Unit
	for _, u := range r.units {
		if u.HasExpirableReservation(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) FindByStatus(_ context.Context, status inventory.InventoryStatus, _ shared.Filter) ([]inventory.Unit, error) {
	var out []inventory.Unit
	for _, u := range r.units {
		if u.InventoryStatus == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) FindByPurchaseOrder(_ context.Context, _ uuid.UUID) ([]inventory.Unit, error) {
	return nil, nil
}

func (r *fakeUnitRepo) CountByStatus(_ context.Context) (map[inventory.InventoryStatus]int64, error) {
	counts := make(map[inventory.InventoryStatus]int64)
	for _, u := range r.units {
		counts[u.InventoryStatus]++
	}
	return counts, nil
}

func (r *fakeUnitRepo) Save(_ context.Context, unit *inventory.Unit) error {
	r.units[unit.ID] = *unit
	return nil
}

func (r *fakeUnitRepo) SaveWithLock(_ context.Context, unit *inventory.Unit) error {
	r.units[unit.ID] = *unit
	return nil
}

func (r *fakeUnitRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(r.units, id)
	return nil
}

type fakeStatusChangeRepo fakeScope

func (r *fakeStatusChangeRepo) Append(_ context.Context, records ...*inventory.StatusChangeRecord) error {
	for _, rec := range records {
		r.records = append(r.records, *rec)
	}
	return nil
}

func (r *fakeStatusChangeRepo) FindByUnit(_ context.Context, unitID uuid.UUID) ([]inventory.StatusChangeRecord, error) {
	var out []inventory.StatusChangeRecord
	for _, rec := range r.records {
		if rec.UnitID == unitID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeStatusChangeRepo) CountByReasonSince(_ context.Context, since time.Time) (map[inventory.ChangeReason]int64, error) {
	counts := make(map[inventory.ChangeReason]int64)
	for _, rec := range r.records {
		if !rec.CreatedAt.Before(since) {
			counts[rec.Reason]++
		}
	}
	return counts, nil
}

var (
	_ TransactionScope          = (*fakeScope)(nil)
	_ TransactionalRepositories = (*fakeScope)(nil)
	_ inventory.UnitRepository  = (*fakeUnitRepo)(nil)
)

func addUnit(t *testing.T, scope *fakeScope, serial string) uuid.UUID {
	t.Helper()
	unit, err := inventory.NewUnit(serial, "Widget X",
		valueobject.NewMoneyUSD(decimal.NewFromInt(100)),
		valueobject.NewMoneyUSD(decimal.NewFromInt(150)))
	require.NoError(t, err)
	scope.units[unit.ID] = *unit
	return unit.ID
}

func newTestService(scope *fakeScope) *ReservationService {
	return NewReservationService(scope, zap.NewNop())
}

func TestReservationService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves all requested units", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		b := addUnit(t, scope, "SN-0002")
		invoiceID := uuid.New()

		result, err := newTestService(scope).Reserve(ctx, []uuid.UUID{a, b}, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Count())
		assert.Len(t, result.Records, 2)
		for _, id := range []uuid.UUID{a, b} {
			stored := scope.units[id]
			assert.Equal(t, inventory.StatusReserved, stored.InventoryStatus)
			assert.True(t, stored.IsReservedFor(inventory.HolderTypeInvoice, invoiceID))
			assert.Nil(t, stored.ReservationExpiry)
		}
	})

	t.Run("fails whole call when one unit is unavailable", func(t *testing.T) {
		scope := newFakeScope()
		available := addUnit(t, scope, "SN-0001")
		reserved := addUnit(t, scope, "SN-0002")
		otherInvoice := uuid.New()
		held := scope.units[reserved]
		require.NoError(t, held.Reserve(inventory.HolderTypeInvoice, otherInvoice, testActor, nil))
		scope.units[reserved] = held

		_, err := newTestService(scope).Reserve(ctx, []uuid.UUID{available, reserved}, uuid.New(), testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "RESERVATION_FAILED", domainErr.Code)

		failures, ok := domainErr.Details["failures"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, failures, 1)
		assert.Equal(t, reserved.String(), failures[0]["unit_id"])
		assert.Equal(t, otherInvoice.String(), failures[0]["held_by_id"])

		assert.Equal(t, inventory.StatusAvailable, scope.units[available].InventoryStatus)
		assert.Empty(t, scope.records)
	})

	t.Run("reports unknown ids as failures", func(t *testing.T) {
		scope := newFakeScope()
		known := addUnit(t, scope, "SN-0001")
		unknown := uuid.New()

		_, err := newTestService(scope).Reserve(ctx, []uuid.UUID{known, unknown}, uuid.New(), testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		failures := domainErr.Details["failures"].([]map[string]any)
		require.Len(t, failures, 1)
		assert.Equal(t, unknown.String(), failures[0]["unit_id"])
	})

	t.Run("validates inputs before touching the store", func(t *testing.T) {
		scope := newFakeScope()
		svc := newTestService(scope)

		_, err := svc.Reserve(ctx, nil, uuid.New(), testActor)
		require.Error(t, err)

		_, err = svc.Reserve(ctx, []uuid.UUID{uuid.New()}, uuid.Nil, testActor)
		require.Error(t, err)

		_, err = svc.Reserve(ctx, []uuid.UUID{uuid.New()}, uuid.New(), shared.Actor(""))
		require.ErrorIs(t, err, shared.ErrMissingActor)
	})
}

func TestReservationService_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	scope := newFakeScope()
	contested := addUnit(t, scope, "SN-0001")
	svc := newTestService(scope)
	invoices := []uuid.UUID{uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	errs := make([]error, len(invoices))
	for i := range invoices {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Reserve(ctx, []uuid.UUID{contested}, invoices[i], testActor)
		}()
	}
	wg.Wait()

	var winners []uuid.UUID
	for i, err := range errs {
		if err == nil {
			winners = append(winners, invoices[i])
			continue
		}
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "RESERVATION_FAILED", domainErr.Code)
	}
	require.Len(t, winners, 1)

	stored := scope.units[contested]
	assert.Equal(t, inventory.StatusReserved, stored.InventoryStatus)
	assert.True(t, stored.IsReservedFor(inventory.HolderTypeInvoice, winners[0]))
	assert.Len(t, scope.records, 1)
}

func TestReservationService_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("returns reserved units to available", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		b := addUnit(t, scope, "SN-0002")
		invoiceID := uuid.New()
		svc := newTestService(scope)
		_, err := svc.Reserve(ctx, []uuid.UUID{a, b}, invoiceID, testActor)
		require.NoError(t, err)

		result, err := svc.Release(ctx, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Count())
		for _, id := range []uuid.UUID{a, b} {
			stored := scope.units[id]
			assert.Equal(t, inventory.StatusAvailable, stored.InventoryStatus)
			assert.Nil(t, stored.ReservedForID)
		}
	})

	t.Run("zero matching units is a valid no-op", func(t *testing.T) {
		scope := newFakeScope()
		addUnit(t, scope, "SN-0001")

		result, err := newTestService(scope).Release(ctx, uuid.New(), testActor)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Count())
	})
}

func TestReservationService_MarkSold(t *testing.T) {
	ctx := context.Background()

	t.Run("sells the invoice's reserved units", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		invoiceID := uuid.New()
		svc := newTestService(scope)
		_, err := svc.Reserve(ctx, []uuid.UUID{a}, invoiceID, testActor)
		require.NoError(t, err)

		result, err := svc.MarkSold(ctx, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Count())
		stored := scope.units[a]
		assert.Equal(t, inventory.StatusSold, stored.InventoryStatus)
		require.NotNil(t, stored.ReservedForID)
		assert.Equal(t, invoiceID, *stored.ReservedForID)
	})

	t.Run("repeated completion events stay idempotent", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		invoiceID := uuid.New()
		svc := newTestService(scope)
		_, err := svc.Reserve(ctx, []uuid.UUID{a}, invoiceID, testActor)
		require.NoError(t, err)
		_, err = svc.MarkSold(ctx, invoiceID, testActor)
		require.NoError(t, err)

		result, err := svc.MarkSold(ctx, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Count())
	})
}

func TestReservationService_SellDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("sells available units with no reservation step", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		invoiceID := uuid.New()

		result, err := newTestService(scope).SellDirect(ctx, []uuid.UUID{a}, invoiceID, testActor)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Count())
		assert.Equal(t, inventory.StatusSold, scope.units[a].InventoryStatus)
	})

	t.Run("rejects units reserved elsewhere", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		svc := newTestService(scope)
		_, err := svc.Reserve(ctx, []uuid.UUID{a}, uuid.New(), testActor)
		require.NoError(t, err)

		_, err = svc.SellDirect(ctx, []uuid.UUID{a}, uuid.New(), testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "SALE_FAILED", domainErr.Code)
	})
}

func TestReservationService_MarkDelivered(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers sold units with handover fields", func(t *testing.T) {
		scope := newFakeScope()
		a := addUnit(t, scope, "SN-0001")
		invoiceID := uuid.New()
		svc := newTestService(scope)
		_, err := svc.SellDirect(ctx, []uuid.UUID{a}, invoiceID, testActor)
		require.NoError(t, err)

		info := DeliveryInfo{DeliveredTo: "Jordan at front desk", Notes: "left at reception"}
		result, err := svc.MarkDelivered(ctx, invoiceID, testActor, info)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Count())
		stored := scope.units[a]
		assert.Equal(t, inventory.StatusDelivered, stored.InventoryStatus)
		assert.Equal(t, "Jordan at front desk", stored.DeliveredTo)
	})

	t.Run("delivering with no sold units is an error", func(t *testing.T) {
		scope := newFakeScope()

		_, err := newTestService(scope).MarkDelivered(ctx, uuid.New(), testActor, DeliveryInfo{DeliveredTo: "x"})

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "NO_SOLD_ITEMS", domainErr.Code)
	})
}

func TestSortedUniqueIDs(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	c := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	out := sortedUniqueIDs([]uuid.UUID{c, a, b, a, c})

	assert.Equal(t, []uuid.UUID{a, b, c}, out)
}
