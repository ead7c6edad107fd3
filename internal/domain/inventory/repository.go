package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// UnitRepository defines the interface for unit persistence
type UnitRepository interface {
	// FindByID finds a live (non-deleted) unit by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)

	// FindBySerialNumber finds a live unit by serial number
	FindBySerialNumber(ctx context.Context, serialNumber string) (*Unit, error)

	// FindByIDsForUpdate loads the given units ordered by ascending ID with
	// row-level locks held for the duration of the enclosing transaction.
	// The stable ordering establishes a consistent global lock order.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Unit, error)

	// FindByHolderForUpdate loads all units reserved or sold for a holder in
	// the given status, ordered by ascending ID, with row-level locks held.
	FindByHolderForUpdate(ctx context.Context, holderType HolderType, holderID uuid.UUID, status InventoryStatus) ([]Unit, error)

	// FindExpiredReservations finds units whose reservation expiry is set and
	// has passed. Indefinite (nil expiry) reservations are never returned.
	FindExpiredReservations(ctx context.Context, now time.Time) ([]Unit, error)

	// FindByStatus finds units in the given lifecycle status
	FindByStatus(ctx context.Context, status InventoryStatus, filter shared.Filter) ([]Unit, error)

	// FindByPurchaseOrder finds units created from a purchase order
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]Unit, error)

	// CountByStatus returns the number of units per lifecycle status
	CountByStatus(ctx context.Context) (map[InventoryStatus]int64, error)

	// Save creates or updates a unit
	Save(ctx context.Context, unit *Unit) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, unit *Unit) error

	// SoftDelete marks a unit as deleted; units are never physically removed
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// StatusChangeRecordRepository persists the append-only audit trail
type StatusChangeRecordRepository interface {
	// Append inserts audit rows. Records are immutable once written.
	Append(ctx context.Context, records ...*StatusChangeRecord) error

	// FindByUnit returns the audit trail for a unit in creation order
	FindByUnit(ctx context.Context, unitID uuid.UUID) ([]StatusChangeRecord, error)

	// CountByReasonSince returns change counts per reason since the given time
	CountByReasonSince(ctx context.Context, since time.Time) (map[ChangeReason]int64, error)
}

// MovementRepository persists physical movement records
type MovementRepository interface {
	// Append inserts movement rows
	Append(ctx context.Context, movements ...*Movement) error

	// FindByUnit returns movements for a unit in creation order
	FindByUnit(ctx context.Context, unitID uuid.UUID) ([]Movement, error)
}
