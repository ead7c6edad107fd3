package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var unitSortColumns = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"serial_number":    true,
	"inventory_status": true,
}

// GormUnitRepository implements UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a live (non-deleted) unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Unit, error) {
	var unit inventory.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindBySerialNumber finds a live unit by serial number
func (r *GormUnitRepository) FindBySerialNumber(ctx context.Context, serialNumber string) (*inventory.Unit, error) {
	var unit inventory.Unit
	if err := r.db.WithContext(ctx).First(&unit, "serial_number = ?", serialNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByIDsForUpdate loads the given units ordered by ascending ID with
// row-level locks held. The stable ordering establishes the global lock
// order that keeps overlapping multi-unit operations from deadlocking.
func (r *GormUnitRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]inventory.Unit, error) {
	if len(ids) == 0 {
		return []inventory.Unit{}, nil
	}
	var units []inventory.Unit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByHolderForUpdate loads all units held by a holder in the given status,
// ordered by ascending ID, with row-level locks held
func (r *GormUnitRepository) FindByHolderForUpdate(ctx context.Context, holderType inventory.HolderType, holderID uuid.UUID, status inventory.InventoryStatus) ([]inventory.Unit, error) {
	var units []inventory.Unit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reserved_for_type = ? AND reserved_for_id = ? AND inventory_status = ?", holderType, holderID, status).
		Order("id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindExpiredReservations finds units whose reservation expiry is set and has
// passed. Indefinite (NULL expiry) reservations are excluded by the predicate.
func (r *GormUnitRepository) FindExpiredReservations(ctx context.Context, now time.Time) ([]inventory.Unit, error) {
	var units []inventory.Unit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("inventory_status = ? AND reservation_expiry IS NOT NULL AND reservation_expiry < ?", inventory.StatusReserved, now).
		Order("id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByStatus finds units in the given lifecycle status
func (r *GormUnitRepository) FindByStatus(ctx context.Context, status inventory.InventoryStatus, filter shared.Filter) ([]inventory.Unit, error) {
	var units []inventory.Unit
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Unit{}).Where("inventory_status = ?", status),
		filter, unitSortColumns,
	)
	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByPurchaseOrder finds units created from a purchase order
func (r *GormUnitRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]inventory.Unit, error) {
	var units []inventory.Unit
	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// CountByStatus returns the number of units per lifecycle status
func (r *GormUnitRepository) CountByStatus(ctx context.Context) (map[inventory.InventoryStatus]int64, error) {
	var rows []struct {
		InventoryStatus inventory.InventoryStatus
		Count           int64
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.Unit{}).
		Select("inventory_status, COUNT(*) as count").
		Group("inventory_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[inventory.InventoryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.InventoryStatus] = row.Count
	}
	return counts, nil
}

// Save creates or updates a unit
func (r *GormUnitRepository) Save(ctx context.Context, unit *inventory.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormUnitRepository) SaveWithLock(ctx context.Context, unit *inventory.Unit) error {
	result := r.db.WithContext(ctx).
		Model(unit).
		Where("id = ? AND version = ?", unit.ID, unit.Version-1).
		Updates(map[string]interface{}{
			"inventory_status":   unit.InventoryStatus,
			"physical_status":    unit.PhysicalStatus,
			"reserved_at":        unit.ReservedAt,
			"reserved_by":        unit.ReservedBy,
			"reserved_for_type":  unit.ReservedForType,
			"reserved_for_id":    unit.ReservedForID,
			"reservation_expiry": unit.ReservationExpiry,
			"sold_at":            unit.SoldAt,
			"delivered_at":       unit.DeliveredAt,
			"delivered_to":       unit.DeliveredTo,
			"delivery_notes":     unit.DeliveryNotes,
			"version":            unit.Version,
			"updated_at":         unit.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SoftDelete marks a unit as deleted; units are never physically removed
func (r *GormUnitRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.Unit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormUnitRepository implements UnitRepository
var _ inventory.UnitRepository = (*GormUnitRepository)(nil)
