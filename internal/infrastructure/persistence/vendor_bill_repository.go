package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormVendorBillRepository implements VendorBillRepository using GORM
type GormVendorBillRepository struct {
	db *gorm.DB
}

// NewGormVendorBillRepository creates a new GormVendorBillRepository
func NewGormVendorBillRepository(db *gorm.DB) *GormVendorBillRepository {
	return &GormVendorBillRepository{db: db}
}

// FindByID finds a bill by its ID
func (r *GormVendorBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.VendorBill, error) {
	var bill finance.VendorBill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// FindBySource finds the bill created from a source document, if any
func (r *GormVendorBillRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (*finance.VendorBill, error) {
	var bill finance.VendorBill
	if err := r.db.WithContext(ctx).
		First(&bill, "source_type = ? AND source_id = ?", sourceType, sourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// Save creates or updates a bill
func (r *GormVendorBillRepository) Save(ctx context.Context, bill *finance.VendorBill) error {
	return r.db.WithContext(ctx).Save(bill).Error
}

// Ensure GormVendorBillRepository implements VendorBillRepository
var _ finance.VendorBillRepository = (*GormVendorBillRepository)(nil)
