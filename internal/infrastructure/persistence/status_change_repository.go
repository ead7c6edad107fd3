package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormStatusChangeRecordRepository implements StatusChangeRecordRepository
// using GORM. Rows are append-only; there are no update paths.
type GormStatusChangeRecordRepository struct {
	db *gorm.DB
}

// NewGormStatusChangeRecordRepository creates a new GormStatusChangeRecordRepository
func NewGormStatusChangeRecordRepository(db *gorm.DB) *GormStatusChangeRecordRepository {
	return &GormStatusChangeRecordRepository{db: db}
}

// Append inserts audit rows
func (r *GormStatusChangeRecordRepository) Append(ctx context.Context, records ...*inventory.StatusChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

// FindByUnit returns the audit trail for a unit in creation order
func (r *GormStatusChangeRecordRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) ([]inventory.StatusChangeRecord, error) {
	var records []inventory.StatusChangeRecord
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByReasonSince returns change counts per reason since the given time
func (r *GormStatusChangeRecordRepository) CountByReasonSince(ctx context.Context, since time.Time) (map[inventory.ChangeReason]int64, error) {
	var rows []struct {
		Reason inventory.ChangeReason
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.StatusChangeRecord{}).
		Select("reason, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("reason").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[inventory.ChangeReason]int64, len(rows))
	for _, row := range rows {
		counts[row.Reason] = row.Count
	}
	return counts, nil
}

// Ensure GormStatusChangeRecordRepository implements StatusChangeRecordRepository
var _ inventory.StatusChangeRecordRepository = (*GormStatusChangeRecordRepository)(nil)
