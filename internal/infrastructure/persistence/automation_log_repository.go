package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/automation"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLogEntryRepository implements automation.LogEntryRepository using GORM.
// It is used outside the posting engine's business transaction so failure
// records survive rollbacks.
type GormLogEntryRepository struct {
	db *gorm.DB
}

// NewGormLogEntryRepository creates a new GormLogEntryRepository
func NewGormLogEntryRepository(db *gorm.DB) *GormLogEntryRepository {
	return &GormLogEntryRepository{db: db}
}

// FindByID finds a log entry by its ID
func (r *GormLogEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*automation.LogEntry, error) {
	var entry automation.LogEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindBySource returns log entries for a source document, newest first
func (r *GormLogEntryRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]automation.LogEntry, error) {
	var entries []automation.LogEntry
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("started_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindFailed returns failed entries for manual retry, oldest first
func (r *GormLogEntryRepository) FindFailed(ctx context.Context, limit int) ([]automation.LogEntry, error) {
	var entries []automation.LogEntry
	query := r.db.WithContext(ctx).
		Where("status = ?", automation.LogStatusFailed).
		Order("started_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Save creates or updates a log entry
func (r *GormLogEntryRepository) Save(ctx context.Context, entry *automation.LogEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// Ensure GormLogEntryRepository implements LogEntryRepository
var _ automation.LogEntryRepository = (*GormLogEntryRepository)(nil)
