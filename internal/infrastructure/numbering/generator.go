// Package numbering issues human-readable document numbers from a database
// backed counter table. Numbers are unique and monotonic per sequence and
// year; gaps can appear when a surrounding business transaction rolls back.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceCounter is one counter row per sequence and year
type SequenceCounter struct {
	Sequence string `gorm:"primaryKey;size:16"`
	Year     int    `gorm:"primaryKey"`
	Value    int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for SequenceCounter
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}

// Generator implements shared.NumberGenerator on a counter table. Each call
// increments the counter under a row lock in its own short transaction, so
// two concurrent callers never receive the same number.
type Generator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGenerator creates a new Generator
func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db, now: time.Now}
}

// Next returns the next number for the sequence, formatted like PAY-2026-000042
func (g *Generator) Next(ctx context.Context, sequence string) (string, error) {
	year := g.now().Year()
	var value int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := SequenceCounter{Sequence: sequence, Year: year}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sequence = ? AND year = ?", sequence, year).
			FirstOrCreate(&counter).Error; err != nil {
			return err
		}
		counter.Value++
		value = counter.Value
		return tx.Model(&SequenceCounter{}).
			Where("sequence = ? AND year = ?", sequence, year).
			Update("value", counter.Value).Error
	})
	if err != nil {
		return "", fmt.Errorf("next number for sequence %s: %w", sequence, err)
	}
	return fmt.Sprintf("%s-%d-%06d", sequence, year, value), nil
}

// Ensure Generator implements NumberGenerator
var _ shared.NumberGenerator = (*Generator)(nil)
