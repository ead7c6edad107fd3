package persistence

import (
	"context"

	appinventory "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormInventoryTransactionScope implements the inventory TransactionScope
// on top of a GORM database transaction
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs fn inside a database transaction. All repositories handed to
// fn share the transaction; an error from fn rolls everything back.
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormInventoryTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormInventoryTransactionalRepositories provides transaction-scoped
// repositories backed by the same *gorm.DB transaction handle
type gormInventoryTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormInventoryTransactionalRepositories) Units() inventory.UnitRepository {
	return NewGormUnitRepository(r.tx)
}

func (r *gormInventoryTransactionalRepositories) StatusChanges() inventory.StatusChangeRecordRepository {
	return NewGormStatusChangeRecordRepository(r.tx)
}

// Ensure interfaces are implemented
var (
	_ appinventory.TransactionScope          = (*GormInventoryTransactionScope)(nil)
	_ appinventory.TransactionalRepositories = (*gormInventoryTransactionalRepositories)(nil)
)
