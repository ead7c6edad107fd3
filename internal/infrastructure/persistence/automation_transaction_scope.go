package persistence

import (
	"context"

	appautomation "github.com/stockledger/backend/internal/application/automation"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/partner"
	"github.com/stockledger/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormAutomationTransactionScope implements the posting engine's
// TransactionScope on top of a GORM database transaction
type GormAutomationTransactionScope struct {
	db *gorm.DB
}

// NewGormAutomationTransactionScope creates a new GormAutomationTransactionScope
func NewGormAutomationTransactionScope(db *gorm.DB) *GormAutomationTransactionScope {
	return &GormAutomationTransactionScope{db: db}
}

// Execute runs fn inside a database transaction. All repositories handed to
// fn share the transaction; an error from fn rolls everything back.
func (s *GormAutomationTransactionScope) Execute(ctx context.Context, fn func(repos appautomation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormAutomationTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormAutomationTransactionalRepositories provides transaction-scoped
// repositories backed by the same *gorm.DB transaction handle
type gormAutomationTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormAutomationTransactionalRepositories) Units() inventory.UnitRepository {
	return NewGormUnitRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) StatusChanges() inventory.StatusChangeRecordRepository {
	return NewGormStatusChangeRecordRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Accounts() finance.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Journals() finance.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Ledger() finance.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) VendorBills() finance.VendorBillRepository {
	return NewGormVendorBillRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) Vendors() partner.VendorRepository {
	return NewGormVendorRepository(r.tx)
}

func (r *gormAutomationTransactionalRepositories) PurchaseOrders() trade.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

// Ensure interfaces are implemented
var (
	_ appautomation.TransactionScope          = (*GormAutomationTransactionScope)(nil)
	_ appautomation.TransactionalRepositories = (*gormAutomationTransactionalRepositories)(nil)
)
