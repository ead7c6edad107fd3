package persistence

import (
	"context"

	appbilling "github.com/stockledger/backend/internal/application/billing"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// GormBillingTransactionScope implements the billing TransactionScope on top
// of a GORM database transaction
type GormBillingTransactionScope struct {
	db *gorm.DB
}

// NewGormBillingTransactionScope creates a new GormBillingTransactionScope
func NewGormBillingTransactionScope(db *gorm.DB) *GormBillingTransactionScope {
	return &GormBillingTransactionScope{db: db}
}

// Execute runs fn inside a database transaction. All repositories handed to
// fn share the transaction; an error from fn rolls everything back.
func (s *GormBillingTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormBillingTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormBillingTransactionalRepositories provides transaction-scoped
// repositories backed by the same *gorm.DB transaction handle
type gormBillingTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormBillingTransactionalRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormBillingTransactionalRepositories) Plans() billing.InstallmentPlanRepository {
	return NewGormInstallmentPlanRepository(r.tx)
}

func (r *gormBillingTransactionalRepositories) Installments() billing.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

func (r *gormBillingTransactionalRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormBillingTransactionalRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormBillingTransactionalRepositories) Ledger() finance.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// Ensure interfaces are implemented
var (
	_ appbilling.TransactionScope          = (*GormBillingTransactionScope)(nil)
	_ appbilling.TransactionalRepositories = (*gormBillingTransactionalRepositories)(nil)
)
