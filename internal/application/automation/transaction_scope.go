package automation

import (
	"context"

	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/partner"
	"github.com/stockledger/backend/internal/domain/trade"
)

// TransactionScope provides transactional access to every repository the
// posting engine touches. One automation run mutates inventory, finance and
// partner state together; all of it commits or rolls back as a unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the posting engine's repositories
// within one transaction. Automation log entries are deliberately absent:
// they are written outside the transaction so a rolled-back run still
// leaves its failure record behind.
type TransactionalRepositories interface {
	// Units returns the unit repository scoped to the transaction
	Units() inventory.UnitRepository
	// StatusChanges returns the audit repository scoped to the transaction
	StatusChanges() inventory.StatusChangeRecordRepository
	// Movements returns the movement repository scoped to the transaction
	Movements() inventory.MovementRepository
	// Invoices returns the invoice repository scoped to the transaction
	Invoices() billing.InvoiceRepository
	// Accounts returns the chart-of-accounts repository scoped to the transaction
	Accounts() finance.AccountRepository
	// Journals returns the journal entry repository scoped to the transaction
	Journals() finance.JournalEntryRepository
	// Ledger returns the party ledger repository scoped to the transaction
	Ledger() finance.LedgerEntryRepository
	// VendorBills returns the vendor bill repository scoped to the transaction
	VendorBills() finance.VendorBillRepository
	// Vendors returns the vendor repository scoped to the transaction
	Vendors() partner.VendorRepository
	// PurchaseOrders returns the purchase order repository scoped to the transaction
	PurchaseOrders() trade.PurchaseOrderRepository
}
