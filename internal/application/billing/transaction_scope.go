package billing

import (
	"context"

	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the billing repositories.
// All repository operations inside one Execute call share a database
// transaction and commit or roll back atomically. The scope is passed in
// explicitly; there is no ambient database handle.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the billing repositories
// within one transaction. Customer balances move in the same transaction
// as the payment rows that explain them.
type TransactionalRepositories interface {
	// Invoices returns the invoice repository scoped to the transaction
	Invoices() billing.InvoiceRepository
	// Plans returns the installment plan repository scoped to the transaction
	Plans() billing.InstallmentPlanRepository
	// Installments returns the installment repository scoped to the transaction
	Installments() billing.InstallmentRepository
	// Payments returns the payment repository scoped to the transaction
	Payments() billing.PaymentRepository
	// Customers returns the customer repository scoped to the transaction
	Customers() partner.CustomerRepository
	// Ledger returns the party ledger repository scoped to the transaction
	Ledger() finance.LedgerEntryRepository
}
