package inventory

import (
	"context"

	"github.com/stockledger/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a scope, all repository operations are
// part of the same database transaction and commit or roll back atomically.
// The scope is passed in explicitly; there is no ambient database handle.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the inventory repositories
// within one transaction. All repositories share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// Units returns the unit repository scoped to the current transaction
	Units() inventory.UnitRepository
	// StatusChanges returns the audit repository scoped to the transaction
	StatusChanges() inventory.StatusChangeRecordRepository
}
