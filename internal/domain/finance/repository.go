package finance

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository resolves and persists chart-of-accounts entries
type AccountRepository interface {
	// FindByCode finds an active account by its stable code
	FindByCode(ctx context.Context, code string) (*Account, error)

	// FindByCodeForUpdate loads an account with a row-level lock so balance
	// updates are serialized per account
	FindByCodeForUpdate(ctx context.Context, code string) (*Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}

// JournalEntryRepository persists journal entries
type JournalEntryRepository interface {
	// FindByID finds a journal entry with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindBySource finds journal entries posted for a source document
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]JournalEntry, error)

	// ExistsForSource reports whether any entry was posted for the source
	ExistsForSource(ctx context.Context, sourceType string, sourceID uuid.UUID) (bool, error)

	// Save persists a journal entry and its lines atomically
	Save(ctx context.Context, entry *JournalEntry) error
}

// LedgerEntryRepository persists party ledger rows
type LedgerEntryRepository interface {
	// Append inserts a ledger row; rows are immutable once written
	Append(ctx context.Context, entry *LedgerEntry) error

	// FindByParty returns a party's ledger in creation order
	FindByParty(ctx context.Context, partyType PartyType, partyID uuid.UUID) ([]LedgerEntry, error)
}

// VendorBillRepository persists vendor bills
type VendorBillRepository interface {
	// FindByID finds a bill by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*VendorBill, error)

	// FindBySource finds the bill created from a source document, if any
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (*VendorBill, error)

	// Save creates or updates a bill
	Save(ctx context.Context, bill *VendorBill) error
}
