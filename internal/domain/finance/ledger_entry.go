package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// PartyType distinguishes the two ledger families
type PartyType string

const (
	PartyTypeCustomer PartyType = "CUSTOMER"
	PartyTypeVendor   PartyType = "VENDOR"
)

// LedgerEntry is one append-only running-balance row for a customer or
// vendor. The Balance field is computed at write time from the party's
// stored balance, inside the same transaction that updates it, and the row
// is immutable afterwards. Replaying debit/credit deltas from the opening
// balance must reproduce every stored balance exactly.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PartyType     PartyType       `gorm:"size:20;not null;index:idx_ledger_party" json:"party_type"`
	PartyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_party" json:"party_id"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance"`
	Description   string          `gorm:"size:500" json:"description"`
	ReferenceType string          `gorm:"size:40" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	ReferenceNo   string          `gorm:"size:50" json:"reference_no,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a ledger row. balanceAfter must be the party's
// balance after applying this row's delta, read under the same lock that
// serializes postings against the party.
func NewLedgerEntry(partyType PartyType, partyID uuid.UUID, debit, credit, balanceAfter decimal.Decimal, description, refType string, refID *uuid.UUID, refNo string) (*LedgerEntry, error) {
	if partyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Party ID cannot be empty")
	}
	if debit.IsNegative() || credit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Debit and credit cannot be negative")
	}
	return &LedgerEntry{
		ID:            uuid.New(),
		PartyType:     partyType,
		PartyID:       partyID,
		Debit:         debit.Round(2),
		Credit:        credit.Round(2),
		Balance:       balanceAfter.Round(2),
		Description:   description,
		ReferenceType: refType,
		ReferenceID:   refID,
		ReferenceNo:   refNo,
		CreatedAt:     time.Now(),
	}, nil
}

// ReplayRunningBalance verifies the running-balance law over entries read in
// creation order: balance[i] = balance[i-1] + debit[i] - credit[i], starting
// from the opening balance. Returns the index of the first row that breaks
// the law, or -1 when the ledger is consistent.
func ReplayRunningBalance(opening decimal.Decimal, entries []LedgerEntry) int {
	running := opening
	for i := range entries {
		running = running.Add(entries[i].Debit).Sub(entries[i].Credit)
		if !running.Equal(entries[i].Balance) {
			return i
		}
	}
	return -1
}
