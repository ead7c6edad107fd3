package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// JournalLine is one leg of a journal entry
type JournalLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JournalID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"journal_id"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	AccountCode string          `gorm:"size:20;not null" json:"account_code"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit"`
}

// TableName returns the table name for GORM
func (JournalLine) TableName() string {
	return "journal_lines"
}

// JournalEntry is a balanced set of debit/credit lines representing one
// financial event. Entries are immutable once posted.
type JournalEntry struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	EntryNumber string        `gorm:"size:50;not null;uniqueIndex" json:"entry_number"`
	Description string        `gorm:"size:500" json:"description"`
	SourceType  string        `gorm:"size:40;not null;index:idx_journal_source" json:"source_type"`
	SourceID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_journal_source" json:"source_id"`
	Lines       []JournalLine `gorm:"foreignKey:JournalID;references:ID" json:"lines"`
	PostedAt    time.Time     `gorm:"not null" json:"posted_at"`
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewPairedJournalEntry builds the common two-line entry: one account
// debited, another credited, both for the same amount.
func NewPairedJournalEntry(entryNumber, description, sourceType string, sourceID uuid.UUID, debitAccount, creditAccount *Account, amount decimal.Decimal) (*JournalEntry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Journal entry number cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Journal amount must be positive")
	}
	if debitAccount == nil || creditAccount == nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Both debit and credit accounts are required")
	}

	id := uuid.New()
	rounded := amount.Round(2)
	return &JournalEntry{
		ID:          id,
		EntryNumber: entryNumber,
		Description: description,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Lines: []JournalLine{
			{
				ID:          uuid.New(),
				JournalID:   id,
				AccountID:   debitAccount.ID,
				AccountCode: debitAccount.Code,
				Debit:       rounded,
				Credit:      decimal.Zero,
			},
			{
				ID:          uuid.New(),
				JournalID:   id,
				AccountID:   creditAccount.ID,
				AccountCode: creditAccount.Code,
				Debit:       decimal.Zero,
				Credit:      rounded,
			},
		},
		PostedAt: time.Now(),
	}, nil
}

// IsBalanced reports whether debits equal credits across all lines
func (j *JournalEntry) IsBalanced() bool {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range j.Lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	return debits.Equal(credits)
}
