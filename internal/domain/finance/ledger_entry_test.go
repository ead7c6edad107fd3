package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry(t *testing.T) {
	partyID := uuid.New()

	t.Run("creates a rounded immutable row", func(t *testing.T) {
		refID := uuid.New()
		entry, err := NewLedgerEntry(PartyTypeCustomer, partyID,
			decimal.RequireFromString("100.005"), decimal.Zero,
			decimal.RequireFromString("100.005"),
			"invoice posted", "INVOICE", &refID, "INV-2025-000001")

		require.NoError(t, err)
		assert.True(t, entry.Debit.Equal(decimal.RequireFromString("100.01")))
		assert.True(t, entry.Balance.Equal(decimal.RequireFromString("100.01")))
		assert.Equal(t, "INV-2025-000001", entry.ReferenceNo)
	})

	t.Run("rejects nil party", func(t *testing.T) {
		_, err := NewLedgerEntry(PartyTypeVendor, uuid.Nil,
			decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10),
			"", "", nil, "")
		require.Error(t, err)
	})

	t.Run("rejects negative debit or credit", func(t *testing.T) {
		_, err := NewLedgerEntry(PartyTypeCustomer, partyID,
			decimal.NewFromInt(-1), decimal.Zero, decimal.Zero, "", "", nil, "")
		require.Error(t, err)

		_, err = NewLedgerEntry(PartyTypeCustomer, partyID,
			decimal.Zero, decimal.NewFromInt(-1), decimal.Zero, "", "", nil, "")
		require.Error(t, err)
	})
}

func TestReplayRunningBalance(t *testing.T) {
	entry := func(debit, credit, balance string) LedgerEntry {
		return LedgerEntry{
			Debit:   decimal.RequireFromString(debit),
			Credit:  decimal.RequireFromString(credit),
			Balance: decimal.RequireFromString(balance),
		}
	}

	t.Run("consistent ledger replays to -1", func(t *testing.T) {
		entries := []LedgerEntry{
			entry("100.00", "0", "100.00"),
			entry("0", "40.00", "60.00"),
			entry("25.50", "0", "85.50"),
		}
		assert.Equal(t, -1, ReplayRunningBalance(decimal.Zero, entries))
	})

	t.Run("nonzero opening balance", func(t *testing.T) {
		entries := []LedgerEntry{
			entry("0", "50.00", "450.00"),
		}
		assert.Equal(t, -1, ReplayRunningBalance(decimal.NewFromInt(500), entries))
	})

	t.Run("reports the first violating index", func(t *testing.T) {
		entries := []LedgerEntry{
			entry("100.00", "0", "100.00"),
			entry("0", "40.00", "61.00"),
			entry("25.50", "0", "85.50"),
		}
		assert.Equal(t, 1, ReplayRunningBalance(decimal.Zero, entries))
	})

	t.Run("empty ledger is consistent", func(t *testing.T) {
		assert.Equal(t, -1, ReplayRunningBalance(decimal.NewFromInt(7), nil))
	})
}
