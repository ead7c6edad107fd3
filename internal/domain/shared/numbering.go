package shared

import "context"

// Well-known document number sequences
const (
	SequencePayment      = "PAY"
	SequenceInvoice      = "INV"
	SequenceJournalEntry = "JE"
	SequenceVendorBill   = "BILL"
)

// NumberGenerator issues gapless display numbers per document sequence,
// e.g. PAY-2026-000042. Implementations must be safe for concurrent use.
type NumberGenerator interface {
	Next(ctx context.Context, sequence string) (string, error)
}
