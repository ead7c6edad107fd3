package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
)

// ExpiryResult reports one reservation-expiry sweep
type ExpiryResult struct {
	Examined int              `json:"examined"`
	Released []inventory.Unit `json:"released"`
}

// OrphanFinding is one inconsistency the audit detected. Findings are
// reported, never repaired; resolution is a human decision.
type OrphanFinding struct {
	UnitID       uuid.UUID                 `json:"unit_id"`
	SerialNumber string                    `json:"serial_number"`
	Status       inventory.InventoryStatus `json:"status"`
	HolderID     *uuid.UUID                `json:"holder_id,omitempty"`
	Problem      string                    `json:"problem"`
}

// AuditReport is the output of one consistency audit run
type AuditReport struct {
	GeneratedAt      time.Time       `json:"generated_at"`
	ReservedExamined int             `json:"reserved_examined"`
	SoldExamined     int             `json:"sold_examined"`
	Findings         []OrphanFinding `json:"findings"`
}

// RollupReport summarizes one day of inventory activity
type RollupReport struct {
	Since            time.Time                           `json:"since"`
	GeneratedAt      time.Time                           `json:"generated_at"`
	StatusCounts     map[inventory.InventoryStatus]int64 `json:"status_counts"`
	TransitionCounts map[inventory.ChangeReason]int64    `json:"transition_counts"`
}
