package inventory

import (
	"github.com/stockledger/backend/internal/domain/inventory"
)

// TransitionResult is returned by every state machine operation: the full
// set of mutated units plus the audit rows written for them.
type TransitionResult struct {
	Units   []inventory.Unit               `json:"units"`
	Records []inventory.StatusChangeRecord `json:"records"`
}

// Count returns the number of units mutated
func (r *TransitionResult) Count() int {
	return len(r.Units)
}

// DeliveryInfo carries the handover fields for MarkDelivered
type DeliveryInfo struct {
	DeliveredTo string `json:"delivered_to"`
	Notes       string `json:"notes,omitempty"`
}
