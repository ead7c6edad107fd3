package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// ChangeReason is the enumerated reason code stamped on every audit row
type ChangeReason string

const (
	ReasonInvoiceCreated   ChangeReason = "INVOICE_CREATED"
	ReasonInvoiceCancelled ChangeReason = "INVOICE_CANCELLED"
	ReasonInvoicePaid      ChangeReason = "INVOICE_PAID"
	ReasonInvoiceDelivered ChangeReason = "INVOICE_DELIVERED"
	ReasonDirectSale       ChangeReason = "DIRECT_SALE"
	ReasonSystemCleanup    ChangeReason = "SYSTEM_CLEANUP"
)

// StatusChangeRecord is the immutable append-only audit row written once per
// unit status transition. It replaces any read-modify-write history blob:
// rows are only ever inserted, never updated.
type StatusChangeRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"unit_id"`
	SerialNumber  string          `gorm:"size:100;not null" json:"serial_number"`
	FromStatus    InventoryStatus `gorm:"size:20;not null" json:"from_status"`
	ToStatus      InventoryStatus `gorm:"size:20;not null" json:"to_status"`
	Reason        ChangeReason    `gorm:"size:40;not null" json:"reason"`
	ReferenceType string          `gorm:"size:40" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	Actor         string          `gorm:"size:100;not null" json:"actor"`
	Notes         string          `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM
func (StatusChangeRecord) TableName() string {
	return "status_change_records"
}

// NewStatusChangeRecord creates an audit row for a completed transition
func NewStatusChangeRecord(unit *Unit, from, to InventoryStatus, reason ChangeReason, refType string, refID *uuid.UUID, actor shared.Actor, notes string) *StatusChangeRecord {
	return &StatusChangeRecord{
		ID:            uuid.New(),
		UnitID:        unit.ID,
		SerialNumber:  unit.SerialNumber,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		ReferenceType: refType,
		ReferenceID:   refID,
		Actor:         actor.String(),
		Notes:         notes,
		CreatedAt:     time.Now(),
	}
}
