package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementType categorizes a physical inventory movement
type MovementType string

const (
	MovementPurchaseReceipt MovementType = "PURCHASE_RECEIPT"
	MovementSaleDelivery    MovementType = "SALE_DELIVERY"
)

// Movement records a physical receipt or handover of a unit. Movements track
// the physical axis and are appended by the posting engine, not by the
// inventory state machine.
type Movement struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"unit_id"`
	Type          MovementType `gorm:"size:30;not null" json:"type"`
	ReferenceType string       `gorm:"size:40" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID   `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	Notes         string       `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "inventory_movements"
}

// NewMovement creates a movement record
func NewMovement(unitID uuid.UUID, movementType MovementType, refType string, refID *uuid.UUID, notes string) *Movement {
	return &Movement{
		ID:            uuid.New(),
		UnitID:        unitID,
		Type:          movementType,
		ReferenceType: refType,
		ReferenceID:   refID,
		Notes:         notes,
		CreatedAt:     time.Now(),
	}
}
