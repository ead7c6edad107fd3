package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// InventoryStatus represents the sale-lifecycle state of a unit.
// Transitions are governed exclusively by the state machine below;
// no other component writes this field.
type InventoryStatus string

const (
	StatusAvailable InventoryStatus = "AVAILABLE"
	StatusReserved  InventoryStatus = "RESERVED"
	StatusSold      InventoryStatus = "SOLD"
	StatusDelivered InventoryStatus = "DELIVERED"
)

// IsValid checks if the status is a valid InventoryStatus
func (s InventoryStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold, StatusDelivered:
		return true
	}
	return false
}

// String returns the string representation of InventoryStatus
func (s InventoryStatus) String() string {
	return string(s)
}

// PhysicalStatus is the user-facing condition/location tag. It is an
// independent axis from InventoryStatus: a unit can be physically in stock
// while reserved for an invoice, or in transit while still available.
type PhysicalStatus string

const (
	PhysicalInTransit PhysicalStatus = "IN_TRANSIT"
	PhysicalInStock   PhysicalStatus = "IN_STOCK"
	PhysicalDamaged   PhysicalStatus = "DAMAGED"
	PhysicalReturned  PhysicalStatus = "RETURNED"
)

// HolderType identifies the kind of document holding a reservation
type HolderType string

const (
	// HolderTypeInvoice is currently the only reservation holder type.
	// Invoice reservations are indefinite (nil expiry).
	HolderTypeInvoice HolderType = "INVOICE"
)

// legalTransitions is the complete transition table. Delivered is terminal.
var legalTransitions = map[InventoryStatus][]InventoryStatus{
	StatusAvailable: {StatusReserved, StatusSold},
	StatusReserved:  {StatusAvailable, StatusSold},
	StatusSold:      {StatusDelivered},
	StatusDelivered: {},
}

// CanTransition reports whether from -> to is a legal status transition
func CanTransition(from, to InventoryStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NewInvalidTransitionError builds the error for an illegal from/to pair.
// The offending pair is always named; illegal transitions are never coerced.
func NewInvalidTransitionError(from, to InventoryStatus) *shared.DomainError {
	return shared.NewDomainErrorf("INVALID_TRANSITION",
		"invalid inventory status transition from %s to %s", from, to).
		WithDetail("from", from.String()).
		WithDetail("to", to.String())
}

// Unit is the sellable physical item, identified by serial number.
// It is the aggregate root for the inventory lifecycle.
type Unit struct {
	shared.BaseAggregateRoot
	SerialNumber    string          `gorm:"size:100;not null;uniqueIndex" json:"serial_number"`
	ModelName       string          `gorm:"size:200" json:"model_name"`
	InventoryStatus InventoryStatus `gorm:"size:20;not null;index;default:'AVAILABLE'" json:"inventory_status"`
	PhysicalStatus  PhysicalStatus  `gorm:"size:20;not null;default:'IN_TRANSIT'" json:"physical_status"`

	// Reservation metadata; populated only while InventoryStatus is RESERVED
	ReservedAt        *time.Time `json:"reserved_at,omitempty"`
	ReservedBy        string     `gorm:"size:100" json:"reserved_by,omitempty"`
	ReservedForType   HolderType `gorm:"size:20;index:idx_units_holder" json:"reserved_for_type,omitempty"`
	ReservedForID     *uuid.UUID `gorm:"type:uuid;index:idx_units_holder" json:"reserved_for_id,omitempty"`
	ReservationExpiry *time.Time `gorm:"index" json:"reservation_expiry,omitempty"`

	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"selling_price"`

	SoldAt           *time.Time `json:"sold_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	DeliveredTo      string     `gorm:"size:200" json:"delivered_to,omitempty"`
	DeliveryNotes    string     `gorm:"size:500" json:"delivery_notes,omitempty"`
	PurchaseOrderID  *uuid.UUID `gorm:"type:uuid;index" json:"purchase_order_id,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewUnit creates a new unit on intake. Units start Available and in transit.
func NewUnit(serialNumber, modelName string, purchasePrice, sellingPrice valueobject.Money) (*Unit, error) {
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL_NUMBER", "Serial number cannot be empty")
	}
	if purchasePrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Purchase price cannot be negative")
	}
	if sellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}

	return &Unit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SerialNumber:      serialNumber,
		ModelName:         modelName,
		InventoryStatus:   StatusAvailable,
		PhysicalStatus:    PhysicalInTransit,
		PurchasePrice:     purchasePrice.Amount().Round(2),
		SellingPrice:      sellingPrice.Amount().Round(2),
	}, nil
}

// IsReservedFor reports whether the unit is currently reserved for the holder
func (u *Unit) IsReservedFor(holderType HolderType, holderID uuid.UUID) bool {
	return u.InventoryStatus == StatusReserved &&
		u.ReservedForType == holderType &&
		u.ReservedForID != nil && *u.ReservedForID == holderID
}

// Reserve transitions the unit Available -> Reserved and stamps reservation
// metadata. A nil expiry means the reservation is indefinite.
func (u *Unit) Reserve(holderType HolderType, holderID uuid.UUID, actor shared.Actor, expiry *time.Time) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if u.InventoryStatus != StatusAvailable {
		if !CanTransition(u.InventoryStatus, StatusReserved) {
			return NewInvalidTransitionError(u.InventoryStatus, StatusReserved)
		}
		return u.notAvailableError()
	}

	now := time.Now()
	u.InventoryStatus = StatusReserved
	u.ReservedAt = &now
	u.ReservedBy = actor.String()
	u.ReservedForType = holderType
	id := holderID
	u.ReservedForID = &id
	u.ReservationExpiry = expiry
	u.UpdatedAt = now
	u.IncrementVersion()
	return nil
}

// ReleaseReservation transitions the unit Reserved -> Available and clears
// all reservation metadata.
func (u *Unit) ReleaseReservation() error {
	if !CanTransition(u.InventoryStatus, StatusAvailable) {
		return NewInvalidTransitionError(u.InventoryStatus, StatusAvailable)
	}
	u.InventoryStatus = StatusAvailable
	u.clearReservation()
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// MarkSold transitions the unit Reserved -> Sold and stamps the outbound
// timestamp. Holder metadata is retained so the sold unit stays linked to
// its invoice for delivery and audit; only the expiry is dropped.
func (u *Unit) MarkSold() error {
	if !CanTransition(u.InventoryStatus, StatusSold) {
		return NewInvalidTransitionError(u.InventoryStatus, StatusSold)
	}
	now := time.Now()
	u.InventoryStatus = StatusSold
	u.SoldAt = &now
	u.ReservationExpiry = nil
	u.UpdatedAt = now
	u.IncrementVersion()
	return nil
}

// SellDirect transitions the unit Available -> Sold in one step, skipping
// the reservation stage, and links it to the holder invoice.
func (u *Unit) SellDirect(holderType HolderType, holderID uuid.UUID, actor shared.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if u.InventoryStatus != StatusAvailable {
		if !CanTransition(u.InventoryStatus, StatusSold) {
			return NewInvalidTransitionError(u.InventoryStatus, StatusSold)
		}
		return u.notAvailableError()
	}
	now := time.Now()
	u.InventoryStatus = StatusSold
	u.SoldAt = &now
	u.ReservedBy = actor.String()
	u.ReservedForType = holderType
	id := holderID
	u.ReservedForID = &id
	u.UpdatedAt = now
	u.IncrementVersion()
	return nil
}

// MarkDelivered transitions the unit Sold -> Delivered and stamps the
// handover fields. Delivered is terminal.
func (u *Unit) MarkDelivered(deliveredTo, notes string) error {
	if !CanTransition(u.InventoryStatus, StatusDelivered) {
		return NewInvalidTransitionError(u.InventoryStatus, StatusDelivered)
	}
	now := time.Now()
	u.InventoryStatus = StatusDelivered
	u.DeliveredAt = &now
	u.DeliveredTo = deliveredTo
	u.DeliveryNotes = notes
	u.UpdatedAt = now
	u.IncrementVersion()
	return nil
}

// SetPhysicalStatus updates the condition/location tag. This is not a
// lifecycle transition and carries no state machine validation beyond
// rejecting unknown values.
func (u *Unit) SetPhysicalStatus(status PhysicalStatus) error {
	switch status {
	case PhysicalInTransit, PhysicalInStock, PhysicalDamaged, PhysicalReturned:
	default:
		return shared.NewDomainErrorf("INVALID_PHYSICAL_STATUS", "unknown physical status %q", status)
	}
	u.PhysicalStatus = status
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// HasExpirableReservation reports whether the reservation carries an expiry
// that has passed. Invoice reservations have nil expiry and never qualify.
func (u *Unit) HasExpirableReservation(now time.Time) bool {
	return u.InventoryStatus == StatusReserved &&
		u.ReservationExpiry != nil &&
		u.ReservationExpiry.Before(now)
}

// GetPurchasePriceMoney returns the purchase price as a Money value object
func (u *Unit) GetPurchasePriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(u.PurchasePrice)
}

// GetSellingPriceMoney returns the selling price as a Money value object
func (u *Unit) GetSellingPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(u.SellingPrice)
}

func (u *Unit) clearReservation() {
	u.ReservedAt = nil
	u.ReservedBy = ""
	u.ReservedForType = ""
	u.ReservedForID = nil
	u.ReservationExpiry = nil
}

func (u *Unit) notAvailableError() *shared.DomainError {
	err := shared.NewDomainErrorf("UNIT_NOT_AVAILABLE",
		"unit %s (serial %s) is %s, expected AVAILABLE", u.ID, u.SerialNumber, u.InventoryStatus).
		WithDetail("unit_id", u.ID.String()).
		WithDetail("serial_number", u.SerialNumber).
		WithDetail("current_status", u.InventoryStatus.String())
	if u.InventoryStatus == StatusReserved && u.ReservedForID != nil {
		err = err.WithDetail("held_by_type", string(u.ReservedForType)).
			WithDetail("held_by_id", u.ReservedForID.String())
	}
	return err
}
