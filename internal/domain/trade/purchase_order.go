package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// PurchaseOrderStatus represents the procurement lifecycle
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusOrdered   PurchaseOrderStatus = "ORDERED"
	PurchaseOrderStatusCompleted PurchaseOrderStatus = "COMPLETED"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "CANCELLED"
)

// PurchaseOrderItem is one line of a purchase order. Each line references
// the unit created on intake for the goods being bought.
type PurchaseOrderItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	UnitID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"unit_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:1" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_cost"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// PurchaseOrder is an order placed with a vendor for physical goods
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber string              `gorm:"size:50;not null;uniqueIndex" json:"order_number"`
	VendorID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"vendor_id"`
	VendorName  string              `gorm:"size:200" json:"vendor_name"`
	Status      PurchaseOrderStatus `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	Total       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0" json:"total"`
	ReceivedAt  *time.Time          `json:"received_at,omitempty"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;references:ID" json:"items,omitempty"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a draft purchase order
func NewPurchaseOrder(orderNumber string, vendorID uuid.UUID, vendorName string) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	return &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		VendorID:          vendorID,
		VendorName:        vendorName,
		Status:            PurchaseOrderStatusDraft,
		Total:             decimal.Zero,
	}, nil
}

// AddItem attaches a line for one unit at the given cost
func (po *PurchaseOrder) AddItem(unitID uuid.UUID, quantity, unitCost decimal.Decimal) error {
	if po.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainErrorf("INVALID_STATE", "purchase order %s is %s, items can only be added in draft", po.OrderNumber, po.Status)
	}
	lineTotal := quantity.Mul(unitCost).Round(2)
	po.Items = append(po.Items, PurchaseOrderItem{
		ID:              uuid.New(),
		PurchaseOrderID: po.ID,
		UnitID:          unitID,
		Quantity:        quantity,
		UnitCost:        unitCost,
		LineTotal:       lineTotal,
	})
	po.Total = po.Total.Add(lineTotal).Round(2)
	po.UpdatedAt = time.Now()
	po.IncrementVersion()
	return nil
}

// MarkOrdered moves a draft order to ordered
func (po *PurchaseOrder) MarkOrdered() error {
	if po.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainErrorf("INVALID_STATE", "purchase order %s is %s, only draft orders can be placed", po.OrderNumber, po.Status)
	}
	po.Status = PurchaseOrderStatusOrdered
	po.UpdatedAt = time.Now()
	po.IncrementVersion()
	return nil
}

// MarkCompleted records receipt of the ordered goods
func (po *PurchaseOrder) MarkCompleted() error {
	if po.Status != PurchaseOrderStatusOrdered {
		return shared.NewDomainErrorf("INVALID_STATE", "purchase order %s is %s, only ordered orders can be completed", po.OrderNumber, po.Status)
	}
	now := time.Now()
	po.Status = PurchaseOrderStatusCompleted
	po.ReceivedAt = &now
	po.UpdatedAt = now
	po.IncrementVersion()
	return nil
}
