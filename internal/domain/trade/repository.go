package trade

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderRepository persists purchase orders
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByNumber finds a purchase order by its display number
	FindByNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// Save creates or updates a purchase order and its items
	Save(ctx context.Context, order *PurchaseOrder) error
}
