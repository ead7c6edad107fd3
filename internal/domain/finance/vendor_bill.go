package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BillStatus represents the lifecycle of a vendor bill
type BillStatus string

const (
	BillStatusOpen   BillStatus = "OPEN"
	BillStatusPaid   BillStatus = "PAID"
	BillStatusVoided BillStatus = "VOIDED"
)

// VendorBill is money owed to a vendor, typically mirroring a received
// purchase order
type VendorBill struct {
	shared.BaseAggregateRoot
	BillNumber    string          `gorm:"size:50;not null;uniqueIndex" json:"bill_number"`
	VendorID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	VendorName    string          `gorm:"size:200" json:"vendor_name"`
	SourceType    string          `gorm:"size:40;not null;index:idx_bill_source" json:"source_type"`
	SourceID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_bill_source" json:"source_id"`
	SourceNumber  string          `gorm:"size:50" json:"source_number"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Status        BillStatus      `gorm:"size:20;not null;default:'OPEN'" json:"status"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	ExpensePosted bool            `gorm:"not null;default:false" json:"expense_posted"`
}

// TableName returns the table name for GORM
func (VendorBill) TableName() string {
	return "vendor_bills"
}

// NewVendorBill creates a bill against a vendor
func NewVendorBill(billNumber string, vendorID uuid.UUID, vendorName, sourceType string, sourceID uuid.UUID, sourceNumber string, subtotal, tax decimal.Decimal, dueDate *time.Time) (*VendorBill, error) {
	if billNumber == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bill subtotal must be positive")
	}

	roundedSubtotal := subtotal.Round(2)
	roundedTax := tax.Round(2)
	return &VendorBill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BillNumber:        billNumber,
		VendorID:          vendorID,
		VendorName:        vendorName,
		SourceType:        sourceType,
		SourceID:          sourceID,
		SourceNumber:      sourceNumber,
		Subtotal:          roundedSubtotal,
		TaxAmount:         roundedTax,
		Total:             roundedSubtotal.Add(roundedTax).Round(2),
		Status:            BillStatusOpen,
		DueDate:           dueDate,
	}, nil
}

// MarkExpensePosted records that the expense journal for this bill has been
// written, guarding retries against double posting
func (b *VendorBill) MarkExpensePosted() {
	b.ExpensePosted = true
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}
