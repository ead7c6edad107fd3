package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// InvoiceStatus represents the payment status of an invoice.
// It is always a pure function of PaidAmount vs Total, except for the
// Draft/Sent/Cancelled administrative states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// InvoiceLine links one sold unit to the invoice that owns it
type InvoiceLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	UnitID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"unit_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// NewInvoiceLine creates a line for one unit at the given price
func NewInvoiceLine(invoiceID, unitID uuid.UUID, quantity, unitPrice decimal.Decimal) *InvoiceLine {
	return &InvoiceLine{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		UnitID:    unitID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: LineTotal(quantity, unitPrice),
		CreatedAt: time.Now(),
	}
}

// Invoice is the aggregate root for customer billing. PaidAmount and the
// derived payment status are always recomputed from the underlying payment
// records, never incremented in place.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber  string          `gorm:"size:50;not null;uniqueIndex" json:"invoice_number"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	CustomerName   string          `gorm:"size:200" json:"customer_name"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	Status         InvoiceStatus   `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	HasInstallment bool            `gorm:"not null;default:false" json:"has_installment"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;references:ID" json:"lines,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a draft invoice. The total is composed from the pricing
// primitives so each component is rounded before the next step.
func NewInvoice(invoiceNumber string, customerID uuid.UUID, customerName string, subtotal, discountValue decimal.Decimal, discountType DiscountType, taxRate decimal.Decimal, dueDate *time.Time) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if subtotal.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Subtotal cannot be negative")
	}

	roundedSubtotal := subtotal.Round(2)
	discount := DiscountAmount(roundedSubtotal, discountValue, discountType)
	taxable := roundedSubtotal.Sub(discount)
	tax := TaxAmount(taxable, taxRate)

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		Subtotal:          roundedSubtotal,
		DiscountAmount:    discount,
		TaxAmount:         tax,
		Total:             InvoiceTotal(roundedSubtotal, discount, tax),
		PaidAmount:        decimal.Zero,
		Status:            InvoiceStatusDraft,
	}, nil
}

// AttachLine adds a unit line to the invoice
func (inv *Invoice) AttachLine(unitID uuid.UUID, quantity, unitPrice decimal.Decimal) *InvoiceLine {
	line := NewInvoiceLine(inv.ID, unitID, quantity, unitPrice)
	inv.Lines = append(inv.Lines, *line)
	return line
}

// MarkSent moves a draft invoice to Sent
func (inv *Invoice) MarkSent() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is %s, only draft invoices can be sent", inv.InvoiceNumber, inv.Status)
	}
	inv.Status = InvoiceStatusSent
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// Cancel marks the invoice cancelled. Paid invoices cannot be cancelled.
func (inv *Invoice) Cancel() error {
	if inv.Status == InvoiceStatusPaid {
		return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is fully paid and cannot be cancelled", inv.InvoiceNumber)
	}
	if inv.Status == InvoiceStatusCancelled {
		return nil
	}
	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()
	return nil
}

// IsFullyPaid reports whether the paid amount covers the total
func (inv *Invoice) IsFullyPaid() bool {
	return inv.PaidAmount.GreaterThanOrEqual(inv.Total)
}

// RecalculateFromPayments rederives PaidAmount and Status from scratch.
// Direct payments are those not tied to an installment; installment amounts
// are taken from the installments themselves so installment-linked payment
// rows are not double counted. The recomputation is idempotent: running it
// twice over the same inputs yields the same result.
func (inv *Invoice) RecalculateFromPayments(payments []Payment, installments []Installment) {
	paid := decimal.Zero
	for _, p := range payments {
		if p.Voided || p.InstallmentID != nil {
			continue
		}
		paid = paid.Add(p.Amount)
	}
	for _, ins := range installments {
		paid = paid.Add(ins.PaidAmount)
	}
	inv.PaidAmount = paid.Round(2)

	if inv.Status == InvoiceStatusCancelled || inv.Status == InvoiceStatusDraft {
		inv.UpdatedAt = time.Now()
		return
	}

	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.Total) && inv.Total.IsPositive():
		inv.Status = InvoiceStatusPaid
	case inv.PaidAmount.IsPositive():
		inv.Status = InvoiceStatusPartial
	default:
		inv.Status = InvoiceStatusSent
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// MarkOverdue flags an unpaid invoice past its due date
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if inv.DueDate == nil || inv.IsFullyPaid() {
		return false
	}
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusPartial {
		return false
	}
	if now.Before(*inv.DueDate) {
		return false
	}
	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()
	return true
}
