package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// PaymentMethod is how a payment was settled
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque   PaymentMethod = "CHEQUE"
)

// Payment is a settled amount against an invoice. Payments tied to a specific
// installment carry its ID; direct payments have a nil InstallmentID.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber string          `gorm:"size:50;not null;uniqueIndex" json:"payment_number"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	InstallmentID *uuid.UUID      `gorm:"type:uuid;index" json:"installment_id,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Actor         string          `gorm:"size:100;not null" json:"actor"`
	Voided        bool            `gorm:"not null;default:false" json:"voided"`
	VoidedAt      *time.Time      `json:"voided_at,omitempty"`
	PaidAt        time.Time       `gorm:"not null" json:"paid_at"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a payment record
func NewPayment(paymentNumber string, invoiceID uuid.UUID, installmentID *uuid.UUID, amount decimal.Decimal, method PaymentMethod, actor shared.Actor) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		InvoiceID:         invoiceID,
		InstallmentID:     installmentID,
		Amount:            amount.Round(2),
		Method:            method,
		Actor:             actor.String(),
		PaidAt:            time.Now(),
	}, nil
}

// Void marks the payment as voided; voided payments are excluded from
// invoice paid-amount derivation
func (p *Payment) Void() {
	if p.Voided {
		return
	}
	now := time.Now()
	p.Voided = true
	p.VoidedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
}
