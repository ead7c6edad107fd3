package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/billing"
)

// CreatePlanRequest describes a new installment plan for an invoice
type CreatePlanRequest struct {
	InvoiceID            uuid.UUID             `json:"invoice_id" validate:"required"`
	DownPayment          decimal.Decimal       `json:"down_payment"`
	NumberOfInstallments int                   `json:"number_of_installments" validate:"required,min=1"`
	IntervalType         billing.IntervalType  `json:"interval_type"`
	StartDate            time.Time             `json:"start_date" validate:"required"`
	DownPaymentMethod    billing.PaymentMethod `json:"down_payment_method"`
}

// PaymentRequest describes a payment to record
type PaymentRequest struct {
	Amount decimal.Decimal       `json:"amount" validate:"required"`
	Method billing.PaymentMethod `json:"method" validate:"required"`
}

// PaymentResult reports the state after a payment was recorded
type PaymentResult struct {
	Payment     *billing.Payment     `json:"payment"`
	Installment *billing.Installment `json:"installment,omitempty"`
	Invoice     *billing.Invoice     `json:"invoice"`
}

// LateChargeResult reports one batch run of the late-charge sweep
type LateChargeResult struct {
	Evaluated int             `json:"evaluated"`
	Updated   int             `json:"updated"`
	Charged   decimal.Decimal `json:"charged"`
}

// CustomerInstallmentSummary aggregates a customer's schedule position.
// The upcoming bucket covers unpaid installments due within the look-ahead
// window the summary was computed with.
type CustomerInstallmentSummary struct {
	CustomerID     uuid.UUID       `json:"customer_id"`
	TotalScheduled decimal.Decimal `json:"total_scheduled"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	LateCharges    decimal.Decimal `json:"late_charges"`
	OverdueCount   int             `json:"overdue_count"`
	OverdueAmount  decimal.Decimal `json:"overdue_amount"`
	UpcomingCount  int             `json:"upcoming_count"`
	UpcomingAmount decimal.Decimal `json:"upcoming_amount"`
	NextDueDate    *time.Time      `json:"next_due_date,omitempty"`
	NextDueAmount  decimal.Decimal `json:"next_due_amount"`
}

// ReminderItem is one upcoming installment a customer should be nudged about
type ReminderItem struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Remaining     decimal.Decimal `json:"remaining"`
}
