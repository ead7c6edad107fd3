package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads an invoice with a row-level lock held so that
	// concurrent payment postings against it are serialized
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its display number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindLinesByInvoice returns the unit lines attached to an invoice
	FindLinesByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceLine, error)

	// FindLinesByUnit returns all invoice lines referencing a unit
	FindLinesByUnit(ctx context.Context, unitID uuid.UUID) ([]InvoiceLine, error)

	// Save creates or updates an invoice and its lines
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// InstallmentPlanRepository persists installment plans with their schedules
type InstallmentPlanRepository interface {
	// FindByID finds a plan with its installments
	FindByID(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)

	// FindByInvoice finds the plan for an invoice, if any
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*InstallmentPlan, error)

	// ExistsForInvoice reports whether an invoice already has a plan
	ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error)

	// Save persists the plan and all installments atomically
	Save(ctx context.Context, plan *InstallmentPlan) error
}

// InstallmentRepository persists individual installments
type InstallmentRepository interface {
	// FindByID finds an installment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	// FindByInvoice returns all installments for an invoice in sequence order
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Installment, error)

	// FindOverdue returns installments past due and not fully paid, ordered
	// by due date ascending
	FindOverdue(ctx context.Context, now time.Time, filter shared.Filter) ([]Installment, error)

	// FindDueWithin returns unpaid installments due within the window
	FindDueWithin(ctx context.Context, now time.Time, window time.Duration) ([]Installment, error)

	// FindByCustomer returns installments for all of a customer's invoices
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]Installment, error)

	// Save creates or updates an installment
	Save(ctx context.Context, installment *Installment) error
}

// PaymentRepository persists payments
type PaymentRepository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice returns all payments for an invoice in creation order
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}
