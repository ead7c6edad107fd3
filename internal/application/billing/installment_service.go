package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InstallmentService owns installment plan creation, payment recording and
// the late-charge sweep. All mutations run inside one transaction with the
// invoice row locked first, so concurrent payments against the same invoice
// are serialized.
type InstallmentService struct {
	scope           TransactionScope
	numbers         shared.NumberGenerator
	monthlyLateRate decimal.Decimal
	logger          *zap.Logger
}

// NewInstallmentService creates a new InstallmentService. monthlyLateRate is
// the late-charge percentage per started month, e.g. 2.5 for 2.5%.
func NewInstallmentService(scope TransactionScope, numbers shared.NumberGenerator, monthlyLateRate decimal.Decimal, logger *zap.Logger) *InstallmentService {
	return &InstallmentService{
		scope:           scope,
		numbers:         numbers,
		monthlyLateRate: monthlyLateRate,
		logger:          logger,
	}
}

// CreatePlan splits the invoice balance into a schedule and records the down
// payment, if any, as a direct payment. An invoice can have at most one plan.
func (s *InstallmentService) CreatePlan(ctx context.Context, req CreatePlanRequest, actor shared.Actor) (*billing.InstallmentPlan, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var plan *billing.InstallmentPlan
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == billing.InvoiceStatusCancelled {
			return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is cancelled", invoice.InvoiceNumber)
		}
		if invoice.IsFullyPaid() {
			return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is already fully paid", invoice.InvoiceNumber)
		}

		exists, err := repos.Plans().ExistsForInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainErrorf("PLAN_ALREADY_EXISTS",
				"invoice %s already has an installment plan", invoice.InvoiceNumber).
				WithDetail("invoice_id", req.InvoiceID.String())
		}

		plan, err = billing.NewInstallmentPlan(invoice.ID, invoice.Total, req.DownPayment,
			req.NumberOfInstallments, req.IntervalType, req.StartDate)
		if err != nil {
			return err
		}
		if err := repos.Plans().Save(ctx, plan); err != nil {
			return err
		}

		if req.DownPayment.IsPositive() {
			number, err := s.numbers.Next(ctx, shared.SequencePayment)
			if err != nil {
				return err
			}
			payment, err := billing.NewPayment(number, invoice.ID, nil, req.DownPayment, req.DownPaymentMethod, actor)
			if err != nil {
				return err
			}
			if err := repos.Payments().Save(ctx, payment); err != nil {
				return err
			}
			if err := s.settleCustomerBalance(ctx, repos, invoice.CustomerID, payment); err != nil {
				return err
			}
		}

		invoice.HasInstallment = true
		if invoice.Status == billing.InvoiceStatusDraft {
			if err := invoice.MarkSent(); err != nil {
				return err
			}
		}
		if err := s.recalculateInvoice(ctx, repos, invoice); err != nil {
			return err
		}
		return repos.Invoices().SaveWithLock(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("installment plan created",
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.Int("installments", req.NumberOfInstallments),
		zap.String("down_payment", req.DownPayment.StringFixed(2)),
	)
	return plan, nil
}

// RecordInstallmentPayment applies a payment to one installment. Amounts
// exceeding the installment's remaining balance are rejected outright; the
// caller must split a larger payment across installments explicitly. The
// invoice's paid amount and status are rederived from all payment records,
// and the customer's outstanding balance drops by the paid amount in the
// same transaction.
func (s *InstallmentService) RecordInstallmentPayment(ctx context.Context, installmentID uuid.UUID, req PaymentRequest, actor shared.Actor) (*PaymentResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &PaymentResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		installment, err := repos.Installments().FindByID(ctx, installmentID)
		if err != nil {
			return err
		}
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, installment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == billing.InvoiceStatusCancelled {
			return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is cancelled", invoice.InvoiceNumber)
		}

		if err := installment.ApplyPayment(req.Amount); err != nil {
			return err
		}

		// A partial payment on an already-late installment does not reduce
		// the accrued charge; recompute so the stored value stays current.
		if !installment.IsFullyPaid() {
			charge := installment.CalculateLateCharge(s.monthlyLateRate, time.Now())
			installment.ApplyLateCharge(charge)
		}
		if err := repos.Installments().Save(ctx, installment); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, shared.SequencePayment)
		if err != nil {
			return err
		}
		payment, err := billing.NewPayment(number, invoice.ID, &installmentID, req.Amount, req.Method, actor)
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		if err := s.recalculateInvoice(ctx, repos, invoice); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		if err := s.settleCustomerBalance(ctx, repos, invoice.CustomerID, payment); err != nil {
			return err
		}

		result.Payment = payment
		result.Installment = installment
		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("installment payment recorded",
		zap.String("installment_id", installmentID.String()),
		zap.String("invoice_id", result.Invoice.ID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("invoice_status", result.Invoice.Status.String()),
	)
	return result, nil
}

// RecordDirectPayment records a payment against the invoice as a whole,
// outside any installment schedule.
func (s *InstallmentService) RecordDirectPayment(ctx context.Context, invoiceID uuid.UUID, req PaymentRequest, actor shared.Actor) (*PaymentResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &PaymentResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == billing.InvoiceStatusCancelled {
			return shared.NewDomainErrorf("INVALID_STATE", "invoice %s is cancelled", invoice.InvoiceNumber)
		}
		remaining := invoice.Total.Sub(invoice.PaidAmount)
		if req.Amount.GreaterThan(remaining) {
			return shared.NewDomainErrorf("OVERPAYMENT_REJECTED",
				"payment %s exceeds remaining balance %s on invoice %s",
				req.Amount.StringFixed(2), remaining.StringFixed(2), invoice.InvoiceNumber).
				WithDetail("remaining", remaining.StringFixed(2)).
				WithDetail("amount", req.Amount.StringFixed(2))
		}

		number, err := s.numbers.Next(ctx, shared.SequencePayment)
		if err != nil {
			return err
		}
		payment, err := billing.NewPayment(number, invoice.ID, nil, req.Amount, req.Method, actor)
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		if err := s.recalculateInvoice(ctx, repos, invoice); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		if err := s.settleCustomerBalance(ctx, repos, invoice.CustomerID, payment); err != nil {
			return err
		}

		result.Payment = payment
		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("direct payment recorded",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("invoice_status", result.Invoice.Status.String()),
	)
	return result, nil
}

// VoidPayment voids a direct payment and rederives the invoice state.
// Installment-linked payments cannot be voided here because the installment's
// paid amount would need to be unwound with them.
func (s *InstallmentService) VoidPayment(ctx context.Context, paymentID uuid.UUID, actor shared.Actor) (*PaymentResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	result := &PaymentResult{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.InstallmentID != nil {
			return shared.NewDomainError("PAYMENT_NOT_VOIDABLE",
				"Installment-linked payments cannot be voided").
				WithDetail("payment_id", paymentID.String()).
				WithDetail("installment_id", payment.InstallmentID.String())
		}
		if payment.Voided {
			result.Payment = payment
			invoice, err := repos.Invoices().FindByID(ctx, payment.InvoiceID)
			if err != nil {
				return err
			}
			result.Invoice = invoice
			return nil
		}

		invoice, err := repos.Invoices().FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}

		payment.Void()
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}

		if err := s.recalculateInvoice(ctx, repos, invoice); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return err
		}

		// Voiding restores the debt the payment had settled
		customer, err := repos.Customers().FindByIDForUpdate(ctx, invoice.CustomerID)
		if err != nil {
			return err
		}
		customer.IncreaseOutstanding(payment.Amount)
		if err := repos.Customers().Save(ctx, customer); err != nil {
			return err
		}
		pid := payment.ID
		row, err := finance.NewLedgerEntry(finance.PartyTypeCustomer, customer.ID,
			payment.Amount, decimal.Zero, customer.OutstandingBalance,
			"Payment voided", "PAYMENT", &pid, payment.PaymentNumber)
		if err != nil {
			return err
		}
		if err := repos.Ledger().Append(ctx, row); err != nil {
			return err
		}

		result.Payment = payment
		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment voided",
		zap.String("payment_id", paymentID.String()),
		zap.String("invoice_id", result.Invoice.ID.String()),
	)
	return result, nil
}

// ApplyLateCharges recomputes late charges for every overdue installment.
// Charges are monotonic: a recomputation never lowers a stored charge, so
// running the sweep repeatedly is safe.
func (s *InstallmentService) ApplyLateCharges(ctx context.Context, now time.Time) (*LateChargeResult, error) {
	result := &LateChargeResult{Charged: decimal.Zero}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		overdue, err := repos.Installments().FindOverdue(ctx, now, shared.DefaultFilter())
		if err != nil {
			return err
		}
		result.Evaluated = len(overdue)

		for i := range overdue {
			installment := &overdue[i]
			charge := installment.CalculateLateCharge(s.monthlyLateRate, now)
			if !installment.ApplyLateCharge(charge) {
				continue
			}
			if err := repos.Installments().Save(ctx, installment); err != nil {
				return err
			}
			result.Updated++
			result.Charged = result.Charged.Add(installment.LateCharges)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("late charge sweep completed",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("updated", result.Updated),
		zap.String("charged", result.Charged.StringFixed(2)),
	)
	return result, nil
}

// recalculateInvoice rederives the invoice paid amount and status from the
// full payment and installment records
func (s *InstallmentService) recalculateInvoice(ctx context.Context, repos TransactionalRepositories, invoice *billing.Invoice) error {
	payments, err := repos.Payments().FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}
	installments, err := repos.Installments().FindByInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}
	invoice.RecalculateFromPayments(payments, installments)
	return nil
}

// settleCustomerBalance lowers the customer's outstanding balance under a
// row lock on the customer record and appends the ledger row explaining the
// change. The ledger balance is read after the decrement, inside the same
// lock, so replaying the ledger reproduces every stored balance.
func (s *InstallmentService) settleCustomerBalance(ctx context.Context, repos TransactionalRepositories, customerID uuid.UUID, payment *billing.Payment) error {
	customer, err := repos.Customers().FindByIDForUpdate(ctx, customerID)
	if err != nil {
		return err
	}
	customer.DecreaseOutstanding(payment.Amount)
	if err := repos.Customers().Save(ctx, customer); err != nil {
		return err
	}

	paymentID := payment.ID
	row, err := finance.NewLedgerEntry(finance.PartyTypeCustomer, customerID,
		decimal.Zero, payment.Amount, customer.OutstandingBalance,
		"Payment received", "PAYMENT", &paymentID, payment.PaymentNumber)
	if err != nil {
		return err
	}
	return repos.Ledger().Append(ctx, row)
}
