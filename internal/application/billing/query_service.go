package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/shared"
)

// InstallmentQueryService serves read-only schedule views. Queries run
// outside any transaction scope.
type InstallmentQueryService struct {
	installments billing.InstallmentRepository
	plans        billing.InstallmentPlanRepository
}

// NewInstallmentQueryService creates a new InstallmentQueryService
func NewInstallmentQueryService(installments billing.InstallmentRepository, plans billing.InstallmentPlanRepository) *InstallmentQueryService {
	return &InstallmentQueryService{
		installments: installments,
		plans:        plans,
	}
}

// PlanForInvoice returns the invoice's plan with its full schedule
func (s *InstallmentQueryService) PlanForInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.InstallmentPlan, error) {
	return s.plans.FindByInvoice(ctx, invoiceID)
}

// ListOverdue returns installments past due and not fully paid, oldest first
func (s *InstallmentQueryService) ListOverdue(ctx context.Context, now time.Time, filter shared.Filter) ([]billing.Installment, error) {
	return s.installments.FindOverdue(ctx, now, filter)
}

// CustomerSummary aggregates a customer's position across all installment
// schedules: scheduled vs paid totals, accrued late charges, the overdue
// bucket, the upcoming bucket (unpaid installments falling due within the
// look-ahead window) and the next due installment.
func (s *InstallmentQueryService) CustomerSummary(ctx context.Context, customerID uuid.UUID, now time.Time, window time.Duration) (*CustomerInstallmentSummary, error) {
	installments, err := s.installments.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	summary := &CustomerInstallmentSummary{
		CustomerID:     customerID,
		TotalScheduled: decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
		LateCharges:    decimal.Zero,
		OverdueAmount:  decimal.Zero,
		UpcomingAmount: decimal.Zero,
		NextDueAmount:  decimal.Zero,
	}
	horizon := now.Add(window)

	for i := range installments {
		ins := &installments[i]
		summary.TotalScheduled = summary.TotalScheduled.Add(ins.Amount)
		summary.TotalPaid = summary.TotalPaid.Add(ins.PaidAmount)
		summary.TotalRemaining = summary.TotalRemaining.Add(ins.Remaining())
		summary.LateCharges = summary.LateCharges.Add(ins.LateCharges)

		if ins.IsFullyPaid() {
			continue
		}
		if ins.DueDate.Before(now) {
			summary.OverdueCount++
			summary.OverdueAmount = summary.OverdueAmount.Add(ins.Remaining())
			continue
		}
		if !ins.DueDate.After(horizon) {
			summary.UpcomingCount++
			summary.UpcomingAmount = summary.UpcomingAmount.Add(ins.Remaining())
		}
		if summary.NextDueDate == nil || ins.DueDate.Before(*summary.NextDueDate) {
			due := ins.DueDate
			summary.NextDueDate = &due
			summary.NextDueAmount = ins.Remaining()
		}
	}
	return summary, nil
}

// UpcomingReminders lists unpaid installments falling due within the window,
// for payment-reminder delivery
func (s *InstallmentQueryService) UpcomingReminders(ctx context.Context, now time.Time, window time.Duration) ([]ReminderItem, error) {
	installments, err := s.installments.FindDueWithin(ctx, now, window)
	if err != nil {
		return nil, err
	}

	reminders := make([]ReminderItem, 0, len(installments))
	for i := range installments {
		ins := &installments[i]
		reminders = append(reminders, ReminderItem{
			InstallmentID: ins.ID,
			InvoiceID:     ins.InvoiceID,
			Sequence:      ins.Sequence,
			DueDate:       ins.DueDate,
			Remaining:     ins.Remaining(),
		})
	}
	return reminders, nil
}
