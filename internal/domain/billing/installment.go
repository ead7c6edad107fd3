package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// IntervalType is the spacing between scheduled installments
type IntervalType string

const (
	IntervalWeekly    IntervalType = "WEEKLY"
	IntervalMonthly   IntervalType = "MONTHLY"
	IntervalQuarterly IntervalType = "QUARTERLY"
)

// Normalize maps unrecognized interval types to Monthly rather than erroring
func (t IntervalType) Normalize() IntervalType {
	switch t {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly:
		return t
	default:
		return IntervalMonthly
	}
}

// Advance returns the due date for the i-th installment (1-indexed)
func (t IntervalType) Advance(start time.Time, i int) time.Time {
	switch t.Normalize() {
	case IntervalWeekly:
		return start.AddDate(0, 0, 7*i)
	case IntervalQuarterly:
		return start.AddDate(0, 3*i, 0)
	default:
		return start.AddDate(0, i, 0)
	}
}

// InstallmentStatus represents the payment state of a single installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPartial InstallmentStatus = "PARTIAL"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

// Installment is one scheduled partial payment within a plan
type Installment struct {
	shared.BaseAggregateRoot
	PlanID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"plan_id"`
	InvoiceID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Sequence    int               `gorm:"not null" json:"sequence"`
	Amount      decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaidAmount  decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	Status      InstallmentStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	DueDate     time.Time         `gorm:"not null;index" json:"due_date"`
	LateCharges decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"late_charges"`
	PaidDate    *time.Time        `json:"paid_date,omitempty"`
}

// TableName returns the table name for GORM
func (Installment) TableName() string {
	return "installments"
}

// Remaining returns the unpaid portion of the installment amount
func (ins *Installment) Remaining() decimal.Decimal {
	return ins.Amount.Sub(ins.PaidAmount)
}

// IsFullyPaid reports whether the installment is completely covered
func (ins *Installment) IsFullyPaid() bool {
	return ins.PaidAmount.GreaterThanOrEqual(ins.Amount)
}

// ApplyPayment records a payment against this installment. Payments that
// exceed the remaining balance are rejected; spilling the excess into the
// next installment is the caller's responsibility, not this operation's.
// PaidDate is stamped only when the installment becomes fully covered.
func (ins *Installment) ApplyPayment(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	remaining := ins.Remaining()
	if amount.GreaterThan(remaining) {
		return shared.NewDomainErrorf("OVERPAYMENT_REJECTED",
			"payment %s exceeds remaining balance %s on installment %d",
			amount.StringFixed(2), remaining.StringFixed(2), ins.Sequence).
			WithDetail("installment_id", ins.ID.String()).
			WithDetail("remaining", remaining.StringFixed(2)).
			WithDetail("amount", amount.StringFixed(2))
	}

	now := time.Now()
	ins.PaidAmount = ins.PaidAmount.Add(amount).Round(2)
	if ins.IsFullyPaid() {
		ins.Status = InstallmentStatusPaid
		ins.PaidDate = &now
	} else {
		ins.Status = InstallmentStatusPartial
	}
	ins.UpdatedAt = now
	ins.IncrementVersion()
	return nil
}

// CalculateLateCharge computes the charge owed as of now: the installment
// amount times the monthly rate times the number of started late months.
// Partial months round up, so one day late costs a full month's charge.
func (ins *Installment) CalculateLateCharge(monthlyRatePercent decimal.Decimal, now time.Time) decimal.Decimal {
	if ins.IsFullyPaid() || !now.After(ins.DueDate) {
		return decimal.Zero
	}
	const month = 30 * 24 * time.Hour
	late := now.Sub(ins.DueDate)
	monthsLate := int64(late / month)
	if late%month > 0 {
		monthsLate++
	}
	return ins.Amount.
		Mul(monthlyRatePercent).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(monthsLate)).
		Round(2)
}

// ApplyLateCharge stores a recomputed charge. Charges only ever increase:
// a recomputation yielding less than the stored value does not overwrite it.
// A nonzero charge moves Pending/Partial installments to Overdue.
func (ins *Installment) ApplyLateCharge(charge decimal.Decimal) bool {
	if charge.LessThanOrEqual(ins.LateCharges) {
		return false
	}
	ins.LateCharges = charge
	if ins.Status == InstallmentStatusPending || ins.Status == InstallmentStatusPartial {
		ins.Status = InstallmentStatusOverdue
	}
	ins.UpdatedAt = time.Now()
	ins.IncrementVersion()
	return true
}

// InstallmentPlan splits an invoice balance into a payment schedule.
// An invoice may have at most one plan; installments are created atomically
// with the plan and never re-created.
type InstallmentPlan struct {
	shared.BaseAggregateRoot
	InvoiceID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"invoice_id"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	DownPayment          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"down_payment"`
	NumberOfInstallments int             `gorm:"not null" json:"number_of_installments"`
	IntervalType         IntervalType    `gorm:"size:20;not null" json:"interval_type"`
	StartDate            time.Time       `gorm:"not null" json:"start_date"`

	Installments []Installment `gorm:"foreignKey:PlanID;references:ID" json:"installments,omitempty"`
}

// TableName returns the table name for GORM
func (InstallmentPlan) TableName() string {
	return "installment_plans"
}

// NewInstallmentPlan builds a plan and its full schedule. The per-installment
// base amount is the remaining balance divided evenly and rounded to cents;
// the last installment absorbs the rounding remainder so the schedule sums
// exactly to total - downPayment.
func NewInstallmentPlan(invoiceID uuid.UUID, invoiceTotal, downPayment decimal.Decimal, numberOfInstallments int, intervalType IntervalType, startDate time.Time) (*InstallmentPlan, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if numberOfInstallments < 1 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Number of installments must be at least 1")
	}
	if downPayment.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DOWN_PAYMENT", "Down payment cannot be negative")
	}
	if downPayment.GreaterThanOrEqual(invoiceTotal) {
		return nil, shared.NewDomainErrorf("INVALID_DOWN_PAYMENT",
			"down payment %s must leave a positive remainder of invoice total %s",
			downPayment.StringFixed(2), invoiceTotal.StringFixed(2))
	}

	plan := &InstallmentPlan{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		InvoiceID:            invoiceID,
		TotalAmount:          invoiceTotal.Round(2),
		DownPayment:          downPayment.Round(2),
		NumberOfInstallments: numberOfInstallments,
		IntervalType:         intervalType.Normalize(),
		StartDate:            startDate,
	}

	remaining := plan.TotalAmount.Sub(plan.DownPayment)
	n := int64(numberOfInstallments)
	base := remaining.Div(decimal.NewFromInt(n)).Round(2)

	plan.Installments = make([]Installment, 0, numberOfInstallments)
	for i := 1; i <= numberOfInstallments; i++ {
		amount := base
		if i == numberOfInstallments {
			amount = remaining.Sub(base.Mul(decimal.NewFromInt(n - 1)))
		}
		plan.Installments = append(plan.Installments, Installment{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			PlanID:            plan.ID,
			InvoiceID:         invoiceID,
			Sequence:          i,
			Amount:            amount,
			PaidAmount:        decimal.Zero,
			Status:            InstallmentStatusPending,
			DueDate:           plan.IntervalType.Advance(startDate, i),
			LateCharges:       decimal.Zero,
		})
	}

	return plan, nil
}

// RemainingBalance returns the scheduled amount not yet paid across all
// installments
func (p *InstallmentPlan) RemainingBalance() decimal.Decimal {
	remaining := decimal.Zero
	for i := range p.Installments {
		remaining = remaining.Add(p.Installments[i].Remaining())
	}
	return remaining
}
