package billing

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/finance"
	"github.com/stockledger/backend/internal/domain/partner"
	"github.com/stockledger/backend/internal/domain/shared"
)

const testActor = shared.Actor("tester")

// fakeBillingScope is an in-memory TransactionScope. Execute snapshots every
// store before running fn and restores them when fn fails, so tests observe
// real rollback semantics.
type fakeBillingScope struct {
	invoices     map[uuid.UUID]billing.Invoice
	plans        map[uuid.UUID]billing.InstallmentPlan
	installments map[uuid.UUID]billing.Installment
	payments     map[uuid.UUID]billing.Payment
	customers    map[uuid.UUID]partner.Customer
	ledger       []finance.LedgerEntry
}

func newFakeBillingScope() *fakeBillingScope {
	return &fakeBillingScope{
		invoices:     make(map[uuid.UUID]billing.Invoice),
		plans:        make(map[uuid.UUID]billing.InstallmentPlan),
		installments: make(map[uuid.UUID]billing.Installment),
		payments:     make(map[uuid.UUID]billing.Payment),
		customers:    make(map[uuid.UUID]partner.Customer),
	}
}

func (s *fakeBillingScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	snapshot := *s
	snapshot.invoices = copyMap(s.invoices)
	snapshot.plans = copyMap(s.plans)
	snapshot.installments = copyMap(s.installments)
	snapshot.payments = copyMap(s.payments)
	snapshot.customers = copyMap(s.customers)
	snapshot.ledger = append([]finance.LedgerEntry(nil), s.ledger...)

	if err := fn(s); err != nil {
		*s = snapshot
		return err
	}
	return nil
}

func copyMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeBillingScope) Invoices() billing.InvoiceRepository { return (*fakeInvoiceRepo)(s) }
func (s *fakeBillingScope) Plans() billing.InstallmentPlanRepository {
	return (*fakePlanRepo)(s)
}
func (s *fakeBillingScope) Installments() billing.InstallmentRepository {
	return (*fakeInstallmentRepo)(s)
}
func (s *fakeBillingScope) Payments() billing.PaymentRepository   { return (*fakePaymentRepo)(s) }
func (s *fakeBillingScope) Customers() partner.CustomerRepository { return (*fakeCustomerRepo)(s) }
func (s *fakeBillingScope) Ledger() finance.LedgerEntryRepository { return (*fakeLedgerRepo)(s) }

type fakeInvoiceRepo fakeBillingScope

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			return &inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindLinesByInvoice(_ context.Context, _ uuid.UUID) ([]billing.InvoiceLine, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) FindLinesByUnit(_ context.Context, _ uuid.UUID) ([]billing.InvoiceLine, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, invoice *billing.Invoice) error {
	r.invoices[invoice.ID] = *invoice
	return nil
}

type fakePlanRepo fakeBillingScope

func (r *fakePlanRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.InstallmentPlan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &plan, nil
}

func (r *fakePlanRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) (*billing.InstallmentPlan, error) {
	for _, plan := range r.plans {
		if plan.InvoiceID == invoiceID {
			return &plan, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePlanRepo) ExistsForInvoice(_ context.Context, invoiceID uuid.UUID) (bool, error) {
	for _, plan := range r.plans {
		if plan.InvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePlanRepo) Save(_ context.Context, plan *billing.InstallmentPlan) error {
	r.plans[plan.ID] = *plan
	for _, ins := range plan.Installments {
		r.installments[ins.ID] = ins
	}
	return nil
}

type fakeInstallmentRepo fakeBillingScope

func (r *fakeInstallmentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Installment, error) {
	ins, ok := r.installments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ins, nil
}

func (r *fakeInstallmentRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]billing.Installment, error) {
	var out []billing.Installment
	for _, ins := range r.installments {
		if ins.InvoiceID == invoiceID {
			out = append(out, ins)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *fakeInstallmentRepo) FindOverdue(_ context.Context, now time.Time, _ shared.Filter) ([]billing.Installment, error) {
	var out []billing.Installment
	for _, ins := range r.installments {
		if !ins.IsFullyPaid() && now.After(ins.DueDate) {
			out = append(out, ins)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *fakeInstallmentRepo) FindDueWithin(_ context.Context, now time.Time, window time.Duration) ([]billing.Installment, error) {
	var out []billing.Installment
	limit := now.Add(window)
	for _, ins := range r.installments {
		if !ins.IsFullyPaid() && ins.DueDate.After(now) && !ins.DueDate.After(limit) {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (r *fakeInstallmentRepo) FindByCustomer(_ context.Context, customerID uuid.UUID) ([]billing.Installment, error) {
	var out []billing.Installment
	for _, ins := range r.installments {
		if inv, ok := r.invoices[ins.InvoiceID]; ok && inv.CustomerID == customerID {
			out = append(out, ins)
		}
	}
	return out, nil
}

func (r *fakeInstallmentRepo) Save(_ context.Context, installment *billing.Installment) error {
	r.installments[installment.ID] = *installment
	return nil
}

type fakePaymentRepo fakeBillingScope

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *fakePaymentRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var out []billing.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.payments[payment.ID] = *payment
	return nil
}

type fakeCustomerRepo fakeBillingScope

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeCustomerRepo) Save(_ context.Context, customer *partner.Customer) error {
	r.customers[customer.ID] = *customer
	return nil
}

type fakeLedgerRepo fakeBillingScope

func (r *fakeLedgerRepo) Append(_ context.Context, entry *finance.LedgerEntry) error {
	r.ledger = append(r.ledger, *entry)
	return nil
}

func (r *fakeLedgerRepo) FindByParty(_ context.Context, partyType finance.PartyType, partyID uuid.UUID) ([]finance.LedgerEntry, error) {
	var out []finance.LedgerEntry
	for _, e := range r.ledger {
		if e.PartyType == partyType && e.PartyID == partyID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeNumbers issues sequential display numbers without a database
type fakeNumbers struct {
	next int
}

func (n *fakeNumbers) Next(_ context.Context, sequence string) (string, error) {
	n.next++
	return fmt.Sprintf("%s-2026-%06d", sequence, n.next), nil
}

var (
	_ TransactionScope          = (*fakeBillingScope)(nil)
	_ TransactionalRepositories = (*fakeBillingScope)(nil)
	_ shared.NumberGenerator    = (*fakeNumbers)(nil)
)

type billingFixture struct {
	scope      *fakeBillingScope
	service    *InstallmentService
	invoiceID  uuid.UUID
	customerID uuid.UUID
}

// newBillingFixture seeds a sent invoice for 1000.00 owed by a customer whose
// outstanding balance already includes it
func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	scope := newFakeBillingScope()

	customer, err := partner.NewCustomer("Acme Corp")
	require.NoError(t, err)
	customer.IncreaseOutstanding(decimal.NewFromInt(1000))
	scope.customers[customer.ID] = *customer

	invoice, err := billing.NewInvoice("INV-2026-000001", customer.ID, customer.Name,
		decimal.NewFromInt(1000), decimal.Zero, billing.DiscountFixed, decimal.Zero, nil)
	require.NoError(t, err)
	require.NoError(t, invoice.MarkSent())
	scope.invoices[invoice.ID] = *invoice

	service := NewInstallmentService(scope, &fakeNumbers{},
		decimal.RequireFromString("2.5"), zap.NewNop())

	return &billingFixture{
		scope:      scope,
		service:    service,
		invoiceID:  invoice.ID,
		customerID: customer.ID,
	}
}

func (f *billingFixture) planRequest(downPayment int64, n int) CreatePlanRequest {
	return CreatePlanRequest{
		InvoiceID:            f.invoiceID,
		DownPayment:          decimal.NewFromInt(downPayment),
		NumberOfInstallments: n,
		IntervalType:         billing.IntervalMonthly,
		StartDate:            time.Now(),
		DownPaymentMethod:    billing.PaymentMethodCash,
	}
}

func TestInstallmentService_CreatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("creates schedule and records down payment", func(t *testing.T) {
		f := newBillingFixture(t)

		plan, err := f.service.CreatePlan(ctx, f.planRequest(200, 4), testActor)

		require.NoError(t, err)
		require.Len(t, plan.Installments, 4)
		assert.True(t, plan.RemainingBalance().Equal(decimal.NewFromInt(800)))

		invoice := f.scope.invoices[f.invoiceID]
		assert.True(t, invoice.HasInstallment)
		assert.True(t, invoice.PaidAmount.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, billing.InvoiceStatusPartial, invoice.Status)

		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.Equal(decimal.NewFromInt(800)))
		require.Len(t, f.scope.ledger, 1)
		assert.True(t, f.scope.ledger[0].Credit.Equal(decimal.NewFromInt(200)))
		assert.True(t, f.scope.ledger[0].Balance.Equal(decimal.NewFromInt(800)))
	})

	t.Run("rejects a second plan for the same invoice", func(t *testing.T) {
		f := newBillingFixture(t)
		_, err := f.service.CreatePlan(ctx, f.planRequest(0, 3), testActor)
		require.NoError(t, err)

		_, err = f.service.CreatePlan(ctx, f.planRequest(0, 3), testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "PLAN_ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("rejects cancelled invoices", func(t *testing.T) {
		f := newBillingFixture(t)
		invoice := f.scope.invoices[f.invoiceID]
		require.NoError(t, invoice.Cancel())
		f.scope.invoices[f.invoiceID] = invoice

		_, err := f.service.CreatePlan(ctx, f.planRequest(0, 3), testActor)

		require.Error(t, err)
	})

	t.Run("nothing persists when plan creation fails", func(t *testing.T) {
		f := newBillingFixture(t)

		_, err := f.service.CreatePlan(ctx, f.planRequest(1000, 3), testActor)

		require.Error(t, err)
		assert.Empty(t, f.scope.plans)
		assert.Empty(t, f.scope.payments)
		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.Equal(decimal.NewFromInt(1000)))
	})
}

func TestInstallmentService_RecordInstallmentPayment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*billingFixture, billing.Installment) {
		f := newBillingFixture(t)
		plan, err := f.service.CreatePlan(ctx, f.planRequest(0, 4), testActor)
		require.NoError(t, err)
		return f, plan.Installments[0]
	}

	t.Run("applies payment and rederives invoice", func(t *testing.T) {
		f, first := setup(t)

		result, err := f.service.RecordInstallmentPayment(ctx, first.ID,
			PaymentRequest{Amount: decimal.NewFromInt(250), Method: billing.PaymentMethodCash}, testActor)

		require.NoError(t, err)
		assert.Equal(t, billing.InstallmentStatusPaid, result.Installment.Status)
		assert.True(t, result.Invoice.PaidAmount.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, billing.InvoiceStatusPartial, result.Invoice.Status)
		require.NotNil(t, result.Payment.InstallmentID)
		assert.Equal(t, first.ID, *result.Payment.InstallmentID)

		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.Equal(decimal.NewFromInt(750)))
	})

	t.Run("rejects overpayment and rolls everything back", func(t *testing.T) {
		f, first := setup(t)

		_, err := f.service.RecordInstallmentPayment(ctx, first.ID,
			PaymentRequest{Amount: decimal.NewFromInt(251), Method: billing.PaymentMethodCash}, testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "OVERPAYMENT_REJECTED", domainErr.Code)

		assert.Empty(t, f.scope.payments)
		stored := f.scope.installments[first.ID]
		assert.True(t, stored.PaidAmount.IsZero())
		assert.True(t, f.scope.invoices[f.invoiceID].PaidAmount.IsZero())
	})

	t.Run("paying every installment settles the invoice", func(t *testing.T) {
		f, _ := setup(t)
		installments, err := f.scope.Installments().FindByInvoice(ctx, f.invoiceID)
		require.NoError(t, err)

		for _, ins := range installments {
			_, err := f.service.RecordInstallmentPayment(ctx, ins.ID,
				PaymentRequest{Amount: ins.Amount, Method: billing.PaymentMethodCash}, testActor)
			require.NoError(t, err)
		}

		invoice := f.scope.invoices[f.invoiceID]
		assert.Equal(t, billing.InvoiceStatusPaid, invoice.Status)
		assert.True(t, invoice.PaidAmount.Equal(invoice.Total))

		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.IsZero())
		assert.Equal(t, -1, finance.ReplayRunningBalance(decimal.NewFromInt(1000),
			mustLedger(t, f, finance.PartyTypeCustomer, f.customerID)))
	})
}

func TestInstallmentService_RecordDirectPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("settles invoice and customer together", func(t *testing.T) {
		f := newBillingFixture(t)

		result, err := f.service.RecordDirectPayment(ctx, f.invoiceID,
			PaymentRequest{Amount: decimal.NewFromInt(1000), Method: billing.PaymentMethodTransfer}, testActor)

		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid, result.Invoice.Status)
		assert.Nil(t, result.Payment.InstallmentID)
		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.IsZero())
	})

	t.Run("rejects amounts beyond the invoice remainder", func(t *testing.T) {
		f := newBillingFixture(t)

		_, err := f.service.RecordDirectPayment(ctx, f.invoiceID,
			PaymentRequest{Amount: decimal.NewFromInt(1001), Method: billing.PaymentMethodCash}, testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "OVERPAYMENT_REJECTED", domainErr.Code)
	})
}

func TestInstallmentService_VoidPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("void restores invoice and customer debt", func(t *testing.T) {
		f := newBillingFixture(t)
		result, err := f.service.RecordDirectPayment(ctx, f.invoiceID,
			PaymentRequest{Amount: decimal.NewFromInt(400), Method: billing.PaymentMethodCash}, testActor)
		require.NoError(t, err)

		voided, err := f.service.VoidPayment(ctx, result.Payment.ID, testActor)

		require.NoError(t, err)
		assert.True(t, voided.Payment.Voided)
		assert.True(t, voided.Invoice.PaidAmount.IsZero())
		assert.Equal(t, billing.InvoiceStatusSent, voided.Invoice.Status)

		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, -1, finance.ReplayRunningBalance(decimal.NewFromInt(1000),
			mustLedger(t, f, finance.PartyTypeCustomer, f.customerID)))
	})

	t.Run("voiding twice is idempotent", func(t *testing.T) {
		f := newBillingFixture(t)
		result, err := f.service.RecordDirectPayment(ctx, f.invoiceID,
			PaymentRequest{Amount: decimal.NewFromInt(400), Method: billing.PaymentMethodCash}, testActor)
		require.NoError(t, err)
		_, err = f.service.VoidPayment(ctx, result.Payment.ID, testActor)
		require.NoError(t, err)
		ledgerRows := len(f.scope.ledger)

		_, err = f.service.VoidPayment(ctx, result.Payment.ID, testActor)

		require.NoError(t, err)
		assert.Len(t, f.scope.ledger, ledgerRows)
		customer := f.scope.customers[f.customerID]
		assert.True(t, customer.OutstandingBalance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("installment-linked payments cannot be voided", func(t *testing.T) {
		f := newBillingFixture(t)
		plan, err := f.service.CreatePlan(ctx, f.planRequest(0, 4), testActor)
		require.NoError(t, err)
		result, err := f.service.RecordInstallmentPayment(ctx, plan.Installments[0].ID,
			PaymentRequest{Amount: decimal.NewFromInt(100), Method: billing.PaymentMethodCash}, testActor)
		require.NoError(t, err)

		_, err = f.service.VoidPayment(ctx, result.Payment.ID, testActor)

		require.Error(t, err)
		domainErr, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "PAYMENT_NOT_VOIDABLE", domainErr.Code)
	})
}

func TestInstallmentService_ApplyLateCharges(t *testing.T) {
	ctx := context.Background()

	t.Run("charges overdue installments once per accrued amount", func(t *testing.T) {
		f := newBillingFixture(t)
		req := f.planRequest(0, 4)
		req.StartDate = time.Now().AddDate(0, -2, 0)
		_, err := f.service.CreatePlan(ctx, req, testActor)
		require.NoError(t, err)

		now := time.Now()
		first, err := f.service.ApplyLateCharges(ctx, now)
		require.NoError(t, err)
		assert.Positive(t, first.Updated)

		// Same instant, same computed charges, so nothing to update
		second, err := f.service.ApplyLateCharges(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Updated)
	})

	t.Run("no overdue installments is a clean no-op", func(t *testing.T) {
		f := newBillingFixture(t)
		_, err := f.service.CreatePlan(ctx, f.planRequest(0, 4), testActor)
		require.NoError(t, err)

		result, err := f.service.ApplyLateCharges(ctx, time.Now())

		require.NoError(t, err)
		assert.Equal(t, 0, result.Evaluated)
		assert.Equal(t, 0, result.Updated)
	})
}

func mustLedger(t *testing.T, f *billingFixture, partyType finance.PartyType, partyID uuid.UUID) []finance.LedgerEntry {
	t.Helper()
	rows, err := f.scope.Ledger().FindByParty(context.Background(), partyType, partyID)
	require.NoError(t, err)
	return rows
}
