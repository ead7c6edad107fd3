package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInstallmentPlanRepository implements InstallmentPlanRepository using GORM
type GormInstallmentPlanRepository struct {
	db *gorm.DB
}

// NewGormInstallmentPlanRepository creates a new GormInstallmentPlanRepository
func NewGormInstallmentPlanRepository(db *gorm.DB) *GormInstallmentPlanRepository {
	return &GormInstallmentPlanRepository{db: db}
}

// FindByID finds a plan with its installments
func (r *GormInstallmentPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.InstallmentPlan, error) {
	var plan billing.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindByInvoice finds the plan for an invoice, if any
func (r *GormInstallmentPlanRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.InstallmentPlan, error) {
	var plan billing.InstallmentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&plan, "invoice_id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ExistsForInvoice reports whether an invoice already has a plan
func (r *GormInstallmentPlanRepository) ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.InstallmentPlan{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists the plan and all installments atomically
func (r *GormInstallmentPlanRepository) Save(ctx context.Context, plan *billing.InstallmentPlan) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(plan).Error
}

// Ensure GormInstallmentPlanRepository implements InstallmentPlanRepository
var _ billing.InstallmentPlanRepository = (*GormInstallmentPlanRepository)(nil)

// GormInstallmentRepository implements InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Installment, error) {
	var installment billing.Installment
	if err := r.db.WithContext(ctx).First(&installment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &installment, nil
}

// FindByInvoice returns all installments for an invoice in sequence order
func (r *GormInstallmentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Installment, error) {
	var installments []billing.Installment
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("sequence ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// FindOverdue returns installments past due and not fully paid, ordered by
// due date ascending
func (r *GormInstallmentRepository) FindOverdue(ctx context.Context, now time.Time, filter shared.Filter) ([]billing.Installment, error) {
	var installments []billing.Installment
	query := r.db.WithContext(ctx).
		Where("due_date < ? AND paid_amount < amount", now).
		Order("due_date ASC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// FindDueWithin returns unpaid installments due within the window
func (r *GormInstallmentRepository) FindDueWithin(ctx context.Context, now time.Time, window time.Duration) ([]billing.Installment, error) {
	var installments []billing.Installment
	if err := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date < ? AND paid_amount < amount", now, now.Add(window)).
		Order("due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// FindByCustomer returns installments for all of a customer's invoices
func (r *GormInstallmentRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]billing.Installment, error) {
	var installments []billing.Installment
	if err := r.db.WithContext(ctx).
		Joins("JOIN invoices ON invoices.id = installments.invoice_id").
		Where("invoices.customer_id = ?", customerID).
		Order("installments.due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}
	return installments, nil
}

// Save creates or updates an installment
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *billing.Installment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ billing.InstallmentRepository = (*GormInstallmentRepository)(nil)
