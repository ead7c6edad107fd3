package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billingapp "github.com/stockledger/backend/internal/application/billing"
	"github.com/stockledger/backend/internal/domain/billing"
	"github.com/stockledger/backend/internal/domain/shared"
)

// InstallmentHandler exposes installment plans and payment recording over HTTP
type InstallmentHandler struct {
	BaseHandler
	installments *billingapp.InstallmentService
	queries      *billingapp.InstallmentQueryService
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installments *billingapp.InstallmentService, queries *billingapp.InstallmentQueryService) *InstallmentHandler {
	return &InstallmentHandler{installments: installments, queries: queries}
}

// RegisterRoutes registers the installment and payment routes
func (h *InstallmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.POST("/:id/installment-plan", h.CreatePlan)
	invoices.GET("/:id/installment-plan", h.GetPlan)
	invoices.POST("/:id/payments", h.PayInvoice)

	installments := rg.Group("/installments")
	installments.POST("/:id/payments", h.PayInstallment)
	installments.GET("/overdue", h.ListOverdue)
	installments.GET("/reminders", h.UpcomingReminders)
	installments.POST("/late-charges/run", h.RunLateCharges)

	rg.POST("/payments/:id/void", h.VoidPayment)
	rg.GET("/customers/:id/installment-summary", h.CustomerSummary)
}

// CreatePlanRequest represents a request to create an installment plan
type CreatePlanRequest struct {
	DownPayment          decimal.Decimal `json:"down_payment"`
	NumberOfInstallments int             `json:"number_of_installments" binding:"required,min=1"`
	IntervalType         string          `json:"interval_type"`
	StartDate            time.Time       `json:"start_date" binding:"required"`
	DownPaymentMethod    string          `json:"down_payment_method"`
}

// RecordPaymentRequest represents a payment to record
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required"`
}

// CreatePlan handles POST /api/v1/invoices/:id/installment-plan
func (h *InstallmentHandler) CreatePlan(c *gin.Context) {
	invoiceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	plan, err := h.installments.CreatePlan(c.Request.Context(), billingapp.CreatePlanRequest{
		InvoiceID:            invoiceID,
		DownPayment:          req.DownPayment,
		NumberOfInstallments: req.NumberOfInstallments,
		IntervalType:         billing.IntervalType(req.IntervalType),
		StartDate:            req.StartDate,
		DownPaymentMethod:    billing.PaymentMethod(req.DownPaymentMethod),
	}, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plan)
}

// GetPlan handles GET /api/v1/invoices/:id/installment-plan
func (h *InstallmentHandler) GetPlan(c *gin.Context) {
	invoiceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	plan, err := h.queries.PlanForInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// PayInstallment handles POST /api/v1/installments/:id/payments
func (h *InstallmentHandler) PayInstallment(c *gin.Context) {
	installmentID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid installment id")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.installments.RecordInstallmentPayment(c.Request.Context(), installmentID, billingapp.PaymentRequest{
		Amount: req.Amount,
		Method: billing.PaymentMethod(req.Method),
	}, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// PayInvoice handles POST /api/v1/invoices/:id/payments
func (h *InstallmentHandler) PayInvoice(c *gin.Context) {
	invoiceID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.installments.RecordDirectPayment(c.Request.Context(), invoiceID, billingapp.PaymentRequest{
		Amount: req.Amount,
		Method: billing.PaymentMethod(req.Method),
	}, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// VoidPayment handles POST /api/v1/payments/:id/void
func (h *InstallmentHandler) VoidPayment(c *gin.Context) {
	paymentID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid payment id")
		return
	}

	result, err := h.installments.VoidPayment(c.Request.Context(), paymentID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RunLateCharges handles POST /api/v1/installments/late-charges/run
func (h *InstallmentHandler) RunLateCharges(c *gin.Context) {
	result, err := h.installments.ApplyLateCharges(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListOverdue handles GET /api/v1/installments/overdue
func (h *InstallmentHandler) ListOverdue(c *gin.Context) {
	filter := shared.DefaultFilter()
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 && size <= 100 {
		filter.PageSize = size
	}

	items, err := h.queries.ListOverdue(c.Request.Context(), time.Now(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// CustomerSummary handles GET /api/v1/customers/:id/installment-summary
func (h *InstallmentHandler) CustomerSummary(c *gin.Context) {
	customerID, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid customer id")
		return
	}

	window := 30 * 24 * time.Hour
	if days, err := strconv.Atoi(c.Query("window_days")); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	summary, err := h.queries.CustomerSummary(c.Request.Context(), customerID, time.Now(), window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// UpcomingReminders handles GET /api/v1/installments/reminders
func (h *InstallmentHandler) UpcomingReminders(c *gin.Context) {
	window := 72 * time.Hour
	if hours, err := strconv.Atoi(c.Query("window_hours")); err == nil && hours > 0 {
		window = time.Duration(hours) * time.Hour
	}

	items, err := h.queries.UpcomingReminders(c.Request.Context(), time.Now(), window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}
