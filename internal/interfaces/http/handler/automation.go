package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	automationapp "github.com/stockledger/backend/internal/application/automation"
)

// AutomationHandler exposes the posting engine's triggers, the failed run
// list and manual retry over HTTP
type AutomationHandler struct {
	BaseHandler
	postings *automationapp.PostingService
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(postings *automationapp.PostingService) *AutomationHandler {
	return &AutomationHandler{postings: postings}
}

// RegisterRoutes registers the posting engine routes
func (h *AutomationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	orders.POST("/:id/complete", h.CompletePurchase)
	orders.POST("/:id/bill", h.CreateBill)

	rg.POST("/vendor-bills/:id/post-expense", h.PostExpense)
	rg.POST("/invoices/:id/post-paid", h.PostInvoicePaid)

	logs := rg.Group("/automation/logs")
	logs.GET("/failed", h.ListFailed)
	logs.POST("/:id/retry", h.Retry)
}

// CompletePurchase handles POST /api/v1/purchase-orders/:id/complete
func (h *AutomationHandler) CompletePurchase(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid purchase order id")
		return
	}

	result, err := h.postings.OnPurchaseCompleted(c.Request.Context(), id, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CreateBill handles POST /api/v1/purchase-orders/:id/bill
func (h *AutomationHandler) CreateBill(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid purchase order id")
		return
	}

	result, err := h.postings.CreateBillFromPurchaseOrder(c.Request.Context(), id, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// PostExpense handles POST /api/v1/vendor-bills/:id/post-expense
func (h *AutomationHandler) PostExpense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid bill id")
		return
	}

	result, err := h.postings.PostSupplierExpense(c.Request.Context(), id, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PostInvoicePaid handles POST /api/v1/invoices/:id/post-paid
func (h *AutomationHandler) PostInvoicePaid(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid invoice id")
		return
	}

	result, err := h.postings.OnInvoicePaid(c.Request.Context(), id, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Retry handles POST /api/v1/automation/logs/:id/retry
func (h *AutomationHandler) Retry(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "invalid log entry id")
		return
	}

	result, err := h.postings.Retry(c.Request.Context(), id, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListFailed handles GET /api/v1/automation/logs/failed
func (h *AutomationHandler) ListFailed(c *gin.Context) {
	limit := 50
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}

	entries, err := h.postings.FailedRuns(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
