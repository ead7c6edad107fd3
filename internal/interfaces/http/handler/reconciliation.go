package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/application/reconciliation"
)

// ReconciliationHandler exposes the reconciliation sweeps for manual runs.
// The scheduler drives the same services on a timer; these endpoints exist
// for operators who need a sweep right now.
type ReconciliationHandler struct {
	BaseHandler
	sweeps *reconciliation.SweepService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(sweeps *reconciliation.SweepService) *ReconciliationHandler {
	return &ReconciliationHandler{sweeps: sweeps}
}

// RegisterRoutes registers the reconciliation routes
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/reconciliation")
	group.POST("/expire-reservations", h.ExpireReservations)
	group.POST("/audit", h.Audit)
	group.POST("/rollup", h.Rollup)
}

// ExpireReservations handles POST /api/v1/reconciliation/expire-reservations
func (h *ReconciliationHandler) ExpireReservations(c *gin.Context) {
	result, err := h.sweeps.ExpireReservations(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Audit handles POST /api/v1/reconciliation/audit
func (h *ReconciliationHandler) Audit(c *gin.Context) {
	report, err := h.sweeps.AuditConsistency(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Rollup handles POST /api/v1/reconciliation/rollup
func (h *ReconciliationHandler) Rollup(c *gin.Context) {
	since := time.Now().AddDate(0, 0, -1)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	report, err := h.sweeps.DailyRollup(c.Request.Context(), since)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
