package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
)

// ReservationHandler exposes the inventory state machine over HTTP
type ReservationHandler struct {
	BaseHandler
	reservations *inventoryapp.ReservationService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(reservations *inventoryapp.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// RegisterRoutes registers the reservation routes
func (h *ReservationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/reservations")
	group.POST("", h.Reserve)
	group.POST("/release", h.Release)
	group.POST("/mark-sold", h.MarkSold)
	group.POST("/sell-direct", h.SellDirect)
	group.POST("/deliver", h.Deliver)
}

// ReserveRequest represents a request to reserve units for an invoice
type ReserveRequest struct {
	UnitIDs   []uuid.UUID `json:"unit_ids" binding:"required,min=1"`
	InvoiceID uuid.UUID   `json:"invoice_id" binding:"required"`
}

// HolderRequest represents a request keyed by the holding invoice
type HolderRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
}

// DeliverRequest represents a request to mark an invoice's units delivered
type DeliverRequest struct {
	InvoiceID   uuid.UUID `json:"invoice_id" binding:"required"`
	DeliveredTo string    `json:"delivered_to" binding:"required"`
	Notes       string    `json:"notes"`
}

// Reserve handles POST /api/v1/reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.reservations.Reserve(c.Request.Context(), req.UnitIDs, req.InvoiceID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Release handles POST /api/v1/reservations/release
func (h *ReservationHandler) Release(c *gin.Context) {
	var req HolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.reservations.Release(c.Request.Context(), req.InvoiceID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MarkSold handles POST /api/v1/reservations/mark-sold
func (h *ReservationHandler) MarkSold(c *gin.Context) {
	var req HolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.reservations.MarkSold(c.Request.Context(), req.InvoiceID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SellDirect handles POST /api/v1/reservations/sell-direct
func (h *ReservationHandler) SellDirect(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.reservations.SellDirect(c.Request.Context(), req.UnitIDs, req.InvoiceID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Deliver handles POST /api/v1/reservations/deliver
func (h *ReservationHandler) Deliver(c *gin.Context) {
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	info := inventoryapp.DeliveryInfo{DeliveredTo: req.DeliveredTo, Notes: req.Notes}
	result, err := h.reservations.MarkDelivered(c.Request.Context(), req.InvoiceID, getActor(c), info)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
