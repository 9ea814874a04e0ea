package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	invoiceapp "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
)

// InvoiceService is the application surface used by the invoice endpoints
type InvoiceService interface {
	Create(ctx context.Context, orgID uuid.UUID, req invoiceapp.CreateInvoiceRequest) (*invoiceapp.InvoiceResponse, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*invoiceapp.InvoiceResponse, error)
	List(ctx context.Context, orgID uuid.UUID, filter invoiceapp.InvoiceListFilter) (*shared.Paginated[invoiceapp.InvoiceListItemResponse], error)
	Update(ctx context.Context, orgID, id uuid.UUID, req invoiceapp.UpdateInvoiceRequest) (*invoiceapp.InvoiceResponse, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Finalize(ctx context.Context, orgID, id uuid.UUID) (*invoiceapp.InvoiceResponse, error)
	Cancel(ctx context.Context, orgID, id uuid.UUID, req invoiceapp.CancelInvoiceRequest) (*invoiceapp.InvoiceResponse, error)
	AddLineItem(ctx context.Context, orgID, id uuid.UUID, req invoiceapp.LineItemRequest) (*invoiceapp.LineItemMutationResponse, error)
	UpdateLineItem(ctx context.Context, orgID, id, itemID uuid.UUID, req invoiceapp.LineItemRequest) (*invoiceapp.LineItemMutationResponse, error)
	RemoveLineItem(ctx context.Context, orgID, id, itemID uuid.UUID) (*invoiceapp.InvoiceResponse, error)
	RecordPayment(ctx context.Context, orgID, id uuid.UUID, req invoiceapp.RecordPaymentRequest) (*invoiceapp.RecordPaymentResponse, error)
	ListPayments(ctx context.Context, orgID, id uuid.UUID) ([]invoiceapp.PaymentResponse, error)
	TransformToCommercial(ctx context.Context, orgID, sourceID uuid.UUID, req invoiceapp.TransformRequest) (*invoiceapp.InvoiceResponse, bool, error)
	GeneratePackingList(ctx context.Context, orgID, sourceID uuid.UUID, req invoiceapp.TransformRequest) (*invoiceapp.InvoiceResponse, bool, error)
	GetDashboardStats(ctx context.Context, orgID uuid.UUID, filter invoiceapp.DashboardStatsFilter) (*invoiceapp.DashboardStatsResponse, error)
}

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// RegisterRoutes mounts the invoice endpoints on rg
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/stats", h.GetDashboardStats)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/finalize", h.Finalize)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/items", h.AddLineItem)
	rg.PUT("/:id/items/:item_id", h.UpdateLineItem)
	rg.DELETE("/:id/items/:item_id", h.RemoveLineItem)
	rg.POST("/:id/payments", h.RecordPayment)
	rg.GET("/:id/payments", h.ListPayments)
	rg.POST("/:id/transform-to-commercial", h.TransformToCommercial)
	rg.POST("/:id/generate-packing-list", h.GeneratePackingList)
}

// Create creates an invoice
//
//	POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	var req invoiceapp.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = middleware.GetUserID(c)

	inv, err := h.invoiceService.Create(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, inv)
}

// List returns a page of invoices
//
//	GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	var filter invoiceapp.InvoiceListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.invoiceService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetDashboardStats returns totals across the organization's invoices
//
//	GET /api/v1/invoices/stats
func (h *InvoiceHandler) GetDashboardStats(c *gin.Context) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return
	}

	var filter invoiceapp.DashboardStatsFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	stats, err := h.invoiceService.GetDashboardStats(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// GetByID returns one invoice with its line items and payments
//
//	GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.GetByID(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inv)
}

// Update replaces the invoice header and optionally its line items
//
//	PUT /api/v1/invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	var req invoiceapp.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.Update(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inv)
}

// Delete removes an invoice that has no payments
//
//	DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), orgID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Finalize moves a draft to UNPAID
//
//	POST /api/v1/invoices/:id/finalize
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.Finalize(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inv)
}

// Cancel cancels an invoice. The body with a reason is optional.
//
//	POST /api/v1/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	var req invoiceapp.CancelInvoiceRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.Cancel(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inv)
}

// AddLineItem appends a line item
//
//	POST /api/v1/invoices/:id/items
func (h *InvoiceHandler) AddLineItem(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	var req invoiceapp.LineItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.invoiceService.AddLineItem(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// UpdateLineItem replaces one line item
//
//	PUT /api/v1/invoices/:id/items/:item_id
func (h *InvoiceHandler) UpdateLineItem(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}

	var req invoiceapp.LineItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.invoiceService.UpdateLineItem(c.Request.Context(), orgID, id, itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RemoveLineItem deletes one line item and returns the recomputed invoice
//
//	DELETE /api/v1/invoices/:id/items/:item_id
func (h *InvoiceHandler) RemoveLineItem(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}
	itemID, ok := h.pathUUID(c, "item_id")
	if !ok {
		return
	}

	inv, err := h.invoiceService.RemoveLineItem(c.Request.Context(), orgID, id, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, inv)
}

// RecordPayment appends a payment to the ledger. A repeated
// Idempotency-Key returns the original payment.
//
//	POST /api/v1/invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	var req invoiceapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = idempotencyKey(c)

	result, err := h.invoiceService.RecordPayment(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.CreatedOrReplayed(c, result, result.Replayed)
}

// ListPayments returns the ledger in recording order
//
//	GET /api/v1/invoices/:id/payments
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	payments, err := h.invoiceService.ListPayments(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// TransformToCommercial derives a commercial invoice from a pro-forma
//
//	POST /api/v1/invoices/:id/transform-to-commercial
func (h *InvoiceHandler) TransformToCommercial(c *gin.Context) {
	h.derive(c, h.invoiceService.TransformToCommercial)
}

// GeneratePackingList derives a packing list from a commercial invoice
//
//	POST /api/v1/invoices/:id/generate-packing-list
func (h *InvoiceHandler) GeneratePackingList(c *gin.Context) {
	h.derive(c, h.invoiceService.GeneratePackingList)
}

type deriveFunc func(ctx context.Context, orgID, sourceID uuid.UUID, req invoiceapp.TransformRequest) (*invoiceapp.InvoiceResponse, bool, error)

func (h *InvoiceHandler) derive(c *gin.Context, fn deriveFunc) {
	orgID, id, ok := h.invoiceTarget(c)
	if !ok {
		return
	}

	var req invoiceapp.TransformRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	req.IdempotencyKey = idempotencyKey(c)
	req.CreatedBy = middleware.GetUserID(c)

	inv, replayed, err := fn(c.Request.Context(), orgID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.CreatedOrReplayed(c, inv, replayed)
}

// invoiceTarget resolves the organization and the :id path parameter
func (h *InvoiceHandler) invoiceTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orgID, ok := h.organizationID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, id, true
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
}
