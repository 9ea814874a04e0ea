package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ==================== Requests ====================

// LineItemRequest is one line item as sent by clients
type LineItemRequest struct {
	ItemReference   *uuid.UUID       `json:"item_reference"`
	Description     string           `json:"description" binding:"required,max=1000"`
	QuantityUnits   *decimal.Decimal `json:"quantity_units"`
	QuantityCartons *decimal.Decimal `json:"quantity_cartons"`
	UnitLabel       string           `json:"unit" binding:"max=50"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	PricePerType    string           `json:"price_per_type" binding:"omitempty,oneof=UNIT CARTON"`
	CurrencyCode    string           `json:"currency_code" binding:"omitempty,currency"`
	NetWeightKg     *decimal.Decimal `json:"net_weight_kg"`
	GrossWeightKg   *decimal.Decimal `json:"gross_weight_kg"`
	MeasurementCBM  *decimal.Decimal `json:"measurement_cbm"`
	Comments        string           `json:"comments"`
}

// ShippingRequest carries customs metadata
type ShippingRequest struct {
	ContainerNumber string `json:"container_number" binding:"max=100"`
	SealNumber      string `json:"seal_number" binding:"max=100"`
	HSCode          string `json:"hs_code" binding:"max=50"`
	BLNumber        string `json:"bl_number" binding:"max=100"`
}

// HeaderRequest is the editable invoice header
type HeaderRequest struct {
	InvoiceNumber string           `json:"invoice_number" binding:"required,max=100"`
	CurrencyCode  string           `json:"currency_code" binding:"omitempty,currency"`
	CustomerID    *uuid.UUID       `json:"customer_id"`
	InvoiceDate   string           `json:"invoice_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate       string           `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
	DiscountType  string           `json:"discount_type" binding:"omitempty,oneof=PERCENTAGE FIXED"`
	DiscountValue *decimal.Decimal `json:"discount_value"`
	Notes         string           `json:"comments_notes"`
	Shipping      ShippingRequest  `json:"shipping"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	HeaderRequest
	InvoiceType string            `json:"invoice_type" binding:"required,oneof=PRO_FORMA COMMERCIAL PACKING_LIST"`
	Status      string            `json:"status" binding:"omitempty,oneof=DRAFT UNPAID"`
	LineItems   []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	CreatedBy   *uuid.UUID        `json:"-"`
}

// UpdateInvoiceRequest replaces the header. When LineItems is present the
// whole item list is replaced as well.
type UpdateInvoiceRequest struct {
	HeaderRequest
	LineItems []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RecordPaymentRequest represents a payment to append to the ledger
type RecordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate    string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Method         string          `json:"payment_method" binding:"omitempty,oneof=CASH BANK_TRANSFER CREDIT_CARD CHEQUE OTHER"`
	Notes          string          `json:"notes" binding:"max=1000"`
	IdempotencyKey string          `json:"-"`
}

// TransformRequest tunes a derived document
type TransformRequest struct {
	InvoiceNumber  string     `json:"invoice_number" binding:"max=100"`
	InvoiceDate    string     `json:"invoice_date" binding:"omitempty,datetime=2006-01-02"`
	Status         string     `json:"status" binding:"omitempty,oneof=DRAFT UNPAID"`
	IdempotencyKey string     `json:"-"`
	CreatedBy      *uuid.UUID `json:"-"`
}

// InvoiceListFilter represents filter options for invoice lists
type InvoiceListFilter struct {
	Search      string `form:"search"`
	Status      string `form:"status" binding:"omitempty,oneof=DRAFT UNPAID PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	InvoiceType string `form:"invoice_type" binding:"omitempty,oneof=PRO_FORMA COMMERCIAL PACKING_LIST"`
	CustomerID  string `form:"customer_id" binding:"omitempty,uuid"`
	SourceID    string `form:"source_invoice_id" binding:"omitempty,uuid"`
	FromDate    string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate      string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string `form:"order_by"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DashboardStatsFilter restricts the dashboard to an invoice date range
type DashboardStatsFilter struct {
	FromDate string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate   string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

// ==================== Responses ====================

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID                uuid.UUID        `json:"id"`
	ItemReference     *uuid.UUID       `json:"item_reference,omitempty"`
	Description       string           `json:"description"`
	QuantityUnits     *decimal.Decimal `json:"quantity_units,omitempty"`
	QuantityCartons   *decimal.Decimal `json:"quantity_cartons,omitempty"`
	UnitLabel         string           `json:"unit"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	PricePerType      string           `json:"price_per_type"`
	CurrencyCode      string           `json:"currency_code"`
	EffectiveQuantity decimal.Decimal  `json:"effective_quantity"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	NetWeightKg       *decimal.Decimal `json:"net_weight_kg,omitempty"`
	GrossWeightKg     *decimal.Decimal `json:"gross_weight_kg,omitempty"`
	MeasurementCBM    *decimal.Decimal `json:"measurement_cbm,omitempty"`
	Comments          string           `json:"comments,omitempty"`
	SortOrder         int              `json:"sort_order"`
}

// PaymentResponse represents one ledger entry
type PaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"payment_method,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// ShippingResponse carries customs metadata
type ShippingResponse struct {
	ContainerNumber string `json:"container_number,omitempty"`
	SealNumber      string `json:"seal_number,omitempty"`
	HSCode          string `json:"hs_code,omitempty"`
	BLNumber        string `json:"bl_number,omitempty"`
}

// InvoiceResponse represents a full invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID          `json:"id"`
	OrganizationID  uuid.UUID          `json:"organization_id"`
	InvoiceNumber   string             `json:"invoice_number"`
	InvoiceType     string             `json:"invoice_type"`
	Status          string             `json:"status"`
	CurrencyCode    string             `json:"currency_code"`
	CustomerID      *uuid.UUID         `json:"customer_id,omitempty"`
	InvoiceDate     string             `json:"invoice_date"`
	DueDate         *string            `json:"due_date,omitempty"`
	TaxPercentage   *decimal.Decimal   `json:"tax_percentage,omitempty"`
	DiscountType    *string            `json:"discount_type,omitempty"`
	DiscountValue   *decimal.Decimal   `json:"discount_value,omitempty"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	AmountPaid      decimal.Decimal    `json:"amount_paid"`
	BalanceDue      decimal.Decimal    `json:"balance_due"`
	CreditBalance   decimal.Decimal    `json:"credit_balance"`
	SourceInvoiceID *uuid.UUID         `json:"source_invoice_id,omitempty"`
	Notes           string             `json:"comments_notes,omitempty"`
	Shipping        ShippingResponse   `json:"shipping"`
	LineItems       []LineItemResponse `json:"line_items"`
	Payments        []PaymentResponse  `json:"payments"`
	FinalizedAt     *time.Time         `json:"finalized_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Version         int                `json:"version"`
}

// InvoiceListItemResponse is the header-only shape used in lists
type InvoiceListItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceType     string          `json:"invoice_type"`
	Status          string          `json:"status"`
	CurrencyCode    string          `json:"currency_code"`
	CustomerID      *uuid.UUID      `json:"customer_id,omitempty"`
	InvoiceDate     string          `json:"invoice_date"`
	DueDate         *string         `json:"due_date,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	BalanceDue      decimal.Decimal `json:"balance_due"`
	SourceInvoiceID *uuid.UUID      `json:"source_invoice_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RecordPaymentResponse returns the new ledger entry with the updated invoice
type RecordPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
	// Replayed is set when the result comes from an earlier request with the same idempotency key
	Replayed bool `json:"replayed"`
}

// LineItemMutationResponse returns the touched line item with the updated invoice
type LineItemMutationResponse struct {
	LineItem LineItemResponse `json:"line_item"`
	Invoice  InvoiceResponse  `json:"invoice"`
}

// DashboardStatsResponse summarises an organization's invoices
type DashboardStatsResponse struct {
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueCount     int64           `json:"overdue_count"`
	InvoiceCount     int64           `json:"invoice_count"`
	FromDate         *string         `json:"from_date,omitempty"`
	ToDate           *string         `json:"to_date,omitempty"`
}

// RefreshResult reports one overdue sweep
type RefreshResult struct {
	Scanned   int `json:"scanned"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// ==================== Mapping ====================

// ToInvoiceResponse converts a domain invoice to a response
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:              inv.ID,
		OrganizationID:  inv.OrganizationID,
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceType:     string(inv.InvoiceType),
		Status:          string(inv.Status),
		CurrencyCode:    inv.CurrencyCode.String(),
		CustomerID:      inv.CustomerID,
		InvoiceDate:     inv.InvoiceDate.Format(DateLayout),
		DueDate:         formatDatePtr(inv.DueDate),
		TaxPercentage:   inv.TaxPercentage,
		DiscountValue:   inv.DiscountValue,
		Subtotal:        inv.Subtotal,
		TaxAmount:       inv.TaxAmount,
		DiscountAmount:  inv.DiscountAmount,
		TotalAmount:     inv.TotalAmount,
		AmountPaid:      inv.AmountPaid,
		BalanceDue:      inv.BalanceDue(),
		CreditBalance:   inv.CreditBalance(),
		SourceInvoiceID: inv.SourceInvoiceID,
		Notes:           inv.Notes,
		Shipping: ShippingResponse{
			ContainerNumber: inv.Shipping.ContainerNumber,
			SealNumber:      inv.Shipping.SealNumber,
			HSCode:          inv.Shipping.HSCode,
			BLNumber:        inv.Shipping.BLNumber,
		},
		LineItems:    make([]LineItemResponse, len(inv.LineItems)),
		Payments:     ToPaymentResponses(inv.Payments),
		FinalizedAt:  inv.FinalizedAt,
		CancelledAt:  inv.CancelledAt,
		CancelReason: inv.CancelReason,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
	if inv.DiscountType != nil {
		dt := string(*inv.DiscountType)
		resp.DiscountType = &dt
	}
	for i := range inv.LineItems {
		resp.LineItems[i] = ToLineItemResponse(&inv.LineItems[i])
	}
	return resp
}

// ToLineItemResponse converts a domain line item to a response
func ToLineItemResponse(li *invoice.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:                li.ID,
		ItemReference:     li.ItemReference,
		Description:       li.Description,
		QuantityUnits:     li.QuantityUnits,
		QuantityCartons:   li.QuantityCartons,
		UnitLabel:         li.UnitLabel,
		UnitPrice:         li.UnitPrice,
		PricePerType:      string(li.PricePerType),
		CurrencyCode:      li.CurrencyCode.String(),
		EffectiveQuantity: li.EffectiveQuantity(),
		LineTotal:         li.LineTotal,
		NetWeightKg:       li.NetWeightKg,
		GrossWeightKg:     li.GrossWeightKg,
		MeasurementCBM:    li.MeasurementCBM,
		Comments:          li.Comments,
		SortOrder:         li.SortOrder,
	}
}

// ToPaymentResponse converts a ledger entry to a response
func ToPaymentResponse(p *invoice.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount,
		PaymentDate: p.PaidOn.Format(DateLayout),
		Method:      string(p.Method),
		Notes:       p.Notes,
		RecordedAt:  p.RecordedAt,
	}
}

// ToPaymentResponses converts a ledger, oldest first
func ToPaymentResponses(ledger invoice.Ledger) []PaymentResponse {
	out := make([]PaymentResponse, len(ledger))
	for i := range ledger {
		out[i] = ToPaymentResponse(&ledger[i])
	}
	return out
}

// ToInvoiceListItemResponses converts invoice headers to list responses
func ToInvoiceListItemResponses(invoices []invoice.Invoice) []InvoiceListItemResponse {
	out := make([]InvoiceListItemResponse, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		out[i] = InvoiceListItemResponse{
			ID:              inv.ID,
			InvoiceNumber:   inv.InvoiceNumber,
			InvoiceType:     string(inv.InvoiceType),
			Status:          string(inv.Status),
			CurrencyCode:    inv.CurrencyCode.String(),
			CustomerID:      inv.CustomerID,
			InvoiceDate:     inv.InvoiceDate.Format(DateLayout),
			DueDate:         formatDatePtr(inv.DueDate),
			TotalAmount:     inv.TotalAmount,
			AmountPaid:      inv.AmountPaid,
			BalanceDue:      inv.BalanceDue(),
			SourceInvoiceID: inv.SourceInvoiceID,
			CreatedAt:       inv.CreatedAt,
			UpdatedAt:       inv.UpdatedAt,
		}
	}
	return out
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
