package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	OrganizationAggregateModel
	InvoiceNumber   string                `gorm:"type:varchar(100);not null;index"`
	InvoiceType     invoice.InvoiceType   `gorm:"type:varchar(20);not null;index"`
	Status          invoice.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CurrencyCode    string                `gorm:"type:varchar(3);not null;default:'USD'"`
	CustomerID      *uuid.UUID            `gorm:"type:uuid;index"`
	InvoiceDate     time.Time             `gorm:"type:date;not null;index"`
	DueDate         *time.Time            `gorm:"type:date;index"`
	TaxPercentage   *decimal.Decimal      `gorm:"type:decimal(9,4)"`
	DiscountType    *invoice.DiscountType `gorm:"type:varchar(20)"`
	DiscountValue   *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	Subtotal        decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	AmountPaid      decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	SourceInvoiceID *uuid.UUID            `gorm:"type:uuid;index"`
	Notes           string                `gorm:"type:text"`
	ContainerNumber string                `gorm:"type:varchar(100)"`
	SealNumber      string                `gorm:"type:varchar(100)"`
	HSCode          string                `gorm:"column:hs_code;type:varchar(50)"`
	BLNumber        string                `gorm:"column:bl_number;type:varchar(100)"`
	FinalizedAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    string                 `gorm:"type:varchar(500)"`
	LineItems       []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments        []InvoicePaymentModel  `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	inv := &invoice.Invoice{
		OrganizationAggregateRoot: m.ToDomainOrganizationAggregateRoot(),
		InvoiceNumber:             m.InvoiceNumber,
		InvoiceType:               m.InvoiceType,
		Status:                    m.Status,
		CurrencyCode:              valueobject.CurrencyCode(m.CurrencyCode),
		CustomerID:                m.CustomerID,
		InvoiceDate:               invoice.DateOf(m.InvoiceDate),
		TaxPercentage:             m.TaxPercentage,
		DiscountType:              m.DiscountType,
		DiscountValue:             m.DiscountValue,
		Subtotal:                  m.Subtotal,
		TaxAmount:                 m.TaxAmount,
		DiscountAmount:            m.DiscountAmount,
		TotalAmount:               m.TotalAmount,
		AmountPaid:                m.AmountPaid,
		SourceInvoiceID:           m.SourceInvoiceID,
		Notes:                     m.Notes,
		Shipping: invoice.Shipping{
			ContainerNumber: m.ContainerNumber,
			SealNumber:      m.SealNumber,
			HSCode:          m.HSCode,
			BLNumber:        m.BLNumber,
		},
		FinalizedAt:  m.FinalizedAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		LineItems:    make([]invoice.LineItem, len(m.LineItems)),
		Payments:     make(invoice.Ledger, len(m.Payments)),
	}
	if m.DueDate != nil {
		due := invoice.DateOf(*m.DueDate)
		inv.DueDate = &due
	}
	for i := range m.LineItems {
		inv.LineItems[i] = *m.LineItems[i].ToDomain()
	}
	for i := range m.Payments {
		inv.Payments[i] = *m.Payments[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainOrganizationAggregateRoot(inv.OrganizationAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.InvoiceType = inv.InvoiceType
	m.Status = inv.Status
	m.CurrencyCode = inv.CurrencyCode.String()
	m.CustomerID = inv.CustomerID
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.TaxPercentage = inv.TaxPercentage
	m.DiscountType = inv.DiscountType
	m.DiscountValue = inv.DiscountValue
	m.Subtotal = inv.Subtotal
	m.TaxAmount = inv.TaxAmount
	m.DiscountAmount = inv.DiscountAmount
	m.TotalAmount = inv.TotalAmount
	m.AmountPaid = inv.AmountPaid
	m.SourceInvoiceID = inv.SourceInvoiceID
	m.Notes = inv.Notes
	m.ContainerNumber = inv.Shipping.ContainerNumber
	m.SealNumber = inv.Shipping.SealNumber
	m.HSCode = inv.Shipping.HSCode
	m.BLNumber = inv.Shipping.BLNumber
	m.FinalizedAt = inv.FinalizedAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason

	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i := range inv.LineItems {
		m.LineItems[i].FromDomain(&inv.LineItems[i])
	}
	m.Payments = make([]InvoicePaymentModel, len(inv.Payments))
	for i := range inv.Payments {
		m.Payments[i].FromDomain(&inv.Payments[i])
		m.Payments[i].Seq = i + 1
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineItemModel is the persistence model for an invoice line item.
type InvoiceLineItemModel struct {
	BaseModel
	InvoiceID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	ItemReference   *uuid.UUID           `gorm:"type:uuid"`
	Description     string               `gorm:"type:text;not null"`
	QuantityUnits   *decimal.Decimal     `gorm:"type:decimal(18,4)"`
	QuantityCartons *decimal.Decimal     `gorm:"type:decimal(18,4)"`
	UnitLabel       string               `gorm:"type:varchar(50);not null;default:'pieces'"`
	UnitPrice       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PricePerType    invoice.PricePerType `gorm:"type:varchar(10);not null;default:'UNIT'"`
	CurrencyCode    string               `gorm:"type:varchar(3);not null"`
	NetWeightKg     *decimal.Decimal     `gorm:"column:net_weight_kg;type:decimal(18,4)"`
	GrossWeightKg   *decimal.Decimal     `gorm:"column:gross_weight_kg;type:decimal(18,4)"`
	MeasurementCBM  *decimal.Decimal     `gorm:"column:measurement_cbm;type:decimal(18,4)"`
	Comments        string               `gorm:"type:text"`
	SortOrder       int                  `gorm:"not null;default:0"`
	LineTotal       decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *InvoiceLineItemModel) ToDomain() *invoice.LineItem {
	return &invoice.LineItem{
		ID:              m.ID,
		InvoiceID:       m.InvoiceID,
		ItemReference:   m.ItemReference,
		Description:     m.Description,
		QuantityUnits:   m.QuantityUnits,
		QuantityCartons: m.QuantityCartons,
		UnitLabel:       m.UnitLabel,
		UnitPrice:       m.UnitPrice,
		PricePerType:    m.PricePerType,
		CurrencyCode:    valueobject.CurrencyCode(m.CurrencyCode),
		NetWeightKg:     m.NetWeightKg,
		GrossWeightKg:   m.GrossWeightKg,
		MeasurementCBM:  m.MeasurementCBM,
		Comments:        m.Comments,
		SortOrder:       m.SortOrder,
		LineTotal:       m.LineTotal,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LineItem.
func (m *InvoiceLineItemModel) FromDomain(li *invoice.LineItem) {
	m.ID = li.ID
	m.CreatedAt = li.CreatedAt
	m.UpdatedAt = li.UpdatedAt
	m.InvoiceID = li.InvoiceID
	m.ItemReference = li.ItemReference
	m.Description = li.Description
	m.QuantityUnits = li.QuantityUnits
	m.QuantityCartons = li.QuantityCartons
	m.UnitLabel = li.UnitLabel
	m.UnitPrice = li.UnitPrice
	m.PricePerType = li.PricePerType
	m.CurrencyCode = li.CurrencyCode.String()
	m.NetWeightKg = li.NetWeightKg
	m.GrossWeightKg = li.GrossWeightKg
	m.MeasurementCBM = li.MeasurementCBM
	m.Comments = li.Comments
	m.SortOrder = li.SortOrder
	m.LineTotal = li.LineTotal
}

// InvoicePaymentModel is the persistence model for one ledger entry. Rows are
// only ever inserted. Seq is the 1-based ledger position within the invoice.
type InvoicePaymentModel struct {
	ID         uuid.UUID             `gorm:"type:uuid;primary_key"`
	InvoiceID  uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoice_payments_seq"`
	Seq        int                   `gorm:"not null;uniqueIndex:idx_invoice_payments_seq"`
	Amount     decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaidOn     time.Time             `gorm:"type:date;not null"`
	Method     invoice.PaymentMethod `gorm:"type:varchar(20)"`
	Notes      string                `gorm:"type:text"`
	RecordedAt time.Time             `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *InvoicePaymentModel) ToDomain() *invoice.Payment {
	return &invoice.Payment{
		ID:         m.ID,
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		PaidOn:     invoice.DateOf(m.PaidOn),
		Method:     m.Method,
		Notes:      m.Notes,
		RecordedAt: m.RecordedAt,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *InvoicePaymentModel) FromDomain(p *invoice.Payment) {
	m.ID = p.ID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.PaidOn = p.PaidOn
	m.Method = p.Method
	m.Notes = p.Notes
	m.RecordedAt = p.RecordedAt
}
