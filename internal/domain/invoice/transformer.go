package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// ErrInvalidSourceType is returned when a document cannot be derived from the given invoice type
var ErrInvalidSourceType = shared.NewDomainError("INVALID_SOURCE_TYPE", "Invoice type cannot be used as the source of this document")

// Default number suffix and prefix for derived documents
const (
	CommercialNumberSuffix  = "-COMM"
	PackingListNumberPrefix = "PL-"
)

// TransformOptions tunes a derived document. Zero values pick the defaults.
type TransformOptions struct {
	// Number overrides the generated invoice number
	Number string
	// InvoiceDate defaults to today
	InvoiceDate *time.Time
	// InitialStatus is DRAFT or UNPAID, default UNPAID
	InitialStatus InvoiceStatus
	CreatedBy     *uuid.UUID
}

// TransformToCommercial creates a new COMMERCIAL invoice from a PRO_FORMA one.
// Line items are deep-copied with fresh identities and without physical
// attributes. The source is only read.
func TransformToCommercial(src *Invoice, opts TransformOptions, now time.Time) (*Invoice, error) {
	if src.InvoiceType != TypeProForma {
		return nil, ErrInvalidSourceType
	}
	if src.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	if opts.Number == "" {
		opts.Number = src.InvoiceNumber + CommercialNumberSuffix
	}
	return deriveDocument(src, TypeCommercial, opts, false, now)
}

// GeneratePackingList creates a new PACKING_LIST from a COMMERCIAL invoice.
// Line items are deep-copied including weights and measurements.
func GeneratePackingList(src *Invoice, opts TransformOptions, now time.Time) (*Invoice, error) {
	if src.InvoiceType != TypeCommercial {
		return nil, ErrInvalidSourceType
	}
	if src.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	if opts.Number == "" {
		opts.Number = PackingListNumberPrefix + src.InvoiceNumber
	}
	return deriveDocument(src, TypePackingList, opts, true, now)
}

// deriveDocument builds the new aggregate through NewInvoice so totals and
// status are computed exactly as for a freshly created invoice.
func deriveDocument(src *Invoice, typ InvoiceType, opts TransformOptions, keepPhysical bool, now time.Time) (*Invoice, error) {
	header := src.Header()
	header.InvoiceNumber = opts.Number
	header.InvoiceDate = now
	if opts.InvoiceDate != nil {
		header.InvoiceDate = *opts.InvoiceDate
	}

	status := opts.InitialStatus
	if status == "" {
		status = StatusUnpaid
	}

	items := make([]LineItemInput, len(src.LineItems))
	for i := range src.LineItems {
		in := src.LineItems[i].Input()
		if !keepPhysical {
			in.NetWeightKg = nil
			in.GrossWeightKg = nil
			in.MeasurementCBM = nil
		}
		items[i] = in
	}

	inv, err := NewInvoice(src.OrganizationID, NewInvoiceParams{
		HeaderInput:   header,
		InvoiceType:   typ,
		InitialStatus: status,
		LineItems:     items,
		CreatedBy:     opts.CreatedBy,
	}, now)
	if err != nil {
		return nil, err
	}
	sourceID := src.ID
	inv.SourceInvoiceID = &sourceID
	inv.AddDomainEvent(NewInvoiceDerivedEvent(inv, src))
	return inv, nil
}
