package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"go.uber.org/multierr"
)

// toHeaderInput parses the wire header. Every bad field is reported at once.
func toHeaderInput(h HeaderRequest) (invoice.HeaderInput, error) {
	var errs error
	out := invoice.HeaderInput{
		InvoiceNumber: h.InvoiceNumber,
		CustomerID:    h.CustomerID,
		TaxPercentage: h.TaxPercentage,
		DiscountValue: h.DiscountValue,
		Notes:         strings.TrimSpace(h.Notes),
		Shipping: invoice.Shipping{
			ContainerNumber: strings.TrimSpace(h.Shipping.ContainerNumber),
			SealNumber:      strings.TrimSpace(h.Shipping.SealNumber),
			HSCode:          strings.TrimSpace(h.Shipping.HSCode),
			BLNumber:        strings.TrimSpace(h.Shipping.BLNumber),
		},
	}

	if h.CurrencyCode != "" {
		code, err := valueobject.ParseCurrencyCode(h.CurrencyCode)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("currency_code", err.Error()))
		}
		out.CurrencyCode = code
	}
	if d, err := parseDate("invoice_date", h.InvoiceDate); err != nil {
		errs = multierr.Append(errs, err)
	} else if d != nil {
		out.InvoiceDate = *d
	}
	due, err := parseDate("due_date", h.DueDate)
	errs = multierr.Append(errs, err)
	out.DueDate = due

	if h.DiscountType != "" {
		dt, err := invoice.ParseDiscountType(h.DiscountType)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("discount_type", err.Error()))
		} else {
			out.DiscountType = &dt
		}
	}
	return out, shared.AsValidationError(errs)
}

// toLineItemInputs parses a list of wire line items, prefixing field errors
// with the item position
func toLineItemInputs(items []LineItemRequest) ([]invoice.LineItemInput, error) {
	var errs error
	out := make([]invoice.LineItemInput, len(items))
	for i, item := range items {
		in, err := toLineItemInput(item)
		if err != nil {
			var ve *shared.ValidationError
			if errors.As(err, &ve) {
				err = ve.Prefixed(fmt.Sprintf("line_items[%d]", i))
			}
			errs = multierr.Append(errs, err)
			continue
		}
		out[i] = in
	}
	if err := shared.AsValidationError(errs); err != nil {
		return nil, err
	}
	return out, nil
}

func toLineItemInput(r LineItemRequest) (invoice.LineItemInput, error) {
	var errs error
	in := invoice.LineItemInput{
		ItemReference:   r.ItemReference,
		Description:     r.Description,
		QuantityUnits:   r.QuantityUnits,
		QuantityCartons: r.QuantityCartons,
		UnitLabel:       strings.TrimSpace(r.UnitLabel),
		UnitPrice:       r.UnitPrice,
		NetWeightKg:     r.NetWeightKg,
		GrossWeightKg:   r.GrossWeightKg,
		MeasurementCBM:  r.MeasurementCBM,
		Comments:        r.Comments,
	}
	ppt, err := invoice.ParsePricePerType(r.PricePerType)
	if err != nil {
		errs = multierr.Append(errs, shared.NewFieldError("price_per_type", err.Error()))
	}
	in.PricePerType = ppt
	if r.CurrencyCode != "" {
		code, err := valueobject.ParseCurrencyCode(r.CurrencyCode)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("currency_code", err.Error()))
		}
		in.CurrencyCode = code
	}
	return in, shared.AsValidationError(errs)
}

func toPaymentInput(r RecordPaymentRequest) (invoice.PaymentInput, error) {
	var errs error
	in := invoice.PaymentInput{
		Amount: r.Amount,
		Notes:  strings.TrimSpace(r.Notes),
	}
	method, err := invoice.ParsePaymentMethod(r.Method)
	if err != nil {
		errs = multierr.Append(errs, shared.NewFieldError("payment_method", err.Error()))
	}
	in.Method = method
	if d, err := parseDate("payment_date", r.PaymentDate); err != nil {
		errs = multierr.Append(errs, err)
	} else if d != nil {
		in.PaidOn = *d
	}
	return in, shared.AsValidationError(errs)
}

func toTransformOptions(r TransformRequest) (invoice.TransformOptions, error) {
	var errs error
	opts := invoice.TransformOptions{
		Number:    strings.TrimSpace(r.InvoiceNumber),
		CreatedBy: r.CreatedBy,
	}
	d, err := parseDate("invoice_date", r.InvoiceDate)
	errs = multierr.Append(errs, err)
	opts.InvoiceDate = d
	if r.Status != "" {
		status, err := invoice.ParseInvoiceStatus(r.Status)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("status", err.Error()))
		}
		opts.InitialStatus = status
	}
	return opts, shared.AsValidationError(errs)
}

func toInvoiceFilter(f InvoiceListFilter) (invoice.InvoiceFilter, error) {
	var errs error
	out := invoice.InvoiceFilter{
		Filter: shared.Filter{
			Page:     f.Page,
			PageSize: f.PageSize,
			OrderBy:  f.OrderBy,
			OrderDir: f.OrderDir,
			Search:   strings.TrimSpace(f.Search),
		},
	}
	if out.OrderBy == "" {
		out.OrderBy = "created_at"
	}
	out.Filter = out.Filter.Normalize()

	if f.Status != "" {
		status, err := invoice.ParseInvoiceStatus(f.Status)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("status", err.Error()))
		} else {
			out.Status = &status
		}
	}
	if f.InvoiceType != "" {
		typ, err := invoice.ParseInvoiceType(f.InvoiceType)
		if err != nil {
			errs = multierr.Append(errs, shared.NewFieldError("invoice_type", err.Error()))
		} else {
			out.Type = &typ
		}
	}
	customerID, err := parseOptionalUUID("customer_id", f.CustomerID)
	errs = multierr.Append(errs, err)
	sourceID, err := parseOptionalUUID("source_invoice_id", f.SourceID)
	errs = multierr.Append(errs, err)
	out.CustomerID, out.SourceID = customerID, sourceID

	from, err := parseDate("from_date", f.FromDate)
	errs = multierr.Append(errs, err)
	to, err := parseDate("to_date", f.ToDate)
	errs = multierr.Append(errs, err)
	out.FromDate, out.ToDate = from, to
	return out, shared.AsValidationError(errs)
}

func parseOptionalUUID(field, s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, shared.NewFieldError(field, "must be a UUID")
	}
	return &id, nil
}

// parseDate reads an optional YYYY-MM-DD value as a UTC calendar date
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, shared.NewFieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}
