package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice listings
type InvoiceFilter struct {
	shared.Filter
	Status     *InvoiceStatus // Filter by status
	Type       *InvoiceType   // Filter by document type
	CustomerID *uuid.UUID     // Filter by customer
	FromDate   *time.Time     // Invoice date range start (inclusive)
	ToDate     *time.Time     // Invoice date range end (inclusive)
	SourceID   *uuid.UUID     // Documents derived from this invoice
}

// DashboardStats summarises an organization's invoices
type DashboardStats struct {
	TotalInvoiced    decimal.Decimal
	TotalCollected   decimal.Decimal
	TotalOutstanding decimal.Decimal
	OverdueCount     int64
	InvoiceCount     int64
}

// MutateFunc changes a locked invoice in place. Returning an error rolls back.
type MutateFunc func(inv *Invoice) error

// InvoiceRepository defines the persistence port for the invoice aggregate.
// Every method is scoped by organization id.
type InvoiceRepository interface {
	// FindByIDForOrg loads the full aggregate (items and ledger)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Invoice, error)

	// FindAllForOrg lists invoice headers with filtering and pagination.
	// Line items and payments are not loaded.
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForOrg counts invoices matching the filter, ignoring pagination
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter InvoiceFilter) (int64, error)

	// Create persists a new aggregate in a single transaction
	Create(ctx context.Context, inv *Invoice) error

	// Mutate loads the invoice under a row lock, applies fn and saves the
	// result in the same transaction
	Mutate(ctx context.Context, orgID, id uuid.UUID, fn MutateFunc) (*Invoice, error)

	// DeleteForOrg removes an invoice with its items and payments
	DeleteForOrg(ctx context.Context, orgID, id uuid.UUID) error

	// FindPastDueOpen returns ids of open invoices whose due date is before asOf
	FindPastDueOpen(ctx context.Context, asOf time.Time, limit int) ([]OrgInvoiceRef, error)

	// DashboardStats aggregates amounts over invoices dated in [from, to]
	DashboardStats(ctx context.Context, orgID uuid.UUID, from, to *time.Time, asOf time.Time) (*DashboardStats, error)
}

// OrgInvoiceRef identifies one invoice of one organization
type OrgInvoiceRef struct {
	OrganizationID uuid.UUID
	InvoiceID      uuid.UUID
}
