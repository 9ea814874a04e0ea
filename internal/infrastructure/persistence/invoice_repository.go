package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements invoice.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

var _ invoice.InvoiceRepository = (*GormInvoiceRepository)(nil)

// FindByIDForOrg finds an invoice with its line items and payments
func (r *GormInvoiceRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := loadChildren(r.db.WithContext(ctx), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForOrg lists invoice headers for an organization with filtering
func (r *GormInvoiceRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter invoice.InvoiceFilter) ([]invoice.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("organization_id = ?", orgID),
		filter,
	)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// CountForOrg counts invoices matching the filter
func (r *GormInvoiceRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter invoice.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("organization_id = ?", orgID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new invoice with its line items and payments
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if len(model.LineItems) > 0 {
			if err := tx.Create(&model.LineItems).Error; err != nil {
				return fmt.Errorf("create invoice line items: %w", err)
			}
		}
		if len(model.Payments) > 0 {
			if err := tx.Create(&model.Payments).Error; err != nil {
				return fmt.Errorf("create invoice payments: %w", err)
			}
		}
		return nil
	})
}

// Mutate locks the invoice row with SELECT ... FOR UPDATE, applies fn to the
// loaded aggregate and writes header, line items and new payments back in the
// same transaction. Any error from fn rolls everything back.
func (r *GormInvoiceRepository) Mutate(ctx context.Context, orgID, id uuid.UUID, fn invoice.MutateFunc) (*invoice.Invoice, error) {
	var result *invoice.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.InvoiceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ? AND id = ?", orgID, id).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := loadChildren(tx, &model); err != nil {
			return err
		}

		loadedVersion := model.Version
		knownItems := make(map[uuid.UUID]struct{}, len(model.LineItems))
		for _, item := range model.LineItems {
			knownItems[item.ID] = struct{}{}
		}
		knownPayments := make(map[uuid.UUID]struct{}, len(model.Payments))
		for _, p := range model.Payments {
			knownPayments[p.ID] = struct{}{}
		}

		inv := model.ToDomain()
		if err := fn(inv); err != nil {
			return err
		}

		updated := models.InvoiceModelFromDomain(inv)
		if err := saveHeader(tx, updated, loadedVersion); err != nil {
			return err
		}
		if err := saveLineItems(tx, updated, knownItems); err != nil {
			return err
		}
		if err := insertPayments(tx, updated, knownPayments); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteForOrg deletes an invoice, its line items and its payments.
// Documents derived from it keep their source id.
func (r *GormInvoiceRepository) DeleteForOrg(ctx context.Context, orgID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.InvoiceModel{}).
			Where("organization_id = ? AND id = ?", orgID, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoicePaymentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("organization_id = ? AND id = ?", orgID, id).Delete(&models.InvoiceModel{}).Error
	})
}

// FindPastDueOpen returns UNPAID and PARTIALLY_PAID invoices across all
// organizations whose due date is before asOf's calendar day
func (r *GormInvoiceRepository) FindPastDueOpen(ctx context.Context, asOf time.Time, limit int) ([]invoice.OrgInvoiceRef, error) {
	var rows []struct {
		OrganizationID uuid.UUID
		ID             uuid.UUID
	}
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select("organization_id, id").
		Where("status IN ?", []string{string(invoice.StatusUnpaid), string(invoice.StatusPartiallyPaid)}).
		Where("due_date IS NOT NULL AND due_date < ?", invoice.DateOf(asOf.UTC())).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]invoice.OrgInvoiceRef, len(rows))
	for i, row := range rows {
		refs[i] = invoice.OrgInvoiceRef{OrganizationID: row.OrganizationID, InvoiceID: row.ID}
	}
	return refs, nil
}

// DashboardStats sums amounts over the organization's invoices dated in [from, to]
func (r *GormInvoiceRepository) DashboardStats(ctx context.Context, orgID uuid.UUID, from, to *time.Time, asOf time.Time) (*invoice.DashboardStats, error) {
	var row struct {
		TotalInvoiced    decimal.Decimal
		TotalCollected   decimal.Decimal
		TotalOutstanding decimal.Decimal
		OverdueCount     int64
		InvoiceCount     int64
	}

	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select(`COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) AS total_invoiced,
			COALESCE(SUM(CASE WHEN status <> ? THEN amount_paid ELSE 0 END), 0) AS total_collected,
			COALESCE(SUM(CASE WHEN status IN ? THEN total_amount - amount_paid ELSE 0 END), 0) AS total_outstanding,
			COUNT(CASE WHEN status = ? OR (status IN ? AND due_date < ?) THEN 1 END) AS overdue_count,
			COUNT(*) AS invoice_count`,
			string(invoice.StatusCancelled),
			string(invoice.StatusCancelled),
			openStatuses(),
			string(invoice.StatusOverdue),
			[]string{string(invoice.StatusUnpaid), string(invoice.StatusPartiallyPaid)},
			invoice.DateOf(asOf.UTC()),
		).
		Where("organization_id = ?", orgID)
	if from != nil {
		query = query.Where("invoice_date >= ?", invoice.DateOf(*from))
	}
	if to != nil {
		query = query.Where("invoice_date <= ?", invoice.DateOf(*to))
	}
	if err := query.Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return &invoice.DashboardStats{
		TotalInvoiced:    row.TotalInvoiced.Round(2),
		TotalCollected:   row.TotalCollected.Round(2),
		TotalOutstanding: row.TotalOutstanding.Round(2),
		OverdueCount:     row.OverdueCount,
		InvoiceCount:     row.InvoiceCount,
	}, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoice.InvoiceFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	f := filter.Filter.Normalize()
	query = query.Offset(f.Offset()).Limit(f.PageSize)

	orderBy := ValidateSortField(f.OrderBy, InvoiceSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(f.OrderDir))
	if orderBy != "id" {
		query = query.Order("id ASC")
	}
	return query
}

func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter invoice.InvoiceFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(invoice_number) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Type != nil {
		query = query.Where("invoice_type = ?", string(*filter.Type))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SourceID != nil {
		query = query.Where("source_invoice_id = ?", *filter.SourceID)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", invoice.DateOf(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", invoice.DateOf(*filter.ToDate))
	}
	return query
}

func loadChildren(db *gorm.DB, model *models.InvoiceModel) error {
	if err := db.Where("invoice_id = ?", model.ID).
		Order("sort_order ASC").Order("created_at ASC").
		Find(&model.LineItems).Error; err != nil {
		return fmt.Errorf("load line items: %w", err)
	}
	if err := db.Where("invoice_id = ?", model.ID).
		Order("seq ASC").
		Find(&model.Payments).Error; err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	return nil
}

// saveHeader updates the invoice row, guarded by the version that was read
func saveHeader(tx *gorm.DB, model *models.InvoiceModel, loadedVersion int) error {
	result := tx.Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", model.ID, loadedVersion).
		Select("*").
		Omit("id", "organization_id", "created_at", "created_by", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("update invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// saveLineItems deletes removed items, updates known ones and inserts new ones
func saveLineItems(tx *gorm.DB, model *models.InvoiceModel, known map[uuid.UUID]struct{}) error {
	currentIDs := make([]uuid.UUID, len(model.LineItems))
	for i := range model.LineItems {
		currentIDs[i] = model.LineItems[i].ID
	}

	remove := tx.Where("invoice_id = ?", model.ID)
	if len(currentIDs) > 0 {
		remove = remove.Where("id NOT IN ?", currentIDs)
	}
	if err := remove.Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}

	for i := range model.LineItems {
		item := &model.LineItems[i]
		if _, ok := known[item.ID]; ok {
			if err := tx.Save(item).Error; err != nil {
				return fmt.Errorf("update line item: %w", err)
			}
			continue
		}
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("create line item: %w", err)
		}
	}
	return nil
}

// insertPayments appends ledger entries that are not stored yet
func insertPayments(tx *gorm.DB, model *models.InvoiceModel, known map[uuid.UUID]struct{}) error {
	var fresh []models.InvoicePaymentModel
	for _, p := range model.Payments {
		if _, ok := known[p.ID]; !ok {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := tx.Create(&fresh).Error; err != nil {
		return fmt.Errorf("insert payments: %w", err)
	}
	return nil
}

func openStatuses() []string {
	return []string{
		string(invoice.StatusUnpaid),
		string(invoice.StatusPartiallyPaid),
		string(invoice.StatusOverdue),
	}
}
