package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectLockedInvoice(mock sqlmock.Sqlmock, orgID, id uuid.UUID, version int) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE .*organization_id = \$1 AND id = \$2.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "version", "invoice_number", "invoice_type", "status",
			"currency_code", "total_amount", "amount_paid",
		}).AddRow(id.String(), orgID.String(), version, "INV-1", "PRO_FORMA", "UNPAID", "USD", "100", "0"))
	mock.ExpectQuery(`SELECT \* FROM "invoice_line_items" WHERE invoice_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id"}))
	mock.ExpectQuery(`SELECT \* FROM "invoice_payments" WHERE invoice_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id"}))
}

func TestGormInvoiceRepository_Mutate_LocksRow(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	orgID, id := uuid.New(), uuid.New()

	expectLockedInvoice(mock, orgID, id, 3)
	mock.ExpectRollback()

	errAbort := errors.New("abort")
	_, err := repo.Mutate(context.Background(), orgID, id, func(inv *invoice.Invoice) error {
		assert.Equal(t, 3, inv.GetVersion())
		assert.Equal(t, invoice.StatusUnpaid, inv.Status)
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_Mutate_VersionConflict(t *testing.T) {
	db, mock := newMockDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	orgID, id := uuid.New(), uuid.New()

	expectLockedInvoice(mock, orgID, id, 3)
	mock.ExpectExec(`UPDATE "invoices" SET .* WHERE \(?id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), orgID, id, func(inv *invoice.Invoice) error {
		_, err := inv.RecordPayment(invoice.PaymentInput{Amount: decimal.NewFromInt(10)}, repoTestNow)
		return err
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
