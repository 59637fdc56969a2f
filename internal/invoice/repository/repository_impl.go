package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/pkg/db/option"
	"gorm.io/gorm"
)

const invoiceColumns = `id, workspace_id, client_id, biller_id, title, serial_number, po_so_number,
	issue_date, due_date, description, subtotal, payable_amount, is_paid, paid_at, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) invoicedomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) invoicedomain.Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) NextSerialNumber(ctx context.Context, workspaceID snowflake.ID) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(serial_number), 0) + 1
		 FROM invoices
		 WHERE workspace_id = ?`,
		workspaceID,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) InsertInvoice(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.WorkspaceID,
		invoice.ClientID,
		invoice.BillerID,
		invoice.Title,
		invoice.SerialNumber,
		invoice.PoSoNumber,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Description,
		invoice.Subtotal,
		invoice.PayableAmount,
		invoice.IsPaid,
		invoice.PaidAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repository) UpdateHeader(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET title = ?, po_so_number = ?, issue_date = ?, due_date = ?, description = ?, updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		invoice.Title,
		invoice.PoSoNumber,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Description,
		invoice.UpdatedAt,
		invoice.WorkspaceID,
		invoice.ID,
	).Error
}

func (r *repository) UpdateTotals(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET subtotal = ?, payable_amount = ?, is_paid = ?, paid_at = ?, updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		invoice.Subtotal,
		invoice.PayableAmount,
		invoice.IsPaid,
		invoice.PaidAt,
		invoice.UpdatedAt,
		invoice.WorkspaceID,
		invoice.ID,
	).Error
}

// MarkPaid keeps the first paid_at when the invoice is already paid. The
// affected row count is not reported: MySQL counts only changed rows.
func (r *repository) MarkPaid(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET is_paid = ?, paid_at = COALESCE(paid_at, ?), updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		true,
		invoice.PaidAt,
		invoice.UpdatedAt,
		invoice.WorkspaceID,
		invoice.ID,
	).Error
}

func (r *repository) DeleteInvoice(ctx context.Context, workspaceID, id snowflake.ID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE workspace_id = ? AND id = ?`,
		workspaceID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repository) FindInvoice(ctx context.Context, workspaceID, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE workspace_id = ? AND id = ?`,
		workspaceID,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

// ListInvoices returns newest first. Snowflake ids grow with time, so the id
// alone is a stable keyset cursor.
func (r *repository) ListInvoices(ctx context.Context, workspaceID snowflake.ID, filter invoicedomain.ListFilter) ([]*invoicedomain.Invoice, error) {
	var items []*invoicedomain.Invoice
	stmt := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("workspace_id = ?", workspaceID)

	if filter.IsPaid != nil {
		stmt = stmt.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if filter.After != nil && filter.After.ID != "" {
		afterID, err := snowflake.ParseString(filter.After.ID)
		if err != nil {
			return nil, err
		}
		stmt = option.ApplyOperator(option.Condition{Field: "id", Operator: option.LT, Value: afterID}).Apply(stmt)
	}

	stmt = option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}).Apply(stmt)
	stmt = option.WithLimit(filter.Limit).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteLines removes every line of the invoice with its tax attachments.
func (r *repository) DeleteLines(ctx context.Context, invoiceID snowflake.ID) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec(
		`DELETE FROM invoice_service_tax
		 WHERE invoice_service_id IN (SELECT id FROM invoice_services WHERE invoice_id = ?)`,
		invoiceID,
	).Error; err != nil {
		return err
	}
	return db.Exec(`DELETE FROM invoice_services WHERE invoice_id = ?`, invoiceID).Error
}

func (r *repository) InsertLine(ctx context.Context, line *invoicedomain.InvoiceLine) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO invoice_services (
			id, workspace_id, invoice_id, service_id, position, date, code,
			unit_price, quantity, amount, tax_percentage, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.WorkspaceID,
		line.InvoiceID,
		line.ServiceID,
		line.Position,
		line.Date,
		line.Code,
		line.UnitPrice,
		line.Quantity,
		line.Amount,
		line.TaxPercentage,
		line.CreatedAt,
	).Error
}

func (r *repository) InsertLineTaxes(ctx context.Context, taxes []invoicedomain.InvoiceLineTax) error {
	if len(taxes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&taxes).Error
}

// ListLines returns the lines in persisted order with their attachments.
func (r *repository) ListLines(ctx context.Context, invoiceID snowflake.ID) ([]invoicedomain.InvoiceLine, error) {
	db := r.db.WithContext(ctx)

	var lines []invoicedomain.InvoiceLine
	err := db.Raw(
		`SELECT id, workspace_id, invoice_id, service_id, position, date, code,
		        unit_price, quantity, amount, tax_percentage, created_at
		 FROM invoice_services
		 WHERE invoice_id = ?
		 ORDER BY position ASC, id ASC`,
		invoiceID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []invoicedomain.InvoiceLine{}, nil
	}

	var taxes []invoicedomain.InvoiceLineTax
	err = db.Raw(
		`SELECT id, invoice_service_id, tax_id, tax_name, percentage, created_at
		 FROM invoice_service_tax
		 WHERE invoice_service_id IN ?
		 ORDER BY id ASC`,
		lo.Map(lines, func(l invoicedomain.InvoiceLine, _ int) snowflake.ID { return l.ID }),
	).Scan(&taxes).Error
	if err != nil {
		return nil, err
	}

	byLine := lo.GroupBy(taxes, func(t invoicedomain.InvoiceLineTax) snowflake.ID { return t.InvoiceLineID })
	for i := range lines {
		lines[i].Taxes = byLine[lines[i].ID]
		if lines[i].Taxes == nil {
			lines[i].Taxes = []invoicedomain.InvoiceLineTax{}
		}
	}
	return lines, nil
}
