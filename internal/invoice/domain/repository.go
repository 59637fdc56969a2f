package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	IsPaid   *bool
	ClientID *snowflake.ID
	After    *pagination.Cursor
	Limit    int
}

// Repository persists invoices and their lines. Finders return nil, nil when
// nothing matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	NextSerialNumber(ctx context.Context, workspaceID snowflake.ID) (int64, error)
	InsertInvoice(ctx context.Context, invoice *Invoice) error
	UpdateHeader(ctx context.Context, invoice *Invoice) error
	UpdateTotals(ctx context.Context, invoice *Invoice) error
	MarkPaid(ctx context.Context, invoice *Invoice) error
	DeleteInvoice(ctx context.Context, workspaceID, id snowflake.ID) (int64, error)
	FindInvoice(ctx context.Context, workspaceID, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, workspaceID snowflake.ID, filter ListFilter) ([]*Invoice, error)

	DeleteLines(ctx context.Context, invoiceID snowflake.ID) error
	InsertLine(ctx context.Context, line *InvoiceLine) error
	InsertLineTaxes(ctx context.Context, taxes []InvoiceLineTax) error
	ListLines(ctx context.Context, invoiceID snowflake.ID) ([]InvoiceLine, error)
}
