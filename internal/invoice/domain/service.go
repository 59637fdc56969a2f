package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/pkg/db/pagination"
)

// LineInput is one requested line. Taxes are referenced by id; ids that are
// not in the workspace catalog are ignored.
type LineInput struct {
	ServiceID snowflake.ID
	UnitPrice decimal.Decimal
	Quantity  int64
	Date      *time.Time
	Code      string
	TaxIDs    []snowflake.ID
}

type CreateInvoiceRequest struct {
	WorkspaceID snowflake.ID
	ClientID    snowflake.ID
	BillerID    snowflake.ID

	// Header fields; nil or empty takes the configured default.
	Title        string
	SerialNumber *int64
	PoSoNumber   string
	IssueDate    *time.Time
	DueDate      *time.Time
	Description  string

	Lines []LineInput
}

// UpdateInvoiceRequest replaces every line of the invoice. Header fields are
// patched only when set. A nil IsPaid re-opens the invoice.
type UpdateInvoiceRequest struct {
	WorkspaceID snowflake.ID
	ID          snowflake.ID

	Title       *string
	PoSoNumber  *string
	IssueDate   *time.Time
	DueDate     *time.Time
	Description *string
	IsPaid      *bool

	Lines []LineInput
}

type ListInvoiceRequest struct {
	WorkspaceID snowflake.ID
	IsPaid      *bool
	ClientID    *snowflake.ID
	pagination.Pagination
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// TaxSummaryLine is the per-tax breakdown of an invoice. AmountOn is the sum
// of the subtotals of every line carrying the tax.
type TaxSummaryLine struct {
	TaxID      snowflake.ID    `json:"tax_id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	AmountOn   decimal.Decimal `json:"amount_on"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
}

// InvoiceDetail is an invoice with its lines in persisted order and its tax
// summary.
type InvoiceDetail struct {
	Invoice
	Number  string           `json:"number"`
	Lines   []InvoiceLine    `json:"lines"`
	Summary []TaxSummaryLine `json:"tax_summary"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (InvoiceDetail, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (InvoiceDetail, error)
	Get(ctx context.Context, workspaceID, invoiceID snowflake.ID) (InvoiceDetail, error)
	Delete(ctx context.Context, workspaceID, invoiceID snowflake.ID) error
	MarkAsPaid(ctx context.Context, workspaceID, invoiceID snowflake.ID) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Summary(ctx context.Context, workspaceID, invoiceID snowflake.ID) ([]TaxSummaryLine, error)
}

// SerialLocker serializes serial number allocation of a workspace across
// service instances. The returned func releases the lock.
type SerialLocker interface {
	LockSerial(ctx context.Context, workspaceID snowflake.ID) (func(), error)
}
