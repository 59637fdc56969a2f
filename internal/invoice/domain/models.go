// Package domain contains the invoicing models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Invoice is the invoice header. Subtotal and PayableAmount are derived from
// the lines and only ever written by the aggregator.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoices_workspace_serial,priority:1" json:"workspace_id"`
	ClientID      snowflake.ID    `gorm:"not null;index" json:"client_id"`
	BillerID      snowflake.ID    `gorm:"not null" json:"biller_id"`
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	SerialNumber  int64           `gorm:"not null;uniqueIndex:ux_invoices_workspace_serial,priority:2" json:"serial_number"`
	PoSoNumber    string          `gorm:"type:varchar(255)" json:"po_so_number"`
	IssueDate     time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"type:date;not null" json:"due_date"`
	Description   string          `gorm:"type:text" json:"description"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"subtotal"`
	PayableAmount decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0" json:"payable_amount"`
	IsPaid        bool            `gorm:"not null;default:false" json:"is_paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceLine is one billed service on an invoice. TaxPercentage is the sum
// of the attached tax percentages at the time the line was written.
type InvoiceLine struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID    `gorm:"not null" json:"workspace_id"`
	InvoiceID     snowflake.ID    `gorm:"not null;index:ix_invoice_services_invoice,priority:1" json:"invoice_id"`
	ServiceID     snowflake.ID    `gorm:"not null" json:"service_id"`
	Position      int             `gorm:"not null;index:ix_invoice_services_invoice,priority:2" json:"position"`
	Date          *time.Time      `gorm:"type:date" json:"date,omitempty"`
	Code          string          `gorm:"type:varchar(64)" json:"code"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"unit_price"`
	Quantity      int64           `gorm:"not null" json:"quantity"`
	Amount        decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"amount"`
	TaxPercentage decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0" json:"tax_percentage"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Taxes []InvoiceLineTax `gorm:"-" json:"taxes"`
}

func (InvoiceLine) TableName() string { return "invoice_services" }

// Payable is the line amount with its snapshot tax applied.
func (l InvoiceLine) Payable() decimal.Decimal {
	return l.Amount.Add(l.Amount.Mul(l.TaxPercentage).Shift(-2))
}

// InvoiceLineTax attaches a tax to a line, keeping the tax name and
// percentage as they were when the line was written.
type InvoiceLineTax struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"-"`
	InvoiceLineID snowflake.ID    `gorm:"column:invoice_service_id;not null;uniqueIndex:ux_invoice_service_tax_line_tax,priority:1" json:"-"`
	TaxID         snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoice_service_tax_line_tax,priority:2" json:"tax_id"`
	TaxName       string          `gorm:"type:varchar(255);not null" json:"name"`
	Percentage    decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"percentage"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

func (InvoiceLineTax) TableName() string { return "invoice_service_tax" }
