package domain

import (
	"github.com/smallbiznis/billdesk/internal/invoice/calculator"
	"github.com/smallbiznis/billdesk/pkg/errs"
)

var (
	ErrInvalidWorkspace  = errs.Validation("invalid_workspace")
	ErrInvalidInvoiceID  = errs.Validation("invalid_invoice_id")
	ErrInvalidLineItem   = calculator.ErrInvalidLineItem
	ErrNoLineItems       = errs.Validation("no_line_items")
	ErrTooManyLineItems  = errs.Validation("too_many_line_items")
	ErrInvalidDueDate    = errs.Validation("invalid_due_date")
	ErrInvalidSerial     = errs.Validation("invalid_serial_number")
	ErrInvalidPageToken  = errs.Validation("invalid_page_token")
	ErrInvoiceNotFound   = errs.NotFound("invoice_not_found")
	ErrSerialNumberTaken = errs.Conflict("serial_number_taken")
)
