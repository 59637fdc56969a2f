package domain

import "github.com/smallbiznis/billdesk/pkg/errs"

var (
	ErrInvalidWorkspace  = errs.Validation("invalid_workspace")
	ErrInvalidName       = errs.Validation("invalid_tax_name")
	ErrInvalidID         = errs.Validation("invalid_tax_id")
	ErrInvalidPercentage = errs.Validation("invalid_tax_percentage")
	ErrNotFound          = errs.NotFound("tax_not_found")
)
