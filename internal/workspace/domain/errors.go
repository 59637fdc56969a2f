package domain

import "github.com/smallbiznis/billdesk/pkg/errs"

var (
	ErrWorkspaceNotFound = errs.NotFound("workspace_not_found")
	ErrClientNotFound    = errs.NotFound("client_not_found")
	ErrBillerNotFound    = errs.NotFound("biller_not_found")
	ErrServiceNotFound   = errs.NotFound("service_not_found")
)
