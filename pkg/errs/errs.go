// Package errs defines the error classes shared by every domain package.
//
// Domain sentinels belong to exactly one class so callers can branch on the
// class without knowing the concrete sentinel:
//
//	var ErrInvoiceNotFound = errs.NotFound("invoice_not_found")
//	...
//	if errs.IsNotFound(err) { ... }
package errs

import (
	"github.com/cockroachdb/errors"
)

const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodePersistence = "persistence_error"
	CodeInternal    = "internal_error"
)

var (
	ErrValidation  = errors.New(CodeValidation)
	ErrNotFound    = errors.New(CodeNotFound)
	ErrConflict    = errors.New(CodeConflict)
	ErrPersistence = errors.New(CodePersistence)
)

// ClassError is a domain sentinel tagged with one error class.
type ClassError struct {
	Class  error
	Reason string
}

func (e *ClassError) Error() string { return e.Reason }

// Is matches the sentinel itself (by identity, handled by errors.Is) and its class.
func (e *ClassError) Is(target error) bool {
	return target != nil && target == e.Class
}

// Validation returns a sentinel error of the validation class.
func Validation(reason string) error {
	return &ClassError{Class: ErrValidation, Reason: reason}
}

// NotFound returns a sentinel error of the not-found class.
func NotFound(reason string) error {
	return &ClassError{Class: ErrNotFound, Reason: reason}
}

// Conflict returns a sentinel error of the conflict class.
func Conflict(reason string) error {
	return &ClassError{Class: ErrConflict, Reason: reason}
}

// Persistence wraps a storage failure with the failing operation. Errors that
// already carry a class keep it; anything else becomes a persistence error.
func Persistence(err error, op string) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return errors.Wrap(err, op)
	}
	return errors.Mark(errors.Wrap(err, op), ErrPersistence)
}

func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }

// Classified reports whether err already carries one of the error classes.
func Classified(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsConflict(err) || IsPersistence(err)
}

// Classify returns the class code of err, or CodeInternal when it has none.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidation
	case IsNotFound(err):
		return CodeNotFound
	case IsConflict(err):
		return CodeConflict
	case IsPersistence(err):
		return CodePersistence
	default:
		return CodeInternal
	}
}

// Reason returns the machine-readable reason of the first domain sentinel in
// the chain, e.g. "invoice_not_found". It falls back to the class code.
func Reason(err error) string {
	var classErr *ClassError
	if errors.As(err, &classErr) {
		return classErr.Reason
	}
	return Classify(err)
}
