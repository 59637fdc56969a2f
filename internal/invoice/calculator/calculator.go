// Package calculator computes invoice line totals.
//
// All arithmetic is exact decimal arithmetic. Nothing is rounded: a line of
// 0.10 x 3 with a 7.25% tax yields a payable of exactly 0.32175. Rounding
// for display is the caller's concern.
package calculator

import (
	"github.com/bwmarrin/snowflake"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/pkg/errs"
)

// UnitPriceScale is the number of decimal places a unit price may carry.
const UnitPriceScale = 2

// ErrInvalidLineItem is returned for any line the calculator refuses to price.
var ErrInvalidLineItem = errs.Validation("invalid_line_item")

var (
	ErrInvalidUnitPrice = errors.Wrap(ErrInvalidLineItem, "unit price must be non-negative with at most 2 decimal places")
	ErrInvalidQuantity  = errors.Wrap(ErrInvalidLineItem, "quantity must be at least 1")
)

// Result is the computed value of one line.
type Result struct {
	Subtotal      decimal.Decimal
	TaxPercentage decimal.Decimal
	TaxAmount     decimal.Decimal
	Payable       decimal.Decimal
	// AppliedTaxIDs are the requested ids that resolved, deduplicated, in
	// request order.
	AppliedTaxIDs []snowflake.ID
}

// Compute prices a single line. lookup maps tax id to percentage; ids absent
// from lookup contribute nothing and are not an error. A tax requested twice
// counts once.
func Compute(unitPrice decimal.Decimal, quantity int64, taxIDs []snowflake.ID, lookup map[snowflake.ID]decimal.Decimal) (Result, error) {
	if unitPrice.IsNegative() || !unitPrice.Equal(unitPrice.Round(UnitPriceScale)) {
		return Result{}, ErrInvalidUnitPrice
	}
	if quantity < 1 {
		return Result{}, ErrInvalidQuantity
	}

	applied := lo.Filter(lo.Uniq(taxIDs), func(id snowflake.ID, _ int) bool {
		_, ok := lookup[id]
		return ok
	})
	percentage := lo.Reduce(applied, func(sum decimal.Decimal, id snowflake.ID, _ int) decimal.Decimal {
		return sum.Add(lookup[id])
	}, decimal.Zero)

	subtotal := unitPrice.Mul(decimal.NewFromInt(quantity))
	taxAmount := TaxOn(subtotal, percentage)

	return Result{
		Subtotal:      subtotal,
		TaxPercentage: percentage,
		TaxAmount:     taxAmount,
		Payable:       subtotal.Add(taxAmount),
		AppliedTaxIDs: applied,
	}, nil
}

// TaxOn returns amount x percentage / 100.
func TaxOn(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Shift(-2)
}

// Totals is the invoice-level fold of line results.
type Totals struct {
	Subtotal decimal.Decimal
	Payable  decimal.Decimal
}

func Sum(results []Result) Totals {
	totals := Totals{Subtotal: decimal.Zero, Payable: decimal.Zero}
	for _, r := range results {
		totals.Subtotal = totals.Subtotal.Add(r.Subtotal)
		totals.Payable = totals.Payable.Add(r.Payable)
	}
	return totals
}
