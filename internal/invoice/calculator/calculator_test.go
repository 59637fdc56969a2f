package calculator

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestCompute(t *testing.T) {
	const (
		taxA snowflake.ID = 1
		taxB snowflake.ID = 2
		taxC snowflake.ID = 3
		gone snowflake.ID = 99
	)
	lookup := map[snowflake.ID]decimal.Decimal{
		taxA: d("10"),
		taxB: d("5"),
		taxC: d("5"),
	}

	tests := []struct {
		name        string
		unitPrice   string
		quantity    int64
		taxIDs      []snowflake.ID
		subtotal    string
		percentage  string
		taxAmount   string
		payable     string
		appliedTaxs []snowflake.ID
	}{
		{"single tax", "500.00", 1, []snowflake.ID{taxA}, "500", "10", "50", "550", []snowflake.ID{taxA}},
		{"two taxes summed", "300", 2, []snowflake.ID{taxB, taxC}, "600", "10", "60", "660", []snowflake.ID{taxB, taxC}},
		{"unknown tax ignored", "500", 1, []snowflake.ID{gone}, "500", "0", "0", "500", []snowflake.ID{}},
		{"unknown mixed with known", "100", 3, []snowflake.ID{gone, taxA}, "300", "10", "30", "330", []snowflake.ID{taxA}},
		{"duplicate tax counted once", "100", 1, []snowflake.ID{taxA, taxA}, "100", "10", "10", "110", []snowflake.ID{taxA}},
		{"no taxes", "19.99", 4, nil, "79.96", "0", "0", "79.96", []snowflake.ID{}},
		{"free line", "0", 5, []snowflake.ID{taxA}, "0", "10", "0", "0", []snowflake.ID{taxA}},
		{"fractions stay exact", "0.10", 3, []snowflake.ID{taxA}, "0.30", "10", "0.03", "0.33", []snowflake.ID{taxA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(d(tt.unitPrice), tt.quantity, tt.taxIDs, lookup)
			require.NoError(t, err)
			assertDecimal(t, tt.subtotal, got.Subtotal)
			assertDecimal(t, tt.percentage, got.TaxPercentage)
			assertDecimal(t, tt.taxAmount, got.TaxAmount)
			assertDecimal(t, tt.payable, got.Payable)
			assert.ElementsMatch(t, tt.appliedTaxs, got.AppliedTaxIDs)
		})
	}
}

func TestComputeIsExactForFractionalPercentages(t *testing.T) {
	lookup := map[snowflake.ID]decimal.Decimal{1: d("7.25"), 2: d("0.0001")}

	got, err := Compute(d("0.10"), 3, []snowflake.ID{1, 2}, lookup)
	require.NoError(t, err)

	// 0.30 * 7.2501 / 100
	assertDecimal(t, "0.0217503", got.TaxAmount)
	assertDecimal(t, "0.3217503", got.Payable)
	assert.True(t, got.Payable.Equal(got.Subtotal.Add(got.Subtotal.Mul(got.TaxPercentage).Div(d("100")))))
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  int64
		wantErr   error
	}{
		{"negative price", "-1", 1, ErrInvalidUnitPrice},
		{"sub-cent price", "1.005", 1, ErrInvalidUnitPrice},
		{"zero quantity", "10", 0, ErrInvalidQuantity},
		{"negative quantity", "10", -2, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(d(tt.unitPrice), tt.quantity, nil, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidLineItem)
			assert.True(t, errs.IsValidation(err))
		})
	}
}

func TestSum(t *testing.T) {
	lookup := map[snowflake.ID]decimal.Decimal{1: d("10"), 2: d("5"), 3: d("5")}

	line1, err := Compute(d("500"), 1, []snowflake.ID{1}, lookup)
	require.NoError(t, err)
	line2, err := Compute(d("300"), 2, []snowflake.ID{2, 3}, lookup)
	require.NoError(t, err)

	totals := Sum([]Result{line1, line2})
	assertDecimal(t, "1100", totals.Subtotal)
	assertDecimal(t, "1210", totals.Payable)

	empty := Sum(nil)
	assert.True(t, empty.Subtotal.IsZero())
	assert.True(t, empty.Payable.IsZero())
}

func TestInvalidInputSentinelsStayDistinct(t *testing.T) {
	_, err := Compute(d("10"), 0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.NotErrorIs(t, err, ErrInvalidUnitPrice)
	assert.Equal(t, "invalid_line_item", errs.Reason(err))
}
