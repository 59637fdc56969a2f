// Package format renders display values for invoices.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

// Number renders the display number of an invoice from its workspace serial.
// Supported tokens: {YYYY} {YY} {MM} {DD} of the issue date, {SEQ} and the
// zero padded {SEQn}.
func Number(template string, issueDate time.Time, serial int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if serial <= 0 {
		return "", fmt.Errorf("invalid invoice serial number: %d", serial)
	}

	out := strings.NewReplacer(
		"{YYYY}", issueDate.Format("2006"),
		"{YY}", issueDate.Format("06"),
		"{MM}", issueDate.Format("01"),
		"{DD}", issueDate.Format("02"),
		"{SEQ}", strconv.FormatInt(serial, 10),
	).Replace(template)

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		width, err := strconv.Atoi(seqPadRe.FindStringSubmatch(m)[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, serial)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice number template: %s", out)
	}
	return out, nil
}

// Money renders an amount with two decimals, half away from zero.
func Money(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Percentage renders a percentage without trailing zeros, e.g. "7.25%".
func Percentage(p decimal.Decimal) string {
	return p.String() + "%"
}
