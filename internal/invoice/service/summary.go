package service

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/internal/invoice/calculator"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
)

// Summarize groups the tax attachments of lines by tax id, in the order the
// taxes first appear. Name and percentage come from the first snapshot seen.
// Tax is accumulated per line so the entries add up to payable - subtotal.
func Summarize(lines []invoicedomain.InvoiceLine) []invoicedomain.TaxSummaryLine {
	summary := make([]invoicedomain.TaxSummaryLine, 0)
	index := make(map[snowflake.ID]int)

	for _, line := range lines {
		for _, tax := range line.Taxes {
			i, ok := index[tax.TaxID]
			if !ok {
				i = len(summary)
				index[tax.TaxID] = i
				summary = append(summary, invoicedomain.TaxSummaryLine{
					TaxID:      tax.TaxID,
					Name:       tax.TaxName,
					Percentage: tax.Percentage,
					AmountOn:   decimal.Zero,
					TaxAmount:  decimal.Zero,
				})
			}
			entry := &summary[i]
			entry.AmountOn = entry.AmountOn.Add(line.Amount)
			entry.TaxAmount = entry.TaxAmount.Add(calculator.TaxOn(line.Amount, tax.Percentage))
		}
	}
	return summary
}
