// Package render produces printable invoice documents.
package render

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"github.com/smallbiznis/billdesk/internal/invoice/format"
)

const dateLayout = "2006-01-02"

type Renderer interface {
	RenderPDF(detail invoicedomain.InvoiceDetail) ([]byte, error)
}

type pdfRenderer struct{}

func NewRenderer() Renderer {
	return &pdfRenderer{}
}

var (
	headerText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText   = props.Text{Size: 9}
	rightBold  = props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	rightText  = props.Text{Size: 9, Align: align.Right}
)

// RenderPDF lays out the header, one row per line, the tax summary and the
// totals. Amounts are shown with two decimals; stored values stay exact.
func (r *pdfRenderer) RenderPDF(detail invoicedomain.InvoiceDetail) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, detail.Title, props.Text{Size: 20, Style: fontstyle.Bold}),
		text.NewCol(4, paidLabel(detail.Invoice), props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+detail.Number, props.Text{Top: 0}),
			text.New("Date of issue: "+detail.IssueDate.Format(dateLayout), props.Text{Top: 4}),
			text.New("Date due: "+detail.DueDate.Format(dateLayout), props.Text{Top: 8}),
			text.New("PO/SO: "+detail.PoSoNumber, props.Text{Top: 12}),
		),
		text.NewCol(6, detail.Description, props.Text{Size: 9}),
	)

	m.AddRow(8,
		text.NewCol(2, "Code", headerText),
		text.NewCol(2, "Date", headerText),
		text.NewCol(1, "Qty", rightBold),
		text.NewCol(2, "Unit price", rightBold),
		text.NewCol(2, "Amount", rightBold),
		text.NewCol(1, "Tax", rightBold),
		text.NewCol(2, "Total", rightBold),
	)
	m.AddRow(2, col.New(12))

	for _, l := range detail.Lines {
		date := ""
		if l.Date != nil {
			date = l.Date.Format(dateLayout)
		}
		m.AddRow(7,
			text.NewCol(2, l.Code, cellText),
			text.NewCol(2, date, cellText),
			text.NewCol(1, fmt.Sprintf("%d", l.Quantity), rightText),
			text.NewCol(2, format.Money(l.UnitPrice), rightText),
			text.NewCol(2, format.Money(l.Amount), rightText),
			text.NewCol(1, format.Percentage(l.TaxPercentage), rightText),
			text.NewCol(2, format.Money(l.Payable()), rightText),
		)
	}

	if len(detail.Summary) > 0 {
		m.AddRow(10, text.NewCol(12, "Tax summary", props.Text{Style: fontstyle.Bold, Size: 10, Top: 4}))
		for _, s := range detail.Summary {
			m.AddRow(6,
				text.NewCol(4, s.Name, cellText),
				text.NewCol(2, format.Percentage(s.Percentage), rightText),
				text.NewCol(3, "on "+format.Money(s.AmountOn), rightText),
				text.NewCol(3, format.Money(s.TaxAmount), rightText),
			)
		}
	}

	m.AddRow(2, col.New(12))
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Subtotal", cellText),
		text.NewCol(2, format.Money(detail.Subtotal), rightText),
	)
	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Amount due", headerText),
		text.NewCol(2, format.Money(detail.PayableAmount), rightBold),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func paidLabel(inv invoicedomain.Invoice) string {
	if inv.IsPaid {
		return "PAID"
	}
	return "UNPAID"
}
