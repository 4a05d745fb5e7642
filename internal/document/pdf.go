package document

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/straye-as/quotebook-api/internal/domain"
)

// PDFRenderer lays out quotations and invoices as A4 PDFs
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := doc.Title()
	if doc.Purpose == PurposeReminder {
		title = "Payment reminder"
	}

	m.AddRow(12,
		text.NewCol(8, doc.Company.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(doc.Company.Address, props.Text{Size: 9}),
			text.New(doc.Company.Email, props.Text{Size: 9, Top: 5}),
			text.New(doc.Company.Phone, props.Text{Size: 9, Top: 10}),
			text.New(taxLine(doc.Company.TaxNumber), props.Text{Size: 9, Top: 15}),
		),
		col.New(6).Add(
			text.New(title+" number: "+doc.Number, props.Text{Size: 9, Align: align.Right}),
			text.New("Date: "+formatDate(doc.Date), props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New(deadlineLine(doc), props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Status: "+doc.Status, props.Text{Size: 9, Top: 15, Align: align.Right}),
		),
	)

	m.AddRow(28,
		col.New(12).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(doc.Customer.Name, props.Text{Top: 5}),
			text.New(doc.Customer.Company, props.Text{Top: 10, Size: 9}),
			text.New(doc.Customer.Address, props.Text{Top: 15, Size: 9}),
			text.New(doc.Customer.Email, props.Text{Top: 20, Size: 9}),
		),
	)

	if doc.Message != "" {
		m.AddRow(12, text.NewCol(12, doc.Message, props.Text{Size: 9}))
	}

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity.String(), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatMoney(item.Rate, ""), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatMoney(item.Amount, ""), props.Text{Size: 9, Align: align.Right}),
		)
	}
	if len(doc.Items) == 0 {
		m.AddRow(8, text.NewCol(12, "No line items", props.Text{Size: 9, Style: fontstyle.Italic}))
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(7),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, FormatMoney(doc.Amount, doc.Currency), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if doc.Notes != "" {
		m.AddRow(6, text.NewCol(12, "Notes", props.Text{Style: fontstyle.Bold, Size: 9, Top: 2}))
		m.AddRow(12, text.NewCol(12, doc.Notes, props.Text{Size: 9}))
	}
	if doc.Terms != "" {
		m.AddRow(6, text.NewCol(12, "Terms", props.Text{Style: fontstyle.Bold, Size: 9, Top: 2}))
		m.AddRow(12, text.NewCol(12, doc.Terms, props.Text{Size: 9}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render %s %s: %w", doc.Kind, doc.Number, err)
	}
	return out.GetBytes(), nil
}

func deadlineLine(doc *Document) string {
	if doc.Kind == domain.DocumentKindInvoice {
		return "Due: " + formatDate(doc.DueDate)
	}
	return "Valid until: " + formatDate(doc.ValidUntil)
}

func taxLine(taxNumber string) string {
	if taxNumber == "" {
		return ""
	}
	return "Tax no: " + taxNumber
}
