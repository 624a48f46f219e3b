package maroto

import (
	"fmt"
	"time"

	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"
)

const dateLayout = "02.01.2006"

// Document is the presentation model for a rendered quote or invoice: the
// record's own numbers plus snapshots of the client and the business profile
// taken at render time.
type Document struct {
	Kind       string // "Quote" or "Invoice"
	Number     string
	IssuedAt   time.Time
	DueAt      *time.Time
	ValidUntil *time.Time
	Business   model.BusinessProfile
	Client     model.ClientSnapshot
	Items      []model.LineItem
	Subtotal   float64
	TaxTotal   float64
	Total      float64
	Tax        model.TaxDefaults
	Notes      string
}

// Render lays the document out as an A4 portrait PDF and returns the bytes.
func Render(doc *Document) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetBorder(false)

	addHeader(m, doc)
	addClientBlock(m, doc)
	addItemsTable(m, doc)
	addTotals(m, doc)
	if doc.Notes != "" {
		addNotes(m, doc)
	}

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to generate output: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeader(m pdf.Maroto, doc *Document) {
	m.Row(12, func() {
		m.Col(8, func() {
			m.Text(doc.Business.CompanyName, props.Text{Size: 16, Style: consts.Bold})
		})
		m.Col(4, func() {
			m.Text(fmt.Sprintf("%s %s", doc.Kind, doc.Number), props.Text{Size: 14, Style: consts.Bold, Align: consts.Right})
		})
	})
	m.Row(6, func() {
		m.Col(8, func() {
			m.Text(doc.Business.Address, props.Text{Size: 9})
		})
		m.Col(4, func() {
			m.Text("Issued: "+doc.IssuedAt.Format(dateLayout), props.Text{Size: 9, Align: consts.Right})
		})
	})
	m.Row(6, func() {
		m.Col(8, func() {
			m.Text(doc.Business.Email+"  "+doc.Business.Phone, props.Text{Size: 9})
		})
		m.Col(4, func() {
			if doc.DueAt != nil {
				m.Text("Due: "+doc.DueAt.Format(dateLayout), props.Text{Size: 9, Align: consts.Right})
			} else if doc.ValidUntil != nil {
				m.Text("Valid until: "+doc.ValidUntil.Format(dateLayout), props.Text{Size: 9, Align: consts.Right})
			}
		})
	})
	m.Row(4, func() {})
}

func addClientBlock(m pdf.Maroto, doc *Document) {
	m.Row(6, func() {
		m.Col(12, func() {
			m.Text("Bill to", props.Text{Size: 9, Style: consts.Bold})
		})
	})
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(doc.Client.Name, props.Text{Size: 10})
		})
	})
	if doc.Client.ContactName != "" {
		m.Row(5, func() {
			m.Col(12, func() {
				m.Text(doc.Client.ContactName, props.Text{Size: 9})
			})
		})
	}
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(doc.Client.Address, props.Text{Size: 9})
		})
	})
	m.Row(8, func() {})
}

func addItemsTable(m pdf.Maroto, doc *Document) {
	headers := []string{"Description", "Qty", "Unit", "Total"}
	contents := make([][]string, 0, len(doc.Items))
	for _, it := range doc.Items {
		contents = append(contents, []string{
			it.Description,
			fmt.Sprintf("%.2f", it.Quantity),
			fmt.Sprintf("%.2f", it.UnitPrice),
			fmt.Sprintf("%.2f", it.Total),
		})
	}

	m.TableList(headers, contents, props.TableList{
		HeaderProp: props.TableListContent{
			Size:      9,
			GridSizes: []uint{6, 2, 2, 2},
		},
		ContentProp: props.TableListContent{
			Size:      9,
			GridSizes: []uint{6, 2, 2, 2},
		},
		Align:              consts.Left,
		HeaderContentSpace: 1,
		Line:               true,
	})
	m.Row(6, func() {})
}

func addTotals(m pdf.Maroto, doc *Document) {
	taxLabel := doc.Tax.Label
	if taxLabel == "" {
		taxLabel = "Tax"
	}
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Subtotal: %.2f", doc.Subtotal), props.Text{Size: 10, Align: consts.Right})
		})
	})
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("%s: %.2f", taxLabel, doc.TaxTotal), props.Text{Size: 10, Align: consts.Right})
		})
	})
	m.Row(7, func() {
		m.Col(12, func() {
			m.Text(fmt.Sprintf("Total: %.2f", doc.Total), props.Text{Size: 12, Style: consts.Bold, Align: consts.Right})
		})
	})
}

func addNotes(m pdf.Maroto, doc *Document) {
	m.Row(6, func() {})
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text("Notes", props.Text{Size: 9, Style: consts.Bold})
		})
	})
	m.Row(5, func() {
		m.Col(12, func() {
			m.Text(doc.Notes, props.Text{Size: 9})
		})
	})
}
