package exporter

import (
	"context"
	"fmt"

	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/fabdesk/backup-exporter/internal/pdf/maroto"
)

// documentItem adapts a quote or invoice record to the shared document-stage
// loop: a label for events and file names, and the presentation model.
type documentItem struct {
	label string
	doc   *maroto.Document
}

// runQuoteStage renders every quote as a PDF under Quotes.
func (p *Pipeline) runQuoteStage(ctx context.Context, token string, rn *run, em *Emitter) error {
	quotes, err := p.store.CRM().ListQuotes(ctx, rn.accountID)
	if err != nil {
		em.Error(model.PhaseQuotes, "", err)
		return nil
	}
	if len(quotes) == 0 {
		return nil
	}

	profile, tax, err := p.documentContext(ctx, rn)
	if err != nil {
		em.Error(model.PhaseQuotes, "", err)
		return nil
	}

	items := make([]documentItem, 0, len(quotes))
	for _, q := range quotes {
		items = append(items, documentItem{
			label: q.Number,
			doc: &maroto.Document{
				Kind:       "Quote",
				Number:     q.Number,
				IssuedAt:   q.IssuedAt,
				ValidUntil: q.ValidUntil,
				Business:   *profile,
				Client:     q.Client,
				Items:      q.Items,
				Subtotal:   q.Subtotal,
				TaxTotal:   q.TaxTotal,
				Total:      q.Total,
				Tax:        tax,
				Notes:      q.Notes,
			},
		})
	}

	return p.runDocumentStage(ctx, token, rn, em, model.PhaseQuotes, quotesFolderName, items)
}

// runInvoiceStage renders every invoice as a PDF under Invoices.
func (p *Pipeline) runInvoiceStage(ctx context.Context, token string, rn *run, em *Emitter) error {
	invoices, err := p.store.CRM().ListInvoices(ctx, rn.accountID)
	if err != nil {
		em.Error(model.PhaseInvoices, "", err)
		return nil
	}
	if len(invoices) == 0 {
		return nil
	}

	profile, tax, err := p.documentContext(ctx, rn)
	if err != nil {
		em.Error(model.PhaseInvoices, "", err)
		return nil
	}

	items := make([]documentItem, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, documentItem{
			label: inv.Number,
			doc: &maroto.Document{
				Kind:     "Invoice",
				Number:   inv.Number,
				IssuedAt: inv.IssuedAt,
				DueAt:    inv.DueAt,
				Business: *profile,
				Client:   inv.Client,
				Items:    inv.Items,
				Subtotal: inv.Subtotal,
				TaxTotal: inv.TaxTotal,
				Total:    inv.Total,
				Tax:      tax,
				Notes:    inv.Notes,
			},
		})
	}

	return p.runDocumentStage(ctx, token, rn, em, model.PhaseInvoices, invoicesFolder, items)
}

// documentContext loads the render-time snapshots shared by every document
// of a stage: the business profile and the account's tax-region defaults.
func (p *Pipeline) documentContext(ctx context.Context, rn *run) (*model.BusinessProfile, model.TaxDefaults, error) {
	profile, err := p.store.CRM().GetBusinessProfile(ctx, rn.accountID)
	if err != nil {
		return nil, model.TaxDefaults{}, fmt.Errorf("load business profile: %w", err)
	}
	return profile, model.ResolveTaxDefaults(rn.account.TaxRegion), nil
}

// runDocumentStage is the shared render-and-upload loop. The category folder
// is only created because the item list is known to be non-empty.
func (p *Pipeline) runDocumentStage(ctx context.Context, token string, rn *run, em *Emitter, phase, folderName string, items []documentItem) error {
	em.Progress(phase, "", 0, len(items))

	folderID, err := rn.resolver.Resolve(ctx, token, folderName, rn.folderID)
	if err != nil {
		em.Error(phase, "", err)
		return nil
	}

	for i, item := range items {
		em.Progress(phase, item.label, i+1, len(items))

		blob, err := maroto.Render(item.doc)
		if err != nil {
			em.Error(phase, item.label, err)
			continue
		}
		if _, err := p.client.UploadFile(ctx, token, item.label+".pdf", folderID, "application/pdf", blob); err != nil {
			em.Error(phase, item.label, err)
			continue
		}
		em.Exported(phase)
	}
	return nil
}
