package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fabdesk/backup-exporter/internal/model"
)

// dataCategory is one structured-record export: a file name and a loader
// producing the pretty-printed JSON document for it.
type dataCategory struct {
	name string
	load func(ctx context.Context) ([]byte, error)
}

// plainCategories are exported straight from their tables, in this order.
var plainCategories = []string{
	"printers",
	"materials",
	"clients",
	"quotes",
	"invoices",
	"jobs",
	"designs",
	"suppliers",
	"consumables",
	"stock-transactions",
	"purchase-orders",
	"presets",
	"drawings",
	"templates",
	"upload-links",
}

func (p *Pipeline) dataCategories(accountID string) []dataCategory {
	crm := p.store.CRM()

	cats := []dataCategory{
		{name: "settings", load: func(ctx context.Context) ([]byte, error) {
			raw, err := crm.GetSettings(ctx, accountID)
			if err != nil {
				return nil, err
			}
			return indentJSON(raw)
		}},
	}

	for _, name := range plainCategories {
		name := name
		cats = append(cats, dataCategory{name: name, load: func(ctx context.Context) ([]byte, error) {
			rows, err := crm.ListCategory(ctx, accountID, name)
			if err != nil {
				return nil, err
			}
			if rows == nil {
				rows = []json.RawMessage{}
			}
			return json.MarshalIndent(rows, "", "  ")
		}})
	}

	// Webhooks go through the typed reader so signing secrets can be
	// replaced before anything is serialized.
	cats = append(cats, dataCategory{name: "webhooks", load: func(ctx context.Context) ([]byte, error) {
		hooks, err := crm.ListWebhooks(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(redactWebhooks(hooks), "", "  ")
	}})

	return cats
}

// redactWebhooks replaces every signing secret with the fixed placeholder.
// This is a hard invariant of the export: no original secret value, empty
// string included, may reach the serialized output.
func redactWebhooks(hooks []model.Webhook) []model.Webhook {
	out := make([]model.Webhook, len(hooks))
	for i, h := range hooks {
		h.Secret = model.RedactedSecret
		out[i] = h
	}
	return out
}

// runDataStage exports every structured-record category as one JSON file
// under Data. Items are the categories themselves.
func (p *Pipeline) runDataStage(ctx context.Context, token string, rn *run, em *Emitter) error {
	cats := p.dataCategories(rn.accountID)

	em.Progress(model.PhaseData, "", 0, len(cats))

	folderID, err := rn.resolver.Resolve(ctx, token, dataFolderName, rn.folderID)
	if err != nil {
		// Mid-run resolution failures are item-level by policy: record one
		// error for the stage and let the run continue.
		em.Error(model.PhaseData, "", err)
		return nil
	}

	for i, cat := range cats {
		em.Progress(model.PhaseData, cat.name, i+1, len(cats))

		blob, err := cat.load(ctx)
		if err != nil {
			em.Error(model.PhaseData, cat.name, err)
			continue
		}
		if _, err := p.client.UploadFile(ctx, token, cat.name+".json", folderID, "application/json", blob); err != nil {
			em.Error(model.PhaseData, cat.name, err)
			continue
		}
		em.Exported(model.PhaseData)
	}
	return nil
}

func indentJSON(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("reindent settings: %w", err)
	}
	return json.MarshalIndent(v, "", "  ")
}
