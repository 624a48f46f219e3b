package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	dberr "github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/jackc/pgx/v5"
)

type CRMStore struct {
	storage *Store
}

// categoryTables whitelists the plain record categories exported by the data
// stage. Keys are the exported file names, values the backing tables.
var categoryTables = map[string]string{
	"printers":           "printers",
	"materials":          "materials",
	"clients":            "clients",
	"quotes":             "quotes",
	"invoices":           "invoices",
	"jobs":               "jobs",
	"designs":            "designs",
	"suppliers":          "suppliers",
	"consumables":        "consumables",
	"stock-transactions": "stock_transactions",
	"purchase-orders":    "purchase_orders",
	"presets":            "presets",
	"drawings":           "drawings",
	"templates":          "templates",
	"upload-links":       "upload_links",
}

func (c *CRMStore) ListCategory(ctx context.Context, accountID, category string) ([]json.RawMessage, error) {
	table, ok := categoryTables[category]
	if !ok {
		return nil, dberr.NewDBError("list_category", fmt.Sprintf("unknown category: %s", category))
	}

	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_category", err)
	}

	// table comes from the whitelist above, never from user input
	query := fmt.Sprintf(`SELECT row_to_json(t) FROM fabdesk.%s t WHERE t.account_id = $1 ORDER BY t.id`, table)

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_category", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, dberr.NewDBInternalError("list_category", err)
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_category", err)
	}
	return out, nil
}

func (c *CRMStore) GetSettings(ctx context.Context, accountID string) (json.RawMessage, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_settings", err)
	}

	query := `SELECT row_to_json(t) FROM fabdesk.account_settings t WHERE t.account_id = $1`

	var raw json.RawMessage
	if err := db.QueryRow(ctx, query, accountID).Scan(&raw); err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("get_settings", "account settings not found")
		}
		return nil, dberr.NewDBInternalError("get_settings", err)
	}
	return raw, nil
}

func (c *CRMStore) GetBusinessProfile(ctx context.Context, accountID string) (*model.BusinessProfile, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_business_profile", err)
	}

	query := `
		SELECT company_name, email, phone, address, tax_region
		FROM fabdesk.account_settings
		WHERE account_id = $1
	`

	var p model.BusinessProfile
	err = db.QueryRow(ctx, query, accountID).Scan(
		&p.CompanyName,
		&p.Email,
		&p.Phone,
		&p.Address,
		&p.TaxRegion,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("get_business_profile", "account settings not found")
		}
		return nil, dberr.NewDBInternalError("get_business_profile", err)
	}
	return &p, nil
}

func (c *CRMStore) ListWebhooks(ctx context.Context, accountID string) ([]model.Webhook, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_webhooks", err)
	}

	query := `
		SELECT id, url, events, secret, active, created_at
		FROM fabdesk.webhooks
		WHERE account_id = $1
		ORDER BY id
	`

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_webhooks", err)
	}
	defer rows.Close()

	var out []model.Webhook
	for rows.Next() {
		var w model.Webhook
		if err := rows.Scan(&w.ID, &w.URL, &w.Events, &w.Secret, &w.Active, &w.CreatedAt); err != nil {
			return nil, dberr.NewDBInternalError("list_webhooks", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_webhooks", err)
	}
	return out, nil
}

func (c *CRMStore) ListQuotes(ctx context.Context, accountID string) ([]model.Quote, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_quotes", err)
	}

	query := `
		SELECT q.id, q.number, q.issued_at, q.valid_until,
		       q.subtotal, q.tax_total, q.total, q.notes, q.line_items,
		       c.name, c.contact_name, c.email, c.phone, c.address
		FROM fabdesk.quotes q
		JOIN fabdesk.clients c ON c.id = q.client_id
		WHERE q.account_id = $1
		ORDER BY q.number
	`

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_quotes", err)
	}
	defer rows.Close()

	var out []model.Quote
	for rows.Next() {
		var q model.Quote
		err := rows.Scan(
			&q.ID, &q.Number, &q.IssuedAt, &q.ValidUntil,
			&q.Subtotal, &q.TaxTotal, &q.Total, &q.Notes, &q.Items,
			&q.Client.Name, &q.Client.ContactName, &q.Client.Email, &q.Client.Phone, &q.Client.Address,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError("list_quotes", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_quotes", err)
	}
	return out, nil
}

func (c *CRMStore) ListInvoices(ctx context.Context, accountID string) ([]model.Invoice, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_invoices", err)
	}

	query := `
		SELECT i.id, i.number, i.issued_at, i.due_at, i.paid_at,
		       i.subtotal, i.tax_total, i.total, i.notes, i.line_items,
		       c.name, c.contact_name, c.email, c.phone, c.address
		FROM fabdesk.invoices i
		JOIN fabdesk.clients c ON c.id = i.client_id
		WHERE i.account_id = $1
		ORDER BY i.number
	`

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_invoices", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		err := rows.Scan(
			&inv.ID, &inv.Number, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt,
			&inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.Notes, &inv.Items,
			&inv.Client.Name, &inv.Client.ContactName, &inv.Client.Email, &inv.Client.Phone, &inv.Client.Address,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError("list_invoices", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_invoices", err)
	}
	return out, nil
}

func (c *CRMStore) ListDesignFiles(ctx context.Context, accountID string) ([]model.DesignFile, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_design_files", err)
	}

	query := `
		SELECT f.id, f.design_id, d.number, f.file_name, f.mime_type, f.size_bytes
		FROM fabdesk.design_files f
		JOIN fabdesk.designs d ON d.id = f.design_id
		WHERE f.account_id = $1
		ORDER BY d.number, f.file_name
	`

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_design_files", err)
	}
	defer rows.Close()

	var out []model.DesignFile
	for rows.Next() {
		var f model.DesignFile
		if err := rows.Scan(&f.ID, &f.DesignID, &f.DesignNumber, &f.FileName, &f.MimeType, &f.SizeBytes); err != nil {
			return nil, dberr.NewDBInternalError("list_design_files", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_design_files", err)
	}
	return out, nil
}

func (c *CRMStore) ListJobPhotos(ctx context.Context, accountID string) ([]model.JobPhoto, error) {
	db, err := c.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_job_photos", err)
	}

	query := `
		SELECT id, job_id, file_name, mime_type
		FROM fabdesk.job_photos
		WHERE account_id = $1
		ORDER BY job_id, file_name
	`

	rows, err := db.Query(ctx, query, accountID)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_job_photos", err)
	}
	defer rows.Close()

	var out []model.JobPhoto
	for rows.Next() {
		var p model.JobPhoto
		if err := rows.Scan(&p.ID, &p.JobID, &p.FileName, &p.MimeType); err != nil {
			return nil, dberr.NewDBInternalError("list_job_photos", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_job_photos", err)
	}
	return out, nil
}
