package model

import "time"

// ClientSnapshot is the client block embedded in a rendered document. It is
// captured at render time, not referenced, so the PDF stays meaningful even
// if the client record changes later.
type ClientSnapshot struct {
	Name        string `db:"name"`
	ContactName string `db:"contact_name"`
	Email       string `db:"email"`
	Phone       string `db:"phone"`
	Address     string `db:"address"`
}

// LineItem is one row of a quote or invoice, stored as jsonb on the record.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxRate     float64 `json:"taxRate"`
	Total       float64 `json:"total"`
}

// Quote is a quote record joined with its client snapshot.
type Quote struct {
	ID         int64          `db:"id"`
	Number     string         `db:"number"`
	IssuedAt   time.Time      `db:"issued_at"`
	ValidUntil *time.Time     `db:"valid_until"`
	Subtotal   float64        `db:"subtotal"`
	TaxTotal   float64        `db:"tax_total"`
	Total      float64        `db:"total"`
	Notes      string         `db:"notes"`
	Items      []LineItem     `db:"line_items"`
	Client     ClientSnapshot `db:"client"`
}

// Invoice is an invoice record joined with its client snapshot.
type Invoice struct {
	ID       int64          `db:"id"`
	Number   string         `db:"number"`
	IssuedAt time.Time      `db:"issued_at"`
	DueAt    *time.Time     `db:"due_at"`
	PaidAt   *time.Time     `db:"paid_at"`
	Subtotal float64        `db:"subtotal"`
	TaxTotal float64        `db:"tax_total"`
	Total    float64        `db:"total"`
	Notes    string         `db:"notes"`
	Items    []LineItem     `db:"line_items"`
	Client   ClientSnapshot `db:"client"`
}

// DesignFile is one file attached to a design, stored on local disk under the
// account's files root. DesignNumber keys the per-design sub-folder in the
// remote store.
type DesignFile struct {
	ID           int64  `db:"id"`
	DesignID     string `db:"design_id"`
	DesignNumber string `db:"design_number"`
	FileName     string `db:"file_name"`
	MimeType     string `db:"mime_type"`
	SizeBytes    int64  `db:"size_bytes"`
}

// JobPhoto is one photo attached to a job. JobID keys the per-job sub-folder
// in the remote store.
type JobPhoto struct {
	ID       int64  `db:"id"`
	JobID    string `db:"job_id"`
	FileName string `db:"file_name"`
	MimeType string `db:"mime_type"`
}

// Webhook carries a signing secret that must never leave the system in
// clear text. The data stage replaces Secret with RedactedSecret before
// serialization.
type Webhook struct {
	ID        int64     `db:"id" json:"id"`
	URL       string    `db:"url" json:"url"`
	Events    []string  `db:"events" json:"events"`
	Secret    string    `db:"secret" json:"secret"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RedactedSecret is the fixed placeholder written in place of webhook signing
// secrets in exported data.
const RedactedSecret = "[REDACTED]"
