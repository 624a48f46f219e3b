package model

import "time"

const (
	PhaseData     = "data"
	PhaseQuotes   = "quotes"
	PhaseInvoices = "invoices"
	PhaseDesigns  = "designs"
	PhasePhotos   = "photos"
	PhaseManifest = "manifest"
	PhaseFatal    = "fatal"
)

// RunStats are the running totals of one export run. They are mutated only
// by the event emitter and read by the manifest writer at the end.
type RunStats struct {
	DataFiles   int       `json:"dataFiles"`
	QuotePdfs   int       `json:"quotePdfs"`
	InvoicePdfs int       `json:"invoicePdfs"`
	DesignFiles int       `json:"designFiles"`
	JobPhotos   int       `json:"jobPhotos"`
	Errors      int       `json:"errors"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// ManifestError is one recovered item-level failure collected during a run.
type ManifestError struct {
	Phase string `json:"phase"`
	Item  string `json:"item"`
	Error string `json:"error"`
}

// Manifest is the summary artifact uploaded to the run's backup folder.
// The counters duplicate RunStats deliberately so the artifact is
// self-contained; ErrorList is present only when at least one error occurred.
type Manifest struct {
	Version     int             `json:"version"`
	CreatedBy   string          `json:"createdBy"`
	DataFiles   int             `json:"dataFiles"`
	QuotePdfs   int             `json:"quotePdfs"`
	InvoicePdfs int             `json:"invoicePdfs"`
	DesignFiles int             `json:"designFiles"`
	JobPhotos   int             `json:"jobPhotos"`
	Errors      int             `json:"errors"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	ErrorList   []ManifestError `json:"errorList,omitempty"`
}

const ManifestVersion = 1

// NewManifest snapshots final run statistics into the persisted artifact.
func NewManifest(stats RunStats, errs []ManifestError) *Manifest {
	return &Manifest{
		Version:     ManifestVersion,
		CreatedBy:   AppServiceName + "/" + CurrentVersion,
		DataFiles:   stats.DataFiles,
		QuotePdfs:   stats.QuotePdfs,
		InvoicePdfs: stats.InvoicePdfs,
		DesignFiles: stats.DesignFiles,
		JobPhotos:   stats.JobPhotos,
		Errors:      stats.Errors,
		StartedAt:   stats.StartedAt,
		CompletedAt: stats.CompletedAt,
		ErrorList:   errs,
	}
}

type ExportStatus string

const (
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportHistory is the persisted record of one backup run, listed by the CRM
// UI under the account's backup screen.
type ExportHistory struct {
	ID             int64        `db:"id"`
	AccountID      string       `db:"account_id"`
	RunID          string       `db:"run_id"`
	Status         ExportStatus `db:"status"`
	ErrorCount     int          `db:"error_count"`
	ManifestFileID *string      `db:"manifest_file_id"`
	StartedAt      int64        `db:"started_at"`
	CompletedAt    *int64       `db:"completed_at"`
}

type NewExportHistory struct {
	AccountID string       `db:"account_id"`
	RunID     string       `db:"run_id"`
	Status    ExportStatus `db:"status"`
	StartedAt int64        `db:"started_at"`
}

type UpdateExportStatus struct {
	ID             int64        `db:"id"`
	Status         ExportStatus `db:"status"`
	ErrorCount     int          `db:"error_count"`
	ManifestFileID *string      `db:"manifest_file_id"`
	CompletedAt    int64        `db:"completed_at"`
}
