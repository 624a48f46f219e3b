package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fabdesk/backup-exporter/internal/model"
)

type Store interface {
	Account() AccountStore
	CRM() CRMStore
	Backup() BackupStore

	// ------------ Database Management ------------ //
	Open() error  // Return custom DB error
	Close() error // Return custom DB error
}

// AccountStore reads the per-tenant configuration record and applies the two
// writes the pipeline is allowed to make to it.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	GetStorageConnection(ctx context.Context, accountID string) (*model.StorageConnection, error)
	// SetRootFolderID persists the remote root folder id, but only if none
	// is recorded yet; a concurrent or earlier run wins.
	SetRootFolderID(ctx context.Context, accountID, folderID string) error
	SetLastSyncedAt(ctx context.Context, accountID string, ts time.Time) error
}

// CRMStore reads the account's dataset for export. ListCategory covers the
// plain record categories; the typed readers serve the document and file
// stages plus the webhook redaction path.
type CRMStore interface {
	ListCategory(ctx context.Context, accountID, category string) ([]json.RawMessage, error)
	GetSettings(ctx context.Context, accountID string) (json.RawMessage, error)
	GetBusinessProfile(ctx context.Context, accountID string) (*model.BusinessProfile, error)
	ListWebhooks(ctx context.Context, accountID string) ([]model.Webhook, error)
	ListQuotes(ctx context.Context, accountID string) ([]model.Quote, error)
	ListInvoices(ctx context.Context, accountID string) ([]model.Invoice, error)
	ListDesignFiles(ctx context.Context, accountID string) ([]model.DesignFile, error)
	ListJobPhotos(ctx context.Context, accountID string) ([]model.JobPhoto, error)
}

type BackupStore interface {
	InsertExportHistory(ctx context.Context, input *model.NewExportHistory) (int64, error)
	UpdateExportStatus(ctx context.Context, input *model.UpdateExportStatus) error
	ListExportHistory(ctx context.Context, accountID string, limit, offset int) ([]*model.ExportHistory, error)
}
