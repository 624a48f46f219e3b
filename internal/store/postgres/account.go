package postgres

import (
	"context"
	"time"

	dberr "github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/jackc/pgx/v5"
)

type AccountStore struct {
	storage *Store
}

func (a *AccountStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	db, err := a.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_account", err)
	}

	query := `
		SELECT id, company_name, tax_region, root_folder_id, last_synced_at
		FROM fabdesk.accounts
		WHERE id = $1
	`

	var acc model.Account
	err = db.QueryRow(ctx, query, accountID).Scan(
		&acc.ID,
		&acc.CompanyName,
		&acc.TaxRegion,
		&acc.RootFolderID,
		&acc.LastSyncedAt,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("get_account", "account not found")
		}
		return nil, dberr.NewDBInternalError("get_account", err)
	}
	return &acc, nil
}

func (a *AccountStore) GetStorageConnection(ctx context.Context, accountID string) (*model.StorageConnection, error) {
	db, err := a.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("get_storage_connection", err)
	}

	query := `
		SELECT account_id, provider, refresh_token, verified, connected_at
		FROM fabdesk.storage_connections
		WHERE account_id = $1
	`

	var conn model.StorageConnection
	err = db.QueryRow(ctx, query, accountID).Scan(
		&conn.AccountID,
		&conn.Provider,
		&conn.RefreshToken,
		&conn.Verified,
		&conn.ConnectedAt,
	)
	if err != nil {
		if dberr.Is(err, pgx.ErrNoRows) {
			return nil, dberr.NewDBNotFoundError("get_storage_connection", "no storage connection for account")
		}
		return nil, dberr.NewDBInternalError("get_storage_connection", err)
	}
	return &conn, nil
}

// SetRootFolderID writes the root folder id only when none is recorded; the
// id created by the first-ever run is never overwritten.
func (a *AccountStore) SetRootFolderID(ctx context.Context, accountID, folderID string) error {
	db, err := a.storage.Database()
	if err != nil {
		return dberr.NewDBInternalError("set_root_folder_id", err)
	}

	query := `
		UPDATE fabdesk.accounts
		SET root_folder_id = $2
		WHERE id = $1 AND root_folder_id IS NULL
	`

	if _, err := db.Exec(ctx, query, accountID, folderID); err != nil {
		return dberr.NewDBInternalError("set_root_folder_id", err)
	}
	return nil
}

func (a *AccountStore) SetLastSyncedAt(ctx context.Context, accountID string, ts time.Time) error {
	db, err := a.storage.Database()
	if err != nil {
		return dberr.NewDBInternalError("set_last_synced_at", err)
	}

	query := `
		UPDATE fabdesk.accounts
		SET last_synced_at = $2
		WHERE id = $1
	`

	cmd, err := db.Exec(ctx, query, accountID, ts)
	if err != nil {
		return dberr.NewDBInternalError("set_last_synced_at", err)
	}
	if cmd.RowsAffected() == 0 {
		return dberr.NewDBNotFoundError("set_last_synced_at", "account not found")
	}
	return nil
}
