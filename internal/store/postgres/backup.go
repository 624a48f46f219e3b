package postgres

import (
	"context"

	dberr "github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
)

type BackupStore struct {
	storage *Store
}

func (b *BackupStore) InsertExportHistory(ctx context.Context, input *model.NewExportHistory) (int64, error) {
	db, err := b.storage.Database()
	if err != nil {
		return 0, dberr.NewDBInternalError("insert_export_history", err)
	}

	query := `
		INSERT INTO fabdesk.export_history
			(account_id, run_id, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err = db.QueryRow(
		ctx,
		query,
		input.AccountID,
		input.RunID,
		input.Status,
		input.StartedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if dberr.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return 0, &dberr.DBUniqueViolationError{
					DBError: *dberr.NewDBError("insert_export_history", pgErr.Message),
					Column:  pgErr.ConstraintName,
				}
			case "23503": // foreign_key_violation
				return 0, &dberr.DBForeignKeyViolationError{
					DBError:         *dberr.NewDBError("insert_export_history", pgErr.Message),
					ForeignKeyTable: pgErr.TableName,
				}
			}
		}
		return 0, dberr.NewDBInternalError("insert_export_history", err)
	}

	return id, nil
}

func (b *BackupStore) UpdateExportStatus(ctx context.Context, input *model.UpdateExportStatus) error {
	db, err := b.storage.Database()
	if err != nil {
		return dberr.NewDBInternalError("update_export_status", err)
	}

	query := `
		UPDATE fabdesk.export_history
		SET status = $1,
		    error_count = $2,
		    manifest_file_id = $3,
		    completed_at = $4
		WHERE id = $5
	`

	cmd, err := db.Exec(
		ctx,
		query,
		input.Status,
		input.ErrorCount,
		input.ManifestFileID,
		input.CompletedAt,
		input.ID,
	)
	if err != nil {
		return dberr.NewDBInternalError("update_export_status", err)
	}

	if cmd.RowsAffected() == 0 {
		return dberr.NewDBNotFoundError("update_export_status", "no export history record found")
	}

	return nil
}

func (b *BackupStore) ListExportHistory(ctx context.Context, accountID string, limit, offset int) ([]*model.ExportHistory, error) {
	db, err := b.storage.Database()
	if err != nil {
		return nil, dberr.NewDBInternalError("list_export_history", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, account_id, run_id, status, error_count, manifest_file_id, started_at, completed_at
		FROM fabdesk.export_history
		WHERE account_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, dberr.NewDBInternalError("list_export_history", err)
	}
	defer rows.Close()

	var out []*model.ExportHistory
	for rows.Next() {
		var h model.ExportHistory
		err := rows.Scan(
			&h.ID, &h.AccountID, &h.RunID, &h.Status,
			&h.ErrorCount, &h.ManifestFileID, &h.StartedAt, &h.CompletedAt,
		)
		if err != nil {
			return nil, dberr.NewDBInternalError("list_export_history", err)
		}
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.NewDBInternalError("list_export_history", err)
	}
	return out, nil
}
