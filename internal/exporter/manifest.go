package exporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fabdesk/backup-exporter/internal/model"
)

// writeManifest snapshots the run statistics and the collected error list
// into manifest.json at the root of the run's backup folder, then stamps the
// account's last-synced marker. This is the only stage whose failure is
// fatal after work has been done: a backup without its manifest is not
// discoverable by the restore tooling.
func (p *Pipeline) writeManifest(ctx context.Context, token string, rn *run, em *Emitter) (string, error) {
	manifest := model.NewManifest(em.Stats(), em.Errors())

	blob, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize manifest: %w", err)
	}

	fileID, err := p.client.UploadFile(ctx, token, manifestFileName, rn.folderID, "application/json", blob)
	if err != nil {
		return "", fmt.Errorf("upload manifest: %w", err)
	}

	if err := p.store.Account().SetLastSyncedAt(ctx, rn.accountID, manifest.CompletedAt); err != nil {
		return "", fmt.Errorf("persist last synced timestamp: %w", err)
	}

	return fileID, nil
}
