package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fabdesk/backup-exporter/auth"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/fabdesk/backup-exporter/internal/storage"
	"github.com/fabdesk/backup-exporter/internal/store"
)

// Remote folder layout of one run:
// <root>/Backups/<timestamp>/{Data, Quotes, Invoices, Design Files, Job Photos}
const (
	rootFolderName    = "Fabdesk"
	backupsFolderName = "Backups"
	dataFolderName    = "Data"
	quotesFolderName  = "Quotes"
	invoicesFolder    = "Invoices"
	designsFolderName = "Design Files"
	photosFolderName  = "Job Photos"
	manifestFileName  = "manifest.json"
)

// Pipeline walks an account's full dataset and uploads it, stage by stage,
// into the account's remote folder store. Stages run strictly in sequence;
// items within a stage run strictly in sequence. One item failing never
// stops the run; only a failure before the first stage can.
type Pipeline struct {
	store     store.Store
	client    storage.Client
	tokens    auth.Manager
	filesRoot string
}

func NewPipeline(s store.Store, client storage.Client, tokens auth.Manager, filesRoot string) (*Pipeline, error) {
	if s == nil || client == nil || tokens == nil {
		return nil, errors.Internal("pipeline dependencies are nil")
	}
	return &Pipeline{store: s, client: client, tokens: tokens, filesRoot: filesRoot}, nil
}

// run carries the state of one invocation.
type run struct {
	accountID string
	runID     string
	account   *model.Account
	folderID  string // the timestamp-named backup folder
	resolver  *FolderResolver
	historyID int64
}

type stage struct {
	name string
	run  func(ctx context.Context, token string, rn *run, em *Emitter) error
}

// Run executes the whole export. It never returns an error: every outcome is
// reported through the emitter, and the caller only has to close the stream.
func (p *Pipeline) Run(ctx context.Context, accountID string, em *Emitter) {
	var rn *run

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "backup_exporter.pipeline.panic",
				slog.Any("err", r), slog.String("stack", string(debug.Stack())))
			p.fatal(ctx, rn, em, fmt.Errorf("internal error: %v", r))
		}
	}()

	slog.InfoContext(ctx, "backup_exporter.pipeline.run_started", slog.String("account_id", accountID))

	rn, err := p.provision(ctx, accountID, em)
	if err != nil {
		p.fatal(ctx, rn, em, err)
		return
	}

	stages := []stage{
		{name: model.PhaseData, run: p.runDataStage},
		{name: model.PhaseQuotes, run: p.runQuoteStage},
		{name: model.PhaseInvoices, run: p.runInvoiceStage},
		{name: model.PhaseDesigns, run: p.runDesignFileStage},
		{name: model.PhasePhotos, run: p.runJobPhotoStage},
	}

	// Tokens are short-lived; re-acquire before every stage so a long stage
	// never runs on a token that expires mid-way.
	for _, st := range stages {
		token, err := p.tokens.AccessToken(ctx, accountID)
		if err != nil {
			p.fatal(ctx, rn, em, fmt.Errorf("acquire token for stage %s: %w", st.name, err))
			return
		}
		if err := st.run(ctx, token, rn, em); err != nil {
			p.fatal(ctx, rn, em, fmt.Errorf("stage %s: %w", st.name, err))
			return
		}
	}

	token, err := p.tokens.AccessToken(ctx, accountID)
	if err != nil {
		p.fatal(ctx, rn, em, fmt.Errorf("acquire token for manifest: %w", err))
		return
	}

	em.Progress(model.PhaseManifest, manifestFileName, 1, 1)
	em.MarkCompleted()
	manifestFileID, err := p.writeManifest(ctx, token, rn, em)
	if err != nil {
		p.fatal(ctx, rn, em, fmt.Errorf("write manifest: %w", err))
		return
	}

	stats := em.Stats()
	em.Complete(completionMessage(stats))
	p.finishHistory(ctx, rn, model.ExportStatusCompleted, stats.Errors, &manifestFileID)

	slog.InfoContext(ctx, "backup_exporter.pipeline.run_completed",
		slog.String("account_id", accountID),
		slog.String("run_id", rn.runID),
		slog.Int("errors", stats.Errors),
	)
}

// provision checks preconditions and builds the run's folder skeleton. Any
// failure here is fatal: nothing has been exported yet, so aborting is safe.
func (p *Pipeline) provision(ctx context.Context, accountID string, em *Emitter) (*run, error) {
	token, err := p.tokens.AccessToken(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("acquire initial token: %w", err)
	}

	conn, err := p.store.Account().GetStorageConnection(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load storage connection: %w", err)
	}
	if !conn.Verified {
		return nil, fmt.Errorf("storage connection for account %s is not verified", accountID)
	}

	account, err := p.store.Account().GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	startedAt := em.Stats().StartedAt
	rn := &run{
		accountID: accountID,
		runID:     startedAt.Format("20060102T150405Z"),
		account:   account,
		resolver:  NewFolderResolver(p.client),
	}

	historyID, err := p.store.Backup().InsertExportHistory(ctx, &model.NewExportHistory{
		AccountID: accountID,
		RunID:     rn.runID,
		Status:    model.ExportStatusProcessing,
		StartedAt: startedAt.UnixMilli(),
	})
	if err != nil {
		return rn, fmt.Errorf("insert export history: %w", err)
	}
	rn.historyID = historyID

	// The account root is created at most once, ever: look up the persisted
	// id first, and persist it conditionally so an older run wins.
	rootID := ""
	if account.RootFolderID != nil && *account.RootFolderID != "" {
		rootID = *account.RootFolderID
	} else {
		rootID, err = rn.resolver.Resolve(ctx, token, rootFolderName, storage.RootID)
		if err != nil {
			return rn, fmt.Errorf("provision account root: %w", err)
		}
		if err := p.store.Account().SetRootFolderID(ctx, accountID, rootID); err != nil {
			return rn, fmt.Errorf("persist root folder id: %w", err)
		}
	}

	backupsID, err := rn.resolver.Resolve(ctx, token, backupsFolderName, rootID)
	if err != nil {
		return rn, fmt.Errorf("provision backups folder: %w", err)
	}

	// Fresh timestamp-named folder per run; colons are stripped for the
	// benefit of pickier file systems downstream.
	stamp := strings.ReplaceAll(startedAt.Format(time.RFC3339), ":", "-")
	folderID, err := p.client.CreateFolder(ctx, token, stamp, backupsID)
	if err != nil {
		return rn, fmt.Errorf("create run folder: %w", err)
	}
	rn.folderID = folderID

	return rn, nil
}

// fatal reports the one terminal error event of a failed run. No manifest is
// written on this path.
func (p *Pipeline) fatal(ctx context.Context, rn *run, em *Emitter, err error) {
	slog.ErrorContext(ctx, "backup_exporter.pipeline.run_failed", slog.String("error", err.Error()))
	em.Error(model.PhaseFatal, "", err)
	p.finishHistory(ctx, rn, model.ExportStatusFailed, em.Stats().Errors, nil)
}

func (p *Pipeline) finishHistory(ctx context.Context, rn *run, status model.ExportStatus, errCount int, manifestFileID *string) {
	if rn == nil || rn.historyID == 0 {
		return
	}
	err := p.store.Backup().UpdateExportStatus(ctx, &model.UpdateExportStatus{
		ID:             rn.historyID,
		Status:         status,
		ErrorCount:     errCount,
		ManifestFileID: manifestFileID,
		CompletedAt:    time.Now().UnixMilli(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "backup_exporter.pipeline.history_update_failed", slog.String("error", err.Error()))
	}
}

func completionMessage(stats model.RunStats) string {
	return fmt.Sprintf(
		"Backup complete: %d data files, %d quote PDFs, %d invoice PDFs, %d design files, %d job photos, %d errors.",
		stats.DataFiles, stats.QuotePdfs, stats.InvoicePdfs, stats.DesignFiles, stats.JobPhotos, stats.Errors,
	)
}
