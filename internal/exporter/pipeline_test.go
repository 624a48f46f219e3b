package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/fabdesk/backup-exporter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// categoryCount is settings plus the plain categories plus webhooks.
var categoryCount = len(plainCategories) + 2

func newTestPipeline(t *testing.T, st *fakeStore, fs *fakeStorage, filesRoot string) *Pipeline {
	t.Helper()
	p, err := NewPipeline(st, fs, &fakeTokens{}, filesRoot)
	require.NoError(t, err)
	return p
}

func writeLocalFile(t *testing.T, root string, parts ...string) {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("file-bytes"), 0o644))
}

func runFolder(t *testing.T, fs *fakeStorage) string {
	t.Helper()
	backupsID, ok := fs.folderID("Fabdesk", "Backups")
	require.True(t, ok, "Fabdesk/Backups must exist")
	runs := fs.childFolders(backupsID)
	require.Len(t, runs, 1, "exactly one run folder per run")
	return runs[0].ID
}

func TestRunExportsFullDataset(t *testing.T) {
	filesRoot := t.TempDir()
	st := newTestStore()
	fs := newFakeStorage()

	st.crm.categories["materials"] = []json.RawMessage{
		json.RawMessage(`{"id":1,"name":"3mm acrylic"}`),
		json.RawMessage(`{"id":2,"name":"vinyl roll"}`),
	}
	st.crm.categoryErr["clients"] = fmt.Errorf("relation scan failed")
	st.crm.quotes = []model.Quote{{
		ID:       1,
		Number:   "Q-1001",
		IssuedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Subtotal: 120, TaxTotal: 12, Total: 132,
		Items:  []model.LineItem{{Description: "Shop sign", Quantity: 1, UnitPrice: 120, Total: 120}},
		Client: model.ClientSnapshot{Name: "Corner Cafe"},
	}}
	st.crm.designs = []model.DesignFile{
		{DesignID: "d-100", DesignNumber: "D-100", FileName: "logo.svg", MimeType: "image/svg+xml"},
		{DesignID: "d-101", DesignNumber: "D-101", FileName: "front.pdf", MimeType: "application/pdf"},
	}
	writeLocalFile(t, filesRoot, "acc-1", "designs", "d-100", "logo.svg")
	writeLocalFile(t, filesRoot, "acc-1", "designs", "d-101", "front.pdf")

	var buf bytes.Buffer
	em := NewEmitter(&buf)
	newTestPipeline(t, st, fs, filesRoot).Run(context.Background(), "acc-1", em)

	events := decodeEvents(t, &buf)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Type)
	assert.Contains(t, last.Message, "1 errors")
	require.NotNil(t, last.Stats)
	assert.Equal(t, categoryCount-1, last.Stats.DataFiles)
	assert.Equal(t, 1, last.Stats.QuotePdfs)
	assert.Equal(t, 0, last.Stats.InvoicePdfs)
	assert.Equal(t, 2, last.Stats.DesignFiles)
	assert.Equal(t, 0, last.Stats.JobPhotos)
	assert.Equal(t, 1, last.Stats.Errors)

	var errorEvents []Event
	for _, ev := range events {
		if ev.Type == EventError {
			errorEvents = append(errorEvents, ev)
		}
	}
	require.Len(t, errorEvents, 1)
	assert.Equal(t, model.PhaseData, errorEvents[0].Phase)
	assert.Equal(t, "clients", errorEvents[0].Item)

	runID := runFolder(t, fs)

	// Only categories with content get a folder.
	names := map[string]bool{}
	for _, f := range fs.childFolders(runID) {
		names[f.Name] = true
	}
	assert.True(t, names["Data"])
	assert.True(t, names["Quotes"])
	assert.True(t, names["Design Files"])
	assert.False(t, names["Invoices"], "no folder for an empty category")
	assert.False(t, names["Job Photos"], "no folder for an empty category")

	// Rendered quote lands as a real PDF.
	for _, f := range fs.childFolders(runID) {
		if f.Name == "Quotes" {
			pdf, ok := fs.findUpload(f.ID, "Q-1001.pdf")
			require.True(t, ok)
			assert.Equal(t, "application/pdf", pdf.mimeType)
			assert.True(t, bytes.HasPrefix(pdf.data, []byte("%PDF")))
		}
	}

	// Manifest agrees with the stream and records the failure.
	manifestUpload, ok := fs.findUpload(runID, "manifest.json")
	require.True(t, ok, "manifest.json must sit in the run folder")
	var manifest model.Manifest
	require.NoError(t, json.Unmarshal(manifestUpload.data, &manifest))
	assert.Equal(t, model.ManifestVersion, manifest.Version)
	assert.Equal(t, categoryCount-1, manifest.DataFiles)
	assert.Equal(t, 1, manifest.QuotePdfs)
	assert.Equal(t, 2, manifest.DesignFiles)
	assert.Equal(t, 1, manifest.Errors)
	require.Len(t, manifest.ErrorList, 1)
	assert.Equal(t, model.PhaseData, manifest.ErrorList[0].Phase)
	assert.Equal(t, "clients", manifest.ErrorList[0].Item)

	// Account side effects.
	assert.Len(t, st.account.rootSets, 1, "first run persists the root folder id")
	require.NotNil(t, st.account.lastSynced)
	assert.True(t, st.account.lastSynced.Equal(manifest.CompletedAt))

	// History row transitions processing -> completed.
	require.Len(t, st.backup.inserts, 1)
	assert.Equal(t, model.ExportStatusProcessing, st.backup.inserts[0].Status)
	require.Len(t, st.backup.updates, 1)
	assert.Equal(t, model.ExportStatusCompleted, st.backup.updates[0].Status)
	assert.Equal(t, 1, st.backup.updates[0].ErrorCount)
	require.NotNil(t, st.backup.updates[0].ManifestFileID)
}

func TestRunWithEmptyDatasetStillWritesManifest(t *testing.T) {
	st := newTestStore()
	fs := newFakeStorage()

	var buf bytes.Buffer
	em := NewEmitter(&buf)
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", em)

	events := decodeEvents(t, &buf)
	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Type)
	assert.Contains(t, last.Message, "0 quote PDFs")
	assert.Equal(t, categoryCount, last.Stats.DataFiles, "empty categories still produce JSON files")
	assert.Equal(t, 0, last.Stats.Errors)

	runID := runFolder(t, fs)
	manifestUpload, ok := fs.findUpload(runID, "manifest.json")
	require.True(t, ok)
	assert.NotContains(t, string(manifestUpload.data), "errorList", "clean runs carry no error list")

	for _, f := range fs.childFolders(runID) {
		assert.Equal(t, "Data", f.Name, "only the data folder should exist for an empty dataset")
	}
}

func TestRunReusesPersistedRootFolder(t *testing.T) {
	st := newTestStore()
	fs := newFakeStorage()
	rootID := fs.addFolder(storage.RootID, "Fabdesk")
	st.account.account.RootFolderID = &rootID

	var buf bytes.Buffer
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", NewEmitter(&buf))

	assert.Empty(t, st.account.rootSets, "a recorded root folder id must be reused, not rewritten")
	_, ok := fs.folderID("Fabdesk", "Backups")
	assert.True(t, ok)
}

func TestRunFatalWhenConnectionUnverified(t *testing.T) {
	st := newTestStore()
	st.account.conn.Verified = false
	fs := newFakeStorage()

	var buf bytes.Buffer
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", NewEmitter(&buf))

	events := decodeEvents(t, &buf)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, model.PhaseFatal, events[0].Phase)

	assert.Equal(t, 0, fs.uploadCount(), "nothing may be uploaded on the fatal path")
	assert.Empty(t, st.backup.inserts, "run failed before any history row was written")
	assert.Nil(t, st.account.lastSynced)
}

func TestRunFatalWhenTokenUnavailable(t *testing.T) {
	st := newTestStore()
	fs := newFakeStorage()
	p, err := NewPipeline(st, fs, &fakeTokens{err: fmt.Errorf("refresh rejected")}, t.TempDir())
	require.NoError(t, err)

	var buf bytes.Buffer
	p.Run(context.Background(), "acc-1", NewEmitter(&buf))

	events := decodeEvents(t, &buf)
	require.Len(t, events, 1)
	assert.Equal(t, model.PhaseFatal, events[0].Phase)
	assert.Equal(t, 0, fs.uploadCount())
}

func TestRunSurvivesConsumerDisconnect(t *testing.T) {
	st := newTestStore()
	fs := newFakeStorage()

	em := NewEmitter(&failingWriter{failAfter: 2})
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", em)

	assert.True(t, em.Closed())

	runID := runFolder(t, fs)
	_, ok := fs.findUpload(runID, "manifest.json")
	assert.True(t, ok, "the run must finish and write its manifest after the consumer is gone")
	require.NotNil(t, st.account.lastSynced)
	require.Len(t, st.backup.updates, 1)
	assert.Equal(t, model.ExportStatusCompleted, st.backup.updates[0].Status)
}

func TestRunNeverExportsWebhookSecrets(t *testing.T) {
	st := newTestStore()
	st.crm.webhooks = []model.Webhook{
		{ID: 1, URL: "https://hooks.example/a", Secret: "hunter2", Active: true},
		{ID: 2, URL: "https://hooks.example/b", Secret: "", Active: false},
	}
	fs := newFakeStorage()

	var buf bytes.Buffer
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", NewEmitter(&buf))

	runID := runFolder(t, fs)
	var dataID string
	for _, f := range fs.childFolders(runID) {
		if f.Name == "Data" {
			dataID = f.ID
		}
	}
	require.NotEmpty(t, dataID)

	hooks, ok := fs.findUpload(dataID, "webhooks.json")
	require.True(t, ok)
	assert.NotContains(t, string(hooks.data), "hunter2")

	var exported []model.Webhook
	require.NoError(t, json.Unmarshal(hooks.data, &exported))
	require.Len(t, exported, 2)
	for _, h := range exported {
		assert.Equal(t, model.RedactedSecret, h.Secret, "every secret is replaced, empty ones included")
	}
}

func TestRunCategoryFolderFailureCostsOneError(t *testing.T) {
	st := newTestStore()
	fs := newFakeStorage()
	fs.failFolder["Data"] = fmt.Errorf("quota exceeded")

	var buf bytes.Buffer
	newTestPipeline(t, st, fs, t.TempDir()).Run(context.Background(), "acc-1", NewEmitter(&buf))

	events := decodeEvents(t, &buf)
	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Type, "a stage folder failure must not abort the run")
	assert.Equal(t, 0, last.Stats.DataFiles)
	assert.Equal(t, 1, last.Stats.Errors)

	runID := runFolder(t, fs)
	_, ok := fs.findUpload(runID, "manifest.json")
	assert.True(t, ok)
}

func TestRunUploadsDesignFilesPerDesign(t *testing.T) {
	filesRoot := t.TempDir()
	st := newTestStore()
	st.crm.designs = []model.DesignFile{
		{DesignID: "d-1", DesignNumber: "D-001", FileName: "a.svg", MimeType: "image/svg+xml"},
		{DesignID: "d-1", DesignNumber: "D-001", FileName: "b.svg", MimeType: "image/svg+xml"},
	}
	writeLocalFile(t, filesRoot, "acc-1", "designs", "d-1", "a.svg")
	writeLocalFile(t, filesRoot, "acc-1", "designs", "d-1", "b.svg")
	fs := newFakeStorage()

	var buf bytes.Buffer
	newTestPipeline(t, st, fs, filesRoot).Run(context.Background(), "acc-1", NewEmitter(&buf))

	runID := runFolder(t, fs)
	var designsID string
	for _, f := range fs.childFolders(runID) {
		if f.Name == "Design Files" {
			designsID = f.ID
		}
	}
	require.NotEmpty(t, designsID)

	subs := fs.childFolders(designsID)
	require.Len(t, subs, 1, "both files share one per-design sub-folder")
	assert.Equal(t, "D-001", subs[0].Name)
	_, okA := fs.findUpload(subs[0].ID, "a.svg")
	_, okB := fs.findUpload(subs[0].ID, "b.svg")
	assert.True(t, okA)
	assert.True(t, okB)
}

func TestRunMissingLocalFileCostsOneItem(t *testing.T) {
	filesRoot := t.TempDir()
	st := newTestStore()
	st.crm.photos = []model.JobPhoto{
		{JobID: "j-1", FileName: "before.jpg"},
		{JobID: "j-1", FileName: "after.jpg", MimeType: "image/png"},
	}
	writeLocalFile(t, filesRoot, "acc-1", "jobs", "j-1", "after.jpg")
	fs := newFakeStorage()

	var buf bytes.Buffer
	em := NewEmitter(&buf)
	newTestPipeline(t, st, fs, filesRoot).Run(context.Background(), "acc-1", em)

	events := decodeEvents(t, &buf)
	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Type)
	assert.Equal(t, 1, last.Stats.JobPhotos)
	assert.Equal(t, 1, last.Stats.Errors)

	errs := em.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, model.PhasePhotos, errs[0].Phase)
	assert.Equal(t, "j-1/before.jpg", errs[0].Item)
}
