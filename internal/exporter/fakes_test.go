package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fabdesk/backup-exporter/internal/model"
	"github.com/fabdesk/backup-exporter/internal/storage"
	"github.com/fabdesk/backup-exporter/internal/store"
)

// ---------- storage ----------

type upload struct {
	name     string
	parentID string
	mimeType string
	data     []byte
}

// fakeStorage is an in-memory folder tree keyed by parent id, with failure
// injection per folder or file name.
type fakeStorage struct {
	mu          sync.Mutex
	nextID      int
	children    map[string][]storage.Item
	uploads     []upload
	failUpload  map[string]error
	failFolder  map[string]error
	listCalls   int
	createCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		children:   make(map[string][]storage.Item),
		failUpload: make(map[string]error),
		failFolder: make(map[string]error),
	}
}

func (f *fakeStorage) ListChildren(_ context.Context, _ string, parentID string) ([]storage.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]storage.Item, len(f.children[parentID]))
	copy(out, f.children[parentID])
	return out, nil
}

func (f *fakeStorage) CreateFolder(_ context.Context, _ string, name, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if err := f.failFolder[name]; err != nil {
		return "", err
	}
	return f.addFolderLocked(parentID, name), nil
}

func (f *fakeStorage) UploadFile(_ context.Context, _ string, name, parentID, mimeType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpload[name]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.uploads = append(f.uploads, upload{name: name, parentID: parentID, mimeType: mimeType, data: data})
	f.children[parentID] = append(f.children[parentID], storage.Item{ID: id, Name: name, MimeType: mimeType})
	return id, nil
}

// addFolder pre-seeds a folder outside a run.
func (f *fakeStorage) addFolder(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addFolderLocked(parentID, name)
}

func (f *fakeStorage) addFolderLocked(parentID, name string) string {
	f.nextID++
	id := fmt.Sprintf("folder-%d", f.nextID)
	f.children[parentID] = append(f.children[parentID], storage.Item{ID: id, Name: name, IsFolder: true})
	return id
}

// folderID walks the tree from the root by folder names.
func (f *fakeStorage) folderID(path ...string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := storage.RootID
	for _, name := range path {
		found := ""
		for _, item := range f.children[current] {
			if item.IsFolder && item.Name == name {
				found = item.ID
				break
			}
		}
		if found == "" {
			return "", false
		}
		current = found
	}
	return current, true
}

// childFolders returns the sub-folders recorded under parentID.
func (f *fakeStorage) childFolders(parentID string) []storage.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Item
	for _, item := range f.children[parentID] {
		if item.IsFolder {
			out = append(out, item)
		}
	}
	return out
}

func (f *fakeStorage) findUpload(parentID, name string) (upload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.parentID == parentID && u.name == name {
			return u, true
		}
	}
	return upload{}, false
}

func (f *fakeStorage) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

// ---------- store ----------

type fakeAccountStore struct {
	mu         sync.Mutex
	account    *model.Account
	conn       *model.StorageConnection
	connErr    error
	rootSets   []string
	lastSynced *time.Time
}

func (f *fakeAccountStore) GetAccount(_ context.Context, _ string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc := *f.account
	return &acc, nil
}

func (f *fakeAccountStore) GetStorageConnection(_ context.Context, _ string) (*model.StorageConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connErr != nil {
		return nil, f.connErr
	}
	conn := *f.conn
	return &conn, nil
}

func (f *fakeAccountStore) SetRootFolderID(_ context.Context, _ string, folderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rootSets = append(f.rootSets, folderID)
	if f.account.RootFolderID == nil {
		f.account.RootFolderID = &folderID
	}
	return nil
}

func (f *fakeAccountStore) SetLastSyncedAt(_ context.Context, _ string, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSynced = &ts
	return nil
}

type fakeCRMStore struct {
	settings    json.RawMessage
	categories  map[string][]json.RawMessage
	categoryErr map[string]error
	webhooks    []model.Webhook
	quotes      []model.Quote
	invoices    []model.Invoice
	designs     []model.DesignFile
	photos      []model.JobPhoto
	profile     *model.BusinessProfile
}

func (f *fakeCRMStore) ListCategory(_ context.Context, _ string, category string) ([]json.RawMessage, error) {
	if err := f.categoryErr[category]; err != nil {
		return nil, err
	}
	return f.categories[category], nil
}

func (f *fakeCRMStore) GetSettings(_ context.Context, _ string) (json.RawMessage, error) {
	return f.settings, nil
}

func (f *fakeCRMStore) GetBusinessProfile(_ context.Context, _ string) (*model.BusinessProfile, error) {
	return f.profile, nil
}

func (f *fakeCRMStore) ListWebhooks(_ context.Context, _ string) ([]model.Webhook, error) {
	return f.webhooks, nil
}

func (f *fakeCRMStore) ListQuotes(_ context.Context, _ string) ([]model.Quote, error) {
	return f.quotes, nil
}

func (f *fakeCRMStore) ListInvoices(_ context.Context, _ string) ([]model.Invoice, error) {
	return f.invoices, nil
}

func (f *fakeCRMStore) ListDesignFiles(_ context.Context, _ string) ([]model.DesignFile, error) {
	return f.designs, nil
}

func (f *fakeCRMStore) ListJobPhotos(_ context.Context, _ string) ([]model.JobPhoto, error) {
	return f.photos, nil
}

type fakeBackupStore struct {
	mu      sync.Mutex
	nextID  int64
	inserts []*model.NewExportHistory
	updates []*model.UpdateExportStatus
}

func (f *fakeBackupStore) InsertExportHistory(_ context.Context, input *model.NewExportHistory) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.inserts = append(f.inserts, input)
	return f.nextID, nil
}

func (f *fakeBackupStore) UpdateExportStatus(_ context.Context, input *model.UpdateExportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, input)
	return nil
}

func (f *fakeBackupStore) ListExportHistory(_ context.Context, _ string, _, _ int) ([]*model.ExportHistory, error) {
	return nil, nil
}

type fakeStore struct {
	account *fakeAccountStore
	crm     *fakeCRMStore
	backup  *fakeBackupStore
}

func (f *fakeStore) Account() store.AccountStore { return f.account }
func (f *fakeStore) CRM() store.CRMStore         { return f.crm }
func (f *fakeStore) Backup() store.BackupStore   { return f.backup }
func (f *fakeStore) Open() error                 { return nil }
func (f *fakeStore) Close() error                { return nil }

// newTestStore builds a store for a verified account with an empty dataset.
func newTestStore() *fakeStore {
	return &fakeStore{
		account: &fakeAccountStore{
			account: &model.Account{ID: "acc-1", CompanyName: "Brightside Signs", TaxRegion: "au"},
			conn:    &model.StorageConnection{AccountID: "acc-1", Provider: "drive", RefreshToken: "refresh", Verified: true},
		},
		crm: &fakeCRMStore{
			settings:    json.RawMessage(`{"currency":"AUD"}`),
			categories:  make(map[string][]json.RawMessage),
			categoryErr: make(map[string]error),
			profile: &model.BusinessProfile{
				CompanyName: "Brightside Signs",
				Email:       "accounts@brightside.example",
				TaxRegion:   "au",
			},
		},
		backup: &fakeBackupStore{},
	}
}

// ---------- auth ----------

type fakeTokens struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTokens) AccessToken(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "access-token", nil
}

// failingWriter accepts failAfter writes, then refuses everything. Emulates a
// consumer dropping the stream mid-run.
type failingWriter struct {
	writes    int
	failAfter int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.failAfter {
		return 0, fmt.Errorf("consumer gone")
	}
	return len(p), nil
}
