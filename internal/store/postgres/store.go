package postgres

import (
	"context"
	"log/slog"

	conf "github.com/fabdesk/backup-exporter/config"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the struct implementing the Store interface.
type Store struct {
	accountStore store.AccountStore
	crmStore     store.CRMStore
	backupStore  store.BackupStore
	config       *conf.DatabaseConfig
	conn         *pgxpool.Pool
}

// New creates a new Store instance.
func New(config *conf.DatabaseConfig) *Store {
	return &Store{config: config}
}

func (s *Store) Account() store.AccountStore {
	if s.accountStore == nil {
		s.accountStore = &AccountStore{storage: s}
	}
	return s.accountStore
}

func (s *Store) CRM() store.CRMStore {
	if s.crmStore == nil {
		s.crmStore = &CRMStore{storage: s}
	}
	return s.crmStore
}

func (s *Store) Backup() store.BackupStore {
	if s.backupStore == nil {
		s.backupStore = &BackupStore{storage: s}
	}
	return s.backupStore
}

// Database returns the database connection or a custom error if it is not opened.
func (s *Store) Database() (*pgxpool.Pool, error) { // Return custom DB error
	if s.conn == nil {
		return nil, errors.New("database connection is not opened")
	}
	return s.conn, nil
}

// Open establishes a connection to the database and returns a custom error if it fails.
func (s *Store) Open() error {
	config, err := pgxpool.ParseConfig(s.config.Url)
	if err != nil {
		return err
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return err
	}
	s.conn = conn
	slog.Debug("backup_exporter.store.connection_opened", slog.String("message", "postgres: connection opened"))
	return nil
}

// Close closes the database connection and returns a custom error if it fails.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
		slog.Debug("backup_exporter.store.connection_closed", slog.String("message", "postgres: connection closed"))
		s.conn = nil
	}
	return nil
}
