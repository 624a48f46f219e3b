package app

import (
	"context"
	"log/slog"

	"github.com/fabdesk/backup-exporter/auth"
	"github.com/fabdesk/backup-exporter/auth/oauth"
	cfg "github.com/fabdesk/backup-exporter/config"
	cache "github.com/fabdesk/backup-exporter/internal/cache/redis"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/exporter"
	handlers "github.com/fabdesk/backup-exporter/internal/handler/http"
	"github.com/fabdesk/backup-exporter/internal/server"
	"github.com/fabdesk/backup-exporter/internal/storage"
	"github.com/fabdesk/backup-exporter/internal/storage/drive"
	"github.com/fabdesk/backup-exporter/internal/store"
	"github.com/fabdesk/backup-exporter/internal/store/postgres"
)

type App struct {
	Config        *cfg.AppConfig
	exitCh        chan error
	shutdown      func(ctx context.Context) error
	Store         store.Store
	Cache         *cache.RedisCache
	StorageClient storage.Client
	tokens        auth.Manager
	pipeline      *exporter.Pipeline
	server        *server.Server
}

// New creates a fully initialized App.
func New(config *cfg.AppConfig, shutdown func(ctx context.Context) error) (*App, error) {
	app := &App{
		Config:   config,
		shutdown: shutdown,
		exitCh:   make(chan error),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initRedis(); err != nil {
		return nil, err
	}
	if err := app.initStorageClient(); err != nil {
		return nil, err
	}
	if err := app.initTokenManager(); err != nil {
		return nil, err
	}
	if err := app.initPipeline(); err != nil {
		return nil, err
	}
	if err := app.initServer(); err != nil {
		return nil, err
	}

	return app, nil
}

// --------- Private init methods ---------

func (app *App) initStore() error {
	if app.Config.Database == nil {
		return errors.New("database config is nil")
	}
	app.Store = postgres.New(app.Config.Database)
	return nil
}

func (app *App) initRedis() error {
	redisCache, err := cache.NewRedisCache(app.Config.Redis.Addr, app.Config.Redis.Password, app.Config.Redis.DB)
	if err != nil {
		return errors.New("unable to initialize Redis", errors.WithCause(err))
	}
	app.Cache = redisCache
	return nil
}

func (app *App) initStorageClient() error {
	app.StorageClient = drive.New()
	return nil
}

func (app *App) initTokenManager() error {
	manager, err := oauth.New(app.Store.Account(), app.Config.Drive)
	if err != nil {
		return errors.New("failed to init token manager", errors.WithCause(err))
	}
	app.tokens = manager
	return nil
}

func (app *App) initPipeline() error {
	pipeline, err := exporter.NewPipeline(app.Store, app.StorageClient, app.tokens, app.Config.Export.FilesRoot)
	if err != nil {
		return errors.New("failed to build pipeline", errors.WithCause(err))
	}
	app.pipeline = pipeline
	return nil
}

func (app *App) initServer() error {
	backup, err := handlers.NewBackupHandler(app.pipeline, app.Store, app.Cache, app.tokens, handlers.Limits{
		RateWindow: app.Config.Export.RateWindow,
	})
	if err != nil {
		return errors.New("failed to build backup handler", errors.WithCause(err))
	}

	srv, err := server.BuildServer(app.Config.Consul, backup, app.exitCh)
	if err != nil {
		return errors.New("failed to build server", errors.WithCause(err))
	}
	app.server = srv
	return nil
}

// Start opens the store and serves HTTP until an exit error arrives.
func (app *App) Start() error {
	if err := app.Store.Open(); err != nil {
		return errors.New("failed to open store", errors.WithCause(err))
	}

	go app.server.Start()

	return <-app.exitCh
}

// Stop gracefully shuts down all services
func (app *App) Stop() error {
	slog.Info("backup_exporter.main.stop_starting")

	if app.server != nil {
		app.server.Stop()
		slog.Info("server stopped")
	}

	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			slog.Error("redis cache close error", "err", err)
		} else {
			slog.Info("redis cache closed")
		}
	}

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Error("store close error", "err", err)
		} else {
			slog.Info("store closed")
		}
	}

	if app.shutdown != nil {
		if err := app.shutdown(context.Background()); err != nil {
			slog.Error("shutdown hook error", "err", err)
		} else {
			slog.Info("shutdown hook executed")
		}
	}

	slog.Info("backup_exporter.main.stop_complete")
	return nil
}
