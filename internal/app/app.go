// Package app assembles the store, cache and services shared by the HTTP
// server and the periodctl command.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/cache"
	"github.com/nicefood/prodtrack/internal/config"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/repository/mongodb"
	"github.com/nicefood/prodtrack/internal/repository/sheets"
	"github.com/nicefood/prodtrack/internal/repository/sqlite"
	"github.com/nicefood/prodtrack/internal/service/auth"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/directory"
	"github.com/nicefood/prodtrack/internal/service/ledger"
	"github.com/nicefood/prodtrack/internal/service/period"
	"github.com/nicefood/prodtrack/internal/service/recipe"
	"github.com/nicefood/prodtrack/internal/service/reporting"
)

// App holds the wired services.
type App struct {
	Config      *config.Config
	Store       repository.Store
	Cache       cache.SnapshotCache
	Users       *directory.Users
	Sections    *directory.Sections
	Ledger      *ledger.Service
	Periods     *period.Manager
	Importer    *recipe.Importer
	Consumption *consumption.Service
	Reporting   *reporting.Service
	Auth        *auth.Authenticator

	closers []func() error
	logger  *zap.Logger
}

// New opens the configured store and cache and wires every service on top.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	store, closeStore, err := OpenStore(ctx, cfg.Store, logger.Named("repo"))
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	snapshots, err := cache.NewSnapshotCache(cfg.Cache, logger.Named("cache"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = snapshots
	a.closers = append(a.closers, snapshots.Close)

	var sheetSource recipe.SheetSource
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			a.Close()
			return nil, err
		}
		sheetSource = repo
	} else {
		logger.Info("google sheets credentials missing, sheet import disabled")
	}

	a.Users = directory.NewUsers(store, logger.Named("svc.users"))
	a.Sections = directory.NewSections(store, logger.Named("svc.sections"))
	a.Ledger = ledger.NewService(store, ledger.NewWriter(store, snapshots, logger.Named("ledger.writer")), logger.Named("svc.ledger"))
	a.Periods = period.NewManager(store, a.Users, snapshots, cfg.Period.CopyThrottle, logger.Named("svc.period"))
	a.Importer = recipe.NewImporter(a.Ledger, sheetSource, logger.Named("svc.recipe"))
	a.Consumption = consumption.NewService(store, snapshots, logger.Named("svc.consumption"))
	a.Reporting = reporting.NewService(cfg.Reporting.CompanyName, logger.Named("svc.reporting"))
	a.Auth = auth.NewAuthenticator(a.Users, logger.Named("svc.auth"))

	return a, nil
}

// Close releases the cache and store connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// OpenStore connects the document store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.DriverMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("mongodb"))
		if err != nil {
			return nil, nil, fmt.Errorf("init mongodb repository: %w", err)
		}
		return repo, func() error { return repo.Close(context.Background()) }, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite repository: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, errors.New("unknown store driver " + cfg.Driver)
	}
}
