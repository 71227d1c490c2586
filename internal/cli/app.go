package cli

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/trialscope/internal/adapters/csvsource"
	"github.com/emiliopalmerini/trialscope/internal/adapters/otel"
	"github.com/emiliopalmerini/trialscope/internal/adapters/turso"
	"github.com/emiliopalmerini/trialscope/internal/aggregate"
	"github.com/emiliopalmerini/trialscope/internal/config"
	"github.com/emiliopalmerini/trialscope/internal/dataset"
	"github.com/emiliopalmerini/trialscope/internal/migrate"
	"github.com/emiliopalmerini/trialscope/internal/ports"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config  config.Config
	DB      *turso.DB
	Source  ports.RecordSource
	Store   *dataset.Store
	API     *dataset.API
	Metrics ports.MetricsExporter
}

// NewAppContext wires the configured record source into a dataset store.
// Records are not loaded until Load is called.
func NewAppContext(ctx context.Context, cfg config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg, Metrics: otel.NewNoOpExporter()}

	if cfg.Otel.Enabled {
		exporter, err := otel.NewExporter(ctx, cfg.Otel)
		if err != nil {
			log.WithError(err).Warn("metrics export disabled")
		} else {
			app.Metrics = exporter
		}
	}

	switch cfg.Data.Source {
	case config.SourceDB:
		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			_ = app.Metrics.Close(ctx)
			return nil, err
		}
		app.DB = db
		app.Source = turso.NewRecordRepository(db.DB, cfg.Database.Path)
	default:
		app.Source = csvsource.New(cfg.Data.Dir)
	}

	app.Store = dataset.NewStore(app.Source, dataset.WithMetrics(app.Metrics))
	app.API = dataset.NewAPI(app.Store, aggregate.New())
	return app, nil
}

// Load reads the records from the source.
func (a *AppContext) Load(ctx context.Context) error {
	if _, err := a.Store.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load records from %s: %w", a.Source.Describe(), err)
	}
	return nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close() error {
	err := a.Metrics.Close(context.Background())
	if a.DB != nil {
		err = errors.Join(err, a.DB.Close())
	}
	return err
}

// openDB opens the database, pulls the replica and applies pending migrations.
func openDB(ctx context.Context, cfg turso.Config) (*turso.DB, error) {
	db, err := turso.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Sync(); err != nil {
		log.WithError(err).Warn("failed to sync replica")
	}
	if err := migrate.RunAll(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// loadApp builds and loads an AppContext from the global configuration.
func loadApp(ctx context.Context) (*AppContext, error) {
	app, err := NewAppContext(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := app.Load(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}
