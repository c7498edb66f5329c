package cliutil

import (
	"context"
	"log/slog"
	"os"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/docfusion/storage"
	"github.com/docfusion/docfusion/docfusion/storage/postgres"
	"github.com/docfusion/docfusion/docfusion/storage/sqlite"
	"github.com/docfusion/docfusion/internal/config"
)

// NewAdapter builds the storage adapter selected by cfg.
func NewAdapter(cfg config.DatabaseConfig) (storage.Adapter, error) {
	switch storage.Backend(cfg.Backend) {
	case storage.BackendPostgres:
		return postgres.New(postgres.Options{
			DSN:            cfg.ConnectionString(),
			Table:          cfg.Table,
			MaxConns:       cfg.MaxConnections,
			MinConns:       cfg.MinConnections,
			ConnectTimeout: cfg.ConnectTimeout,
			AcquireTimeout: cfg.AcquireTimeout,
			IdleTimeout:    cfg.IdleTimeout,
		})
	case storage.BackendSQLite:
		return sqlite.New(sqlite.Options{
			Path:     cfg.Path,
			Table:    cfg.Table,
			MaxConns: int(cfg.MaxConnections),
		})
	default:
		return nil, docfusion.New(docfusion.ErrConfig, "unknown backend "+cfg.Backend)
	}
}

// Options maps the cache and document sections of cfg onto DB options.
func Options(cfg *config.Config, logger *slog.Logger) (docfusion.Options, error) {
	opts := docfusion.DefaultOptions()
	opts.CacheEnabled = cfg.Cache.Enabled
	opts.CacheTTL = cfg.Cache.TTL
	opts.CacheMaxSize = cfg.Cache.MaxSize
	opts.CacheMaxRows = cfg.Cache.MaxRows
	if logger != nil {
		opts.Logger = logger
	}
	if cfg.Documents.SchemaFile != "" {
		b, err := os.ReadFile(cfg.Documents.SchemaFile)
		if err != nil {
			return opts, docfusion.Wrap(docfusion.ErrConfig, "read document schema", err)
		}
		opts.DocumentSchema = string(b)
	}
	return opts, nil
}

// OpenDB connects to the configured store. migrate creates the table first.
func OpenDB(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*docfusion.DB, error) {
	adapter, err := NewAdapter(cfg.Database)
	if err != nil {
		return nil, err
	}
	opts, err := Options(cfg, logger)
	if err != nil {
		return nil, err
	}
	db, err := docfusion.Open(ctx, adapter, opts)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
