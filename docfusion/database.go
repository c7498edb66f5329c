package docfusion

import (
	"context"
	"strings"
	"time"

	"github.com/docfusion/docfusion/docfusion/cache"
	"github.com/docfusion/docfusion/docfusion/datasource"
	"github.com/docfusion/docfusion/docfusion/engine"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/metrics"
	"github.com/docfusion/docfusion/docfusion/ops"
	"github.com/docfusion/docfusion/docfusion/storage"
)

// DB is an open document store with its query engine and result cache.
type DB struct {
	adapter   storage.Adapter
	table     *DocumentTable
	exec      *engine.Executor
	cache     *cache.QueryCache
	validator *ops.Validator
	opts      Options
}

// Open connects the adapter. The documents table is not created; call Migrate.
func Open(ctx context.Context, adapter storage.Adapter, opts Options) (*DB, error) {
	defaults := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}
	if opts.Mem == nil {
		opts.Mem = defaults.Mem
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.CacheMaxSize <= 0 {
		opts.CacheMaxSize = defaults.CacheMaxSize
	}
	if opts.CacheMaxRows <= 0 {
		opts.CacheMaxRows = defaults.CacheMaxRows
	}

	validator, err := ops.NewValidator(opts.DocumentSchema)
	if err != nil {
		return nil, err
	}

	if err := adapter.Connect(ctx); err != nil {
		return nil, Wrap(ErrConnAcquire, "connect to store", err)
	}

	db := &DB{
		adapter:   adapter,
		validator: validator,
		opts:      opts,
	}
	db.table = NewDocumentTable(adapter, opts.Mem, opts.Logger)
	db.exec = &engine.Executor{Catalog: db, Mem: opts.Mem, Logger: opts.Logger}
	if opts.CacheEnabled {
		db.cache = cache.New(opts.CacheTTL, opts.CacheMaxSize)
	}
	return db, nil
}

func (db *DB) Close() error {
	if err := db.adapter.Close(); err != nil {
		return Wrap(ErrIO, "close store", err)
	}
	return nil
}

// Table resolves a table name for the engine. Names are case-insensitive.
func (db *DB) Table(name string) (datasource.TableProvider, bool) {
	if strings.EqualFold(name, db.table.Name()) {
		return db.table, true
	}
	return nil, false
}

func (db *DB) DocumentTable() *DocumentTable { return db.table }

func (db *DB) Backend() storage.Backend { return db.adapter.Backend() }

func (db *DB) PoolStats() storage.PoolStats { return db.adapter.Stats() }

func (db *DB) Migrate(ctx context.Context) error {
	return ops.Migrate(ctx, db.adapter)
}

// Query runs sql, serving and filling the result cache.
func (db *DB) Query(ctx context.Context, sql string, qo QueryOptions) (*QueryResult, error) {
	start := time.Now()
	useCache := db.cache != nil && !qo.NoCache && !qo.Explain
	key := cache.Normalize(sql)

	if useCache {
		if hit, ok := db.cache.GetResult(key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			elapsed := time.Since(start)
			metrics.QueryDuration.WithLabelValues("true").Observe(elapsed.Seconds())
			db.opts.Logger.Debug("cache hit", "query", key, "rows", len(hit.Rows), "elapsed", elapsed)
			return &QueryResult{
				Columns:  hit.Columns,
				Rows:     hit.Rows,
				Count:    len(hit.Rows),
				Cached:   true,
				Pushed:   hit.Pushed,
				Residual: hit.Residual,
				Elapsed:  elapsed,
			}, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	q, err := expr.ParseQuery(sql)
	if err != nil {
		return nil, err
	}

	if qo.Explain {
		steps, err := db.exec.Explain(q)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Rows: []Row{}, ExplainSteps: steps, Elapsed: time.Since(start)}, nil
	}

	res, err := db.exec.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := res.Rows
	if rows == nil {
		rows = []Row{}
	}

	if useCache && len(rows) <= db.opts.CacheMaxRows {
		db.cache.PutResult(key, cache.Result{
			Columns:  res.Columns,
			Rows:     rows,
			Pushed:   res.Pushed,
			Residual: res.Residual,
		})
	}

	elapsed := time.Since(start)
	metrics.QueryDuration.WithLabelValues("false").Observe(elapsed.Seconds())
	db.opts.Logger.Info("query executed",
		"rows", len(rows),
		"pushed", res.Pushed,
		"residual", res.Residual,
		"elapsed_ms", elapsed.Milliseconds())

	return &QueryResult{
		Columns:      res.Columns,
		Rows:         rows,
		Count:        len(rows),
		Pushed:       res.Pushed,
		Residual:     res.Residual,
		ExplainSteps: res.ExplainSteps,
		Elapsed:      elapsed,
	}, nil
}

// CacheStats returns the result cache statistics, or false when caching is off.
func (db *DB) CacheStats() (cache.ExtendedStats, bool) {
	if db.cache == nil {
		return cache.ExtendedStats{}, false
	}
	return db.cache.ExtendedStats(), true
}

func (db *DB) ClearCache() {
	if db.cache != nil {
		db.cache.Clear()
	}
}
