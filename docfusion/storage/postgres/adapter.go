package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docfusion/docfusion/docfusion/storage"
)

type Options struct {
	DSN            string
	Table          string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
}

type Adapter struct {
	opts Options
	sql  storage.SQL
	pool *pgxpool.Pool
}

func New(opts Options) (*Adapter, error) {
	if opts.Table == "" {
		opts.Table = "documents"
	}
	if err := storage.ValidateTableName(opts.Table); err != nil {
		return nil, err
	}
	return &Adapter{opts: opts, sql: templates(opts.Table)}, nil
}

func templates(table string) storage.SQL {
	t := storage.Templates(Dialect{}, table)
	t.CreateTable = "CREATE TABLE IF NOT EXISTS " + table + " (id SERIAL PRIMARY KEY, content JSONB)"
	return t
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) Dialect() storage.Dialect { return Dialect{} }

func (a *Adapter) SQL() storage.SQL { return a.sql }

func (a *Adapter) Capabilities() storage.Capabilities {
	return storage.Capabilities{NativeContainment: Dialect{}.NativeContainment(), Returning: true, MaxParams: 65535}
}

func (a *Adapter) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(a.opts.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if a.opts.MaxConns > 0 {
		cfg.MaxConns = a.opts.MaxConns
	}
	if a.opts.MinConns > 0 {
		cfg.MinConns = a.opts.MinConns
	}
	if a.opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = a.opts.ConnectTimeout
	}
	if a.opts.IdleTimeout > 0 {
		cfg.MaxConnIdleTime = a.opts.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	a.pool = pool
	return nil
}

func (a *Adapter) Acquire(ctx context.Context) (storage.Conn, error) {
	if a.pool == nil {
		return nil, errors.New("postgres: adapter not connected")
	}
	if a.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.AcquireTimeout)
		defer cancel()
	}
	c, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func (a *Adapter) Stats() storage.PoolStats {
	if a.pool == nil {
		return storage.PoolStats{}
	}
	s := a.pool.Stat()
	return storage.PoolStats{
		Total:    s.TotalConns(),
		Idle:     s.IdleConns(),
		InUse:    s.AcquiredConns(),
		MaxConns: s.MaxConns(),
	}
}

func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

// pgxQuerier is satisfied by both *pgxpool.Conn and pgx.Tx.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier struct {
	q    pgxQuerier
	exec func(ctx context.Context, sql string, args ...any) (int64, error)
}

func (q querier) Query(ctx context.Context, sql string, args ...any) (storage.Rows, error) {
	r, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows{r}, nil
}

func (q querier) QueryRow(ctx context.Context, sql string, args ...any) storage.Row {
	return row{q.q.QueryRow(ctx, sql, args...)}
}

func (q querier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return q.exec(ctx, sql, args...)
}

type conn struct {
	c *pgxpool.Conn
}

func (c *conn) q() querier {
	return querier{q: c.c, exec: func(ctx context.Context, sql string, args ...any) (int64, error) {
		tag, err := c.c.Exec(ctx, sql, args...)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}}
}

func (c *conn) Query(ctx context.Context, sql string, args ...any) (storage.Rows, error) {
	return c.q().Query(ctx, sql, args...)
}

func (c *conn) QueryRow(ctx context.Context, sql string, args ...any) storage.Row {
	return c.q().QueryRow(ctx, sql, args...)
}

func (c *conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return c.q().Exec(ctx, sql, args...)
}

func (c *conn) WithTx(ctx context.Context, fn func(q storage.Querier) error) error {
	tx, err := c.c.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := querier{q: tx, exec: func(ctx context.Context, sql string, args ...any) (int64, error) {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}}
	if err := fn(q); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (c *conn) Release() { c.c.Release() }

type rows struct {
	r pgx.Rows
}

func (r rows) Next() bool             { return r.r.Next() }
func (r rows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r rows) Err() error             { return classify(r.r.Err()) }
func (r rows) Close()                 { r.r.Close() }
func (r rows) ColumnCount() int       { return len(r.r.FieldDescriptions()) }

// classify marks server-side errors. pgx reports both those and scan
// failures through Rows.Err.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &storage.StatementError{Err: err}
	}
	return err
}

type row struct {
	r pgx.Row
}

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
