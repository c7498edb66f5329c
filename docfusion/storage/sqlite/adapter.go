package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/docfusion/docfusion/docfusion/storage"
)

// DriverModernc is the pure-Go driver name registered by modernc.org/sqlite.
const DriverModernc = "sqlite"

type Options struct {
	Path       string
	Table      string
	DriverName string
	MaxConns   int
}

type Adapter struct {
	opts Options
	sql  storage.SQL
	db   *sql.DB
}

func New(opts Options) (*Adapter, error) {
	if opts.Table == "" {
		opts.Table = "documents"
	}
	if opts.DriverName == "" {
		opts.DriverName = DriverModernc
	}
	if err := storage.ValidateTableName(opts.Table); err != nil {
		return nil, err
	}
	if opts.DriverName == DriverMattn && !mattnAvailable() {
		return nil, fmt.Errorf("driver %s requires a cgo build", DriverMattn)
	}
	return &Adapter{opts: opts, sql: templates(opts.Table)}, nil
}

func templates(table string) storage.SQL {
	t := storage.Templates(Dialect{}, table)
	t.CreateTable = "CREATE TABLE IF NOT EXISTS " + table +
		" (id INTEGER PRIMARY KEY AUTOINCREMENT, content TEXT CHECK (content IS NULL OR json_valid(content)))"
	return t
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendSQLite }

func (a *Adapter) Dialect() storage.Dialect { return Dialect{} }

func (a *Adapter) SQL() storage.SQL { return a.sql }

func (a *Adapter) Capabilities() storage.Capabilities {
	return storage.Capabilities{NativeContainment: Dialect{}.NativeContainment(), Returning: true, MaxParams: 32766}
}

func (a *Adapter) dsn() string {
	pragma := "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if a.opts.DriverName == DriverMattn {
		pragma = "_busy_timeout=5000&_journal_mode=WAL"
	}
	if strings.Contains(a.opts.Path, "?") {
		return a.opts.Path + "&" + pragma
	}
	return a.opts.Path + "?" + pragma
}

func (a *Adapter) Connect(ctx context.Context) error {
	if a.opts.DriverName == DriverModernc {
		if err := RegisterFunctions(); err != nil {
			return err
		}
	}
	db, err := sql.Open(a.opts.DriverName, a.dsn())
	if err != nil {
		return err
	}
	// Every connection to :memory: is a separate database.
	if a.opts.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if a.opts.MaxConns > 0 {
		db.SetMaxOpenConns(a.opts.MaxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	return nil
}

func (a *Adapter) Acquire(ctx context.Context) (storage.Conn, error) {
	if a.db == nil {
		return nil, errors.New("sqlite: adapter not connected")
	}
	c, err := a.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func (a *Adapter) Stats() storage.PoolStats {
	if a.db == nil {
		return storage.PoolStats{}
	}
	s := a.db.Stats()
	return storage.PoolStats{
		Total:    int32(s.OpenConnections),
		Idle:     int32(s.Idle),
		InUse:    int32(s.InUse),
		MaxConns: int32(s.MaxOpenConnections),
	}
}

func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// sqlQuerier is satisfied by *sql.Conn and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier struct {
	q sqlQuerier
}

func (q querier) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	r, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rows{r: r}, nil
}

func (q querier) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return row{q.q.QueryRowContext(ctx, query, args...)}
}

func (q querier) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type conn struct {
	c *sql.Conn
}

func (c *conn) Query(ctx context.Context, query string, args ...any) (storage.Rows, error) {
	return querier{c.c}.Query(ctx, query, args...)
}

func (c *conn) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return querier{c.c}.QueryRow(ctx, query, args...)
}

func (c *conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return querier{c.c}.Exec(ctx, query, args...)
}

func (c *conn) WithTx(ctx context.Context, fn func(q storage.Querier) error) error {
	tx, err := c.c.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(querier{tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *conn) Release() { _ = c.c.Close() }

type rows struct {
	r *sql.Rows
}

func (r *rows) Next() bool             { return r.r.Next() }
func (r *rows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *rows) Close()                 { _ = r.r.Close() }

// Err comes from the driver stepping the statement; database/sql reports
// conversion failures through Scan only.
func (r *rows) Err() error {
	if err := r.r.Err(); err != nil {
		return &storage.StatementError{Err: err}
	}
	return nil
}

func (r *rows) ColumnCount() int {
	cols, err := r.r.Columns()
	if err != nil {
		return 0
	}
	return len(cols)
}

type row struct {
	r *sql.Row
}

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}
