// Package storage defines the contract between the connector and a
// relational document store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/docfusion/docfusion/docfusion/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing,
// whatever the driver's own sentinel is.
var ErrNoRows = errors.New("storage: no rows in result set")

// StatementError marks a failure raised by the store while executing a
// statement, as opposed to one in decoding its result rows.
type StatementError struct {
	Err error
}

func (e *StatementError) Error() string { return e.Err.Error() }

func (e *StatementError) Unwrap() error { return e.Err }

// Adapter abstracts a store holding one documents(id, content) table.
type Adapter interface {
	Backend() Backend
	Dialect() Dialect
	Capabilities() Capabilities

	Connect(ctx context.Context) error
	// Acquire checks out one pooled connection. Callers must Release it.
	Acquire(ctx context.Context) (Conn, error)
	Stats() PoolStats
	Close() error

	SQL() SQL
}

// Querier is the statement surface shared by connections and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

type Conn interface {
	Querier
	// WithTx runs fn inside a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(q Querier) error) error
	Release()
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	// Err reports the iteration error. Failures raised by the store are
	// wrapped in *StatementError.
	Err() error
	Close()
	ColumnCount() int
}

type Row interface {
	Scan(dest ...any) error
}

// Dialect renders the store-specific parts of a query.
type Dialect interface {
	Name() string
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	// SelectList is the column list returning (id, content as text).
	SelectList() string
	// ExtractText renders top-level key extraction as text; key is an
	// already-quoted literal. Missing keys and non-string values render as
	// the empty string, a NULL document as NULL.
	ExtractText(doc, key string) string
	// Contains renders top-level JSON containment.
	Contains(doc, pattern string) string
	// NativeContainment reports whether Contains uses the store's own
	// operator rather than the registered Go function.
	NativeContainment() bool
	// JSONParam wraps a placeholder holding JSON text for insertion.
	JSONParam(placeholder string) string
}

type Capabilities struct {
	NativeContainment bool
	Returning         bool
	MaxParams         int
}

type PoolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	InUse    int32 `json:"in_use"`
	MaxConns int32 `json:"max_conns"`
}

// SQL holds the statements for one documents table.
type SQL struct {
	Table       string
	CreateTable string
	Insert      string
	InsertMulti string // prefix; value tuples are appended
	Get         string
	List        string
	Delete      string
	Count       string
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q (must match %s)", name, tableNameRe.String())
	}
	return nil
}

// Templates builds the statement set for table using d.
func Templates(d Dialect, table string) SQL {
	b := sqlbuilder.New(d.PlaceholderStyle())
	p1 := b.Arg(nil)
	p2 := b.Arg(nil)
	sel := "SELECT " + d.SelectList() + " FROM " + table

	return SQL{
		Table:       table,
		Insert:      "INSERT INTO " + table + " (content) VALUES (" + d.JSONParam(p1) + ") RETURNING id",
		InsertMulti: "INSERT INTO " + table + " (content) VALUES ",
		Get:         sel + " WHERE id = " + p1,
		List:        sel + " ORDER BY id LIMIT " + p1 + " OFFSET " + p2,
		Delete:      "DELETE FROM " + table + " WHERE id = " + p1,
		Count:       "SELECT COUNT(*) FROM " + table,
	}
}
