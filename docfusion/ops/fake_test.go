package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/docfusion/docfusion/docfusion/storage"
	"github.com/docfusion/docfusion/docfusion/storage/postgres"
)

// fakeAdapter serves canned rows and records how connections were used.
type fakeAdapter struct {
	acquireErr error
	queryErr   error
	scanErr    error
	iterErr    error
	columns    int
	rows       [][]any

	acquired int
	released int
	queries  []string
}

func (f *fakeAdapter) Backend() storage.Backend           { return storage.BackendPostgres }
func (f *fakeAdapter) Dialect() storage.Dialect           { return postgres.Dialect{} }
func (f *fakeAdapter) Capabilities() storage.Capabilities { return storage.Capabilities{} }
func (f *fakeAdapter) Connect(context.Context) error      { return nil }
func (f *fakeAdapter) Stats() storage.PoolStats           { return storage.PoolStats{} }
func (f *fakeAdapter) Close() error                       { return nil }
func (f *fakeAdapter) SQL() storage.SQL                   { return storage.Templates(postgres.Dialect{}, "documents") }

func (f *fakeAdapter) Acquire(context.Context) (storage.Conn, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired++
	return &fakeConn{f: f}, nil
}

type fakeConn struct {
	f *fakeAdapter
}

func (c *fakeConn) Query(_ context.Context, sql string, _ ...any) (storage.Rows, error) {
	c.f.queries = append(c.f.queries, sql)
	if c.f.queryErr != nil {
		return nil, c.f.queryErr
	}
	cols := c.f.columns
	if cols == 0 {
		cols = 2
	}
	return &fakeRows{f: c.f, cols: cols, pos: -1}, nil
}

func (c *fakeConn) QueryRow(context.Context, string, ...any) storage.Row {
	return fakeRow{err: storage.ErrNoRows}
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	c.f.queries = append(c.f.queries, sql)
	return 0, c.f.queryErr
}

func (c *fakeConn) WithTx(ctx context.Context, fn func(storage.Querier) error) error {
	return fn(c)
}

func (c *fakeConn) Release() { c.f.released++ }

type fakeRows struct {
	f    *fakeAdapter
	cols int
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.f.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.f.scanErr != nil {
		return r.f.scanErr
	}
	row := r.f.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int32:
			n, ok := v.(int32)
			if !ok {
				return errors.New("not an int32")
			}
			*d = n
		case **string:
			if v == nil {
				*d = nil
				continue
			}
			s, ok := v.(string)
			if !ok {
				return errors.New("not a string")
			}
			*d = &s
		default:
			return fmt.Errorf("unsupported destination %T", dest[i])
		}
	}
	return nil
}

func (r *fakeRows) Err() error       { return r.f.iterErr }
func (r *fakeRows) Close()           {}
func (r *fakeRows) ColumnCount() int { return r.cols }

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(...any) error { return r.err }
