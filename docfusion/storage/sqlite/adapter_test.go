package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfusion/docfusion/docfusion/storage"
)

func openTest(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(Options{Path: filepath.Join(t.TempDir(), "docs.db")})
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { _ = a.Close() })

	c, err := a.Acquire(context.Background())
	require.NoError(t, err)
	defer c.Release()
	_, err = c.Exec(context.Background(), a.SQL().CreateTable)
	require.NoError(t, err)
	return a
}

func TestTemplates(t *testing.T) {
	a, err := New(Options{Path: ":memory:", Table: "docs"})
	require.NoError(t, err)

	sqlt := a.SQL()
	assert.Equal(t, "INSERT INTO docs (content) VALUES (?) RETURNING id", sqlt.Insert)
	assert.Equal(t, "SELECT id, content FROM docs WHERE id = ?", sqlt.Get)
	assert.Equal(t, "SELECT id, content FROM docs ORDER BY id LIMIT ? OFFSET ?", sqlt.List)
	assert.Equal(t, "DELETE FROM docs WHERE id = ?", sqlt.Delete)
	assert.Equal(t, "SELECT COUNT(*) FROM docs", sqlt.Count)
	assert.False(t, a.Capabilities().NativeContainment)
}

func TestInvalidTableName(t *testing.T) {
	_, err := New(Options{Path: ":memory:", Table: "1docs"})
	require.Error(t, err)
}

func TestRegisteredFunctions(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()

	c, err := a.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	var id int32
	require.NoError(t, c.QueryRow(ctx, a.SQL().Insert, `{"status":"active","n":1}`).Scan(&id))
	assert.Equal(t, int32(1), id)

	var extracted string
	require.NoError(t, c.QueryRow(ctx, "SELECT json_extract_path(content, 'status') FROM documents").Scan(&extracted))
	assert.Equal(t, "active", extracted)

	var number, missing string
	require.NoError(t, c.QueryRow(ctx,
		"SELECT "+Dialect{}.ExtractText("content", "'n'")+", "+Dialect{}.ExtractText("content", "'nope'")+" FROM documents",
	).Scan(&number, &missing))
	assert.Equal(t, "", number, "non-string values extract as empty text")
	assert.Equal(t, "", missing)
	assert.False(t, Dialect{}.NativeContainment())

	var contains, multi int
	require.NoError(t, c.QueryRow(ctx,
		`SELECT json_contains(content, '{"n":1}'), json_multi_contains(content, '{"n":2}') FROM documents`,
	).Scan(&contains, &multi))
	assert.Equal(t, 1, contains)
	assert.Equal(t, 0, multi)

	var null *int
	require.NoError(t, c.QueryRow(ctx, `SELECT json_contains(NULL, '{"n":1}')`).Scan(&null))
	assert.Nil(t, null)
}

func TestTransactionRollback(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()

	c, err := a.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	err = c.WithTx(ctx, func(q storage.Querier) error {
		if _, err := q.Exec(ctx, a.SQL().Insert, `{"a":1}`); err != nil {
			return err
		}
		_, err := q.Exec(ctx, a.SQL().Insert, `not json`)
		return err
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, c.QueryRow(ctx, a.SQL().Count).Scan(&n))
	assert.Equal(t, int64(0), n)
}

func TestNoRows(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()

	c, err := a.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	var id int32
	var content *string
	err = c.QueryRow(ctx, a.SQL().Get, 42).Scan(&id, &content)
	assert.ErrorIs(t, err, storage.ErrNoRows)
	assert.Equal(t, int32(1), a.Stats().InUse)
}

func TestFunctionFailureIsStatementError(t *testing.T) {
	ctx := context.Background()
	a := openTest(t)
	c, err := a.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	_, err = c.Exec(ctx, a.SQL().Insert, `{"a":"x"}`)
	require.NoError(t, err)

	// json_contains rejects the integer id while the statement steps
	rs, err := c.Query(ctx, "SELECT json_contains(id, '{}') FROM documents")
	if err == nil {
		for rs.Next() {
		}
		err = rs.Err()
		rs.Close()
		var stmtErr *storage.StatementError
		assert.ErrorAs(t, err, &stmtErr)
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected text argument")
}
