package docfusion_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfusion/docfusion/docfusion"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/storage/sqlite"
)

func newDB(t *testing.T, opts docfusion.Options) *docfusion.DB {
	t.Helper()
	db, _ := newDBWithAdapter(t, opts)
	return db
}

func newDBWithAdapter(t *testing.T, opts docfusion.Options) (*docfusion.DB, *sqlite.Adapter) {
	t.Helper()

	adapter, err := sqlite.New(sqlite.Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)

	db, err := docfusion.Open(context.Background(), adapter, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db, adapter
}

func seed(t *testing.T, db *docfusion.DB) {
	t.Helper()
	_, err := db.BulkInsert(context.Background(), [][]byte{
		[]byte(`{"status":"active","kind":"a","n":1}`),
		[]byte(`{"status":"inactive","kind":"b","n":2}`),
		[]byte(`{"status":"active","kind":"b","n":3}`),
		[]byte(`{"status":"pending","name":"O'Brien"}`),
	})
	require.NoError(t, err)
}

func ids(rows []docfusion.Row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["id"].(int64))
	}
	return out
}

func TestDocumentsCRUD_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())

	doc, err := db.Insert(ctx, []byte(`{"status": "active"}`))
	require.NoError(t, err)
	assert.Equal(t, int32(1), doc.ID)

	got, err := db.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"active"}`, string(got.Content))

	_, err = db.Insert(ctx, []byte(`[1,2]`))
	assert.True(t, docfusion.IsKind(err, docfusion.ErrInvalidDocument))

	res, err := db.BulkInsert(ctx, [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)})
	require.NoError(t, err)
	assert.Equal(t, docfusion.BulkResult{Inserted: 2, FirstID: 2, LastID: 3}, res)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	list, err := db.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int32(2), list[0].ID)

	deleted, err := db.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = db.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = db.Get(ctx, 1)
	assert.True(t, docfusion.IsKind(err, docfusion.ErrNotFound))
}

func TestBulkInsertIsAtomic_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())

	_, err := db.BulkInsert(ctx, [][]byte{[]byte(`{"a":1}`), []byte(`"nope"`)})
	require.Error(t, err)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestScanProjection_SQLite(t *testing.T) {
	ctx := context.Background()
	db, adapter := newDBWithAdapter(t, docfusion.DefaultOptions())
	seed(t, db)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	table := docfusion.NewDocumentTable(adapter, mem, nil)

	reader, err := table.Scan(ctx, docfusion.ScanRequest{
		Projection: []int{1},
		Filters:    []expr.Expr{expr.Eq(expr.Col("content.status"), expr.Lit("active"))},
	})
	require.NoError(t, err)
	defer reader.Release()

	require.True(t, reader.Next())
	rec := reader.Record()
	require.Equal(t, int64(1), rec.NumCols())
	assert.Equal(t, "content", rec.Schema().Field(0).Name)
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Contains(t, rec.Column(0).(*array.String).Value(0), `"kind":"a"`)
	assert.False(t, reader.Next())
}

func TestQueryPushdownAndResidual_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())
	seed(t, db)

	pushed, err := db.Query(ctx, `SELECT * FROM documents WHERE json_extract_path(content, 'status') = 'active'`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(pushed.Rows))
	assert.Equal(t, 1, pushed.Pushed)
	assert.Equal(t, 0, pushed.Residual)

	dotted, err := db.Query(ctx, `SELECT * FROM documents WHERE content.status = 'active'`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, ids(pushed.Rows), ids(dotted.Rows))

	// OR is evaluated in the engine and must select the same rows
	residual, err := db.Query(ctx, `SELECT * FROM documents WHERE content.status = 'active' OR content.status = 'active'`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, residual.Pushed)
	assert.Equal(t, 1, residual.Residual)
	assert.Equal(t, ids(pushed.Rows), ids(residual.Rows))

	contains, err := db.Query(ctx, `SELECT id FROM documents WHERE json_contains(content, '{"kind":"b","status":"active"}')`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(contains.Rows))

	quoted, err := db.Query(ctx, `SELECT id FROM documents WHERE content.name = 'O''Brien'`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(quoted.Rows))
}

func TestPushedAndResidualAgree_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())
	seed(t, db)

	cases := []struct {
		name     string
		pushed   string
		residual string
		want     []int64
	}{
		// non-string and missing values extract as ''
		{"empty text", `content.n = ''`, `content.n = '' OR id = 999`, []int64{1, 2, 3, 4}},
		{"number", `content.n = 1`, `content.n = 1 OR id = 999`, []int64{}},
		{"string", `content.kind = 'b'`, `content.kind = 'b' OR id = 999`, []int64{2, 3}},
		{"contains", `json_contains(content, '{"n":3}')`, `json_contains(content, '{"n":3}') OR id = 999`, []int64{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := db.Query(ctx, `SELECT id FROM documents WHERE `+tc.pushed, docfusion.QueryOptions{NoCache: true})
			require.NoError(t, err)
			b, err := db.Query(ctx, `SELECT id FROM documents WHERE `+tc.residual, docfusion.QueryOptions{NoCache: true})
			require.NoError(t, err)
			assert.Equal(t, 1, b.Residual)
			assert.Equal(t, tc.want, ids(a.Rows))
			assert.Equal(t, tc.want, ids(b.Rows))
		})
	}

	pushed, err := db.Query(ctx, `SELECT id FROM documents WHERE content.n = ''`, docfusion.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, pushed.Pushed)
}

func TestQuotedIdentifierStaysInEngine_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())
	seed(t, db)

	res, err := db.Query(ctx,
		`SELECT * FROM documents WHERE "id = -1 UNION SELECT 1234, sql FROM sqlite_master WHERE 1" = 1`,
		docfusion.QueryOptions{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, docfusion.IsKind(err, docfusion.ErrQueryParse), "got %v", err)
	assert.Contains(t, err.Error(), "unknown column")

	res, err = db.Query(ctx,
		`SELECT * FROM documents WHERE "id = -1 UNION SELECT 1234, sql FROM sqlite_master WHERE 1" = 1`,
		docfusion.QueryOptions{Explain: true})
	require.NoError(t, err)
	assert.Contains(t, res.ExplainSteps, "SQL SELECT id, content FROM documents")
	assert.Contains(t, res.ExplainSteps, `KEEP ("id = -1 UNION SELECT 1234, sql FROM sqlite_master WHERE 1" = 1)`)
}

func TestQueryLimitWithResidual_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())
	seed(t, db)

	res, err := db.Query(ctx, `SELECT id FROM documents WHERE content.kind = 'b' AND content.status != 'inactive' LIMIT 1`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(res.Rows))

	res, err = db.Query(ctx, `SELECT id FROM documents WHERE content.kind = 'b' LIMIT 1`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(res.Rows))
}

func TestQueryCache_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())
	seed(t, db)

	first, err := db.Query(ctx, `SELECT id FROM documents WHERE content.kind = 'a'`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := db.Query(ctx, `  select id from documents where content.kind = 'a'  `, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Pushed, second.Pushed)
	assert.Equal(t, first.Residual, second.Residual)

	ordered := `SELECT content.kind, id FROM documents WHERE content.kind = 'b' OR id = 1`
	fresh, err := db.Query(ctx, ordered, docfusion.QueryOptions{})
	require.NoError(t, err)
	hit, err := db.Query(ctx, ordered, docfusion.QueryOptions{})
	require.NoError(t, err)
	require.True(t, hit.Cached)
	assert.Equal(t, []string{"content.kind", "id"}, fresh.Columns)
	assert.Equal(t, fresh.Columns, hit.Columns)
	assert.Equal(t, 1, hit.Residual)

	stats, ok := db.CacheStats()
	require.True(t, ok)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)

	bypass, err := db.Query(ctx, `SELECT id FROM documents WHERE content.kind = 'a'`, docfusion.QueryOptions{NoCache: true})
	require.NoError(t, err)
	assert.False(t, bypass.Cached)

	db.ClearCache()
	stats, _ = db.CacheStats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, uint64(2), stats.Hits)
}

func TestQueryCacheRowLimit_SQLite(t *testing.T) {
	ctx := context.Background()
	opts := docfusion.DefaultOptions()
	opts.CacheMaxRows = 2
	db := newDB(t, opts)
	seed(t, db)

	_, err := db.Query(ctx, `SELECT id FROM documents`, docfusion.QueryOptions{})
	require.NoError(t, err)
	again, err := db.Query(ctx, `SELECT id FROM documents`, docfusion.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Len(t, again.Rows, 4)
}

func TestQueryExplain_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())

	res, err := db.Query(ctx, `SELECT id FROM documents WHERE content.a = '1' AND content.b != '2' LIMIT 5`, docfusion.QueryOptions{Explain: true})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Contains(t, res.ExplainSteps, "PUSH json_extract_path(content, 'a') = '1'")
	assert.Contains(t, res.ExplainSteps, "SQL SELECT id, content FROM documents WHERE json_extract_path(content, 'a') = '1'")
	assert.Contains(t, res.ExplainSteps, "LIMIT 5 (in engine)")
}

func TestQueryErrors_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newDB(t, docfusion.DefaultOptions())

	_, err := db.Query(ctx, `SELEC * FROM documents`, docfusion.QueryOptions{})
	assert.True(t, docfusion.IsKind(err, docfusion.ErrQueryParse))

	_, err = db.Query(ctx, `SELECT * FROM missing`, docfusion.QueryOptions{})
	assert.True(t, docfusion.IsKind(err, docfusion.ErrQueryParse))
}
