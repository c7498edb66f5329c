package engine

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfusion/docfusion/docfusion/datasource"
	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/planner"
	"github.com/docfusion/docfusion/docfusion/storage/postgres"
)

var docs = []string{
	`{"status":"active","kind":"a"}`,
	`{"status":"inactive","kind":"b"}`,
	`{"status":"active","kind":"b"}`,
	`not json`,
}

func docRecord(t *testing.T, mem memory.Allocator) arrow.Record {
	t.Helper()
	ids := array.NewInt32Builder(mem)
	defer ids.Release()
	contents := array.NewStringBuilder(mem)
	defer contents.Release()
	for i, d := range docs {
		ids.Append(int32(i + 1))
		contents.Append(d)
	}
	ids.Append(int32(len(docs) + 1))
	contents.AppendNull()

	idArr := ids.NewArray()
	defer idArr.Release()
	cArr := contents.NewArray()
	defer cArr.Release()
	return array.NewRecord(datasource.DocumentSchema(), []arrow.Array{idArr, cArr}, int64(idArr.Len()))
}

// memTable is a provider over one in-memory record. Filters it reports as
// exact are applied with the engine's own evaluator, standing in for the store.
type memTable struct {
	t        *testing.T
	mem      memory.Allocator
	pushdown bool
	requests []datasource.ScanRequest
}

func (m *memTable) Schema() *arrow.Schema { return datasource.DocumentSchema() }

func (m *memTable) SupportsFiltersPushdown(filters []expr.Expr) []planner.PushdownDecision {
	if !m.pushdown {
		return make([]planner.PushdownDecision, len(filters))
	}
	return planner.NewTranslator("content", "id", postgres.Dialect{}).Pushdown(filters)
}

func (m *memTable) Scan(ctx context.Context, req datasource.ScanRequest) (array.RecordReader, error) {
	m.requests = append(m.requests, req)
	rec := docRecord(m.t, m.mem)
	defer rec.Release()

	var exact []expr.Expr
	decisions := m.SupportsFiltersPushdown(req.Filters)
	for i, f := range req.Filters {
		if decisions[i] == planner.Exact {
			exact = append(exact, f)
		}
	}
	filtered, err := FilterRecord(ctx, m.mem, rec, exact)
	if err != nil {
		return nil, err
	}
	defer filtered.Release()

	cols := make([]arrow.Array, 0)
	fields := make([]arrow.Field, 0)
	proj := req.Projection
	if proj == nil {
		proj = []int{0, 1}
	}
	for _, idx := range proj {
		cols = append(cols, filtered.Column(idx))
		fields = append(fields, filtered.Schema().Field(idx))
	}
	out := array.NewRecord(arrow.NewSchema(fields, nil), cols, filtered.NumRows())
	defer out.Release()
	return array.NewRecordReader(out.Schema(), []arrow.Record{out})
}

type catalog map[string]datasource.TableProvider

func (c catalog) Table(name string) (datasource.TableProvider, bool) {
	p, ok := c[name]
	return p, ok
}

func newExecutor(t *testing.T, pushdown bool) (*Executor, *memTable, *memory.CheckedAllocator) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tbl := &memTable{t: t, mem: mem, pushdown: pushdown}
	return &Executor{Catalog: catalog{"documents": tbl}, Mem: mem}, tbl, mem
}

func TestEvaluateExtractAndCompare(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	rec := docRecord(t, mem)
	defer rec.Release()

	e := expr.Eq(expr.Fn(expr.FnExtractPath, expr.Col("content"), expr.Lit("status")), expr.Lit("active"))
	v, err := Evaluate(mem, rec, e)
	require.NoError(t, err)
	defer Release(v)

	res := v.Array.(*array.Boolean)
	require.Equal(t, 5, res.Len())
	assert.True(t, res.Value(0))
	assert.False(t, res.Value(1))
	assert.True(t, res.Value(2))
	assert.False(t, res.Value(3))
	assert.True(t, res.IsNull(4))
}

func TestEvaluateThreeValuedLogic(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	rec := docRecord(t, mem)
	defer rec.Release()

	null := expr.LitValue(expr.Null())
	tru := expr.LitValue(expr.Bool(true))
	fal := expr.LitValue(expr.Bool(false))

	cases := []struct {
		e     expr.Expr
		valid bool
		want  bool
	}{
		{expr.And(tru, null), false, false},
		{expr.And(fal, null), true, false},
		{expr.Or(tru, null), true, true},
		{expr.Or(fal, null), false, false},
		{expr.Or(fal, fal), true, false},
		{expr.And(tru, tru), true, true},
	}
	for _, tc := range cases {
		v, err := Evaluate(mem, rec, tc.e)
		require.NoError(t, err)
		res := v.Array.(*array.Boolean)
		assert.Equal(t, !tc.valid, res.IsNull(0), expr.Format(tc.e))
		if tc.valid {
			assert.Equal(t, tc.want, res.Value(0), expr.Format(tc.e))
		}
		Release(v)
	}
}

func TestEvaluateNumericComparison(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	rec := docRecord(t, mem)
	defer rec.Release()

	v, err := Evaluate(mem, rec, expr.NotEq(expr.Col("id"), expr.LitValue(expr.Float(2))))
	require.NoError(t, err)
	defer Release(v)
	res := v.Array.(*array.Boolean)
	assert.True(t, res.Value(0))
	assert.False(t, res.Value(1))
}

func TestEvaluateErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	rec := docRecord(t, mem)
	defer rec.Release()

	_, err := Evaluate(mem, rec, expr.Col("missing"))
	assert.True(t, dferrors.IsKind(err, dferrors.ErrQueryParse))

	_, err = Evaluate(mem, rec, expr.Fn("upper", expr.Col("content")))
	assert.True(t, dferrors.IsKind(err, dferrors.ErrFunction))

	_, err = Evaluate(mem, rec, expr.And(expr.Col("id"), expr.LitValue(expr.Bool(true))))
	assert.Error(t, err)
}

func TestFilterRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	rec := docRecord(t, mem)
	defer rec.Release()

	out, err := FilterRecord(context.Background(), mem, rec, []expr.Expr{
		expr.Fn(expr.FnContains, expr.Col("content"), expr.Lit(`{"kind":"b"}`)),
		expr.Eq(expr.Fn(expr.FnExtractPath, expr.Col("content"), expr.Lit("status")), expr.Lit("active")),
	})
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, int64(1), out.NumRows())
	assert.Equal(t, int32(3), out.Column(0).(*array.Int32).Value(0))
}

func TestExecuteSelectStarWithResidualFilters(t *testing.T) {
	for _, pushdown := range []bool{false, true} {
		x, _, mem := newExecutor(t, pushdown)
		q, err := expr.ParseQuery(`SELECT * FROM documents WHERE content.status = 'active' AND (content.kind = 'b' OR id = 1)`)
		require.NoError(t, err)

		res, err := x.Execute(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "content"}, res.Columns)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, int64(1), res.Rows[0]["id"])
		assert.Equal(t, int64(3), res.Rows[1]["id"])
		assert.Equal(t, docs[2], res.Rows[1]["content"])
		if pushdown {
			assert.Equal(t, 1, res.Pushed)
			assert.Equal(t, 1, res.Residual)
		} else {
			assert.Equal(t, 0, res.Pushed)
			assert.Equal(t, 2, res.Residual)
		}
		mem.AssertSize(t, 0)
	}
}

func TestExecuteSelectItemsAndProjection(t *testing.T) {
	x, tbl, mem := newExecutor(t, true)
	defer mem.AssertSize(t, 0)

	q, err := expr.ParseQuery(`SELECT json_extract_path(content, 'kind') AS kind, content.status FROM documents WHERE json_contains(content, '{"status":"active"}')`)
	require.NoError(t, err)

	res, err := x.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "content.status"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a", res.Rows[0]["kind"])
	assert.Equal(t, "active", res.Rows[0]["content.status"])

	require.Len(t, tbl.requests, 1)
	assert.Equal(t, []int{1}, tbl.requests[0].Projection)
}

func TestExecuteLimit(t *testing.T) {
	x, tbl, mem := newExecutor(t, false)
	defer mem.AssertSize(t, 0)

	q, err := expr.ParseQuery(`SELECT id FROM documents WHERE content.status != 'x' LIMIT 2`)
	require.NoError(t, err)

	res, err := x.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []int{0, 1}, tbl.requests[0].Projection)
	assert.Equal(t, 2, *tbl.requests[0].Limit)
}

func TestExecuteUnknownTableAndColumn(t *testing.T) {
	x, _, _ := newExecutor(t, false)

	q, err := expr.ParseQuery(`SELECT * FROM other`)
	require.NoError(t, err)
	_, err = x.Execute(context.Background(), q)
	assert.True(t, dferrors.IsKind(err, dferrors.ErrQueryParse))

	q, err = expr.ParseQuery(`SELECT nope FROM documents`)
	require.NoError(t, err)
	_, err = x.Execute(context.Background(), q)
	assert.True(t, dferrors.IsKind(err, dferrors.ErrQueryParse))
}

func TestExplain(t *testing.T) {
	x, _, _ := newExecutor(t, true)
	q, err := expr.ParseQuery(`SELECT id FROM documents WHERE content.a = '1' AND content.b != '2'`)
	require.NoError(t, err)

	steps, err := x.Explain(q)
	require.NoError(t, err)
	assert.Contains(t, steps, "FILTER (json_extract_path(content, 'b') != '2')")
	assert.Contains(t, steps, "PROJECT [0 1]")
}
