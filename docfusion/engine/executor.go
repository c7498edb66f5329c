package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/docfusion/docfusion/docfusion/cache"
	"github.com/docfusion/docfusion/docfusion/datasource"
	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/functions"
	"github.com/docfusion/docfusion/docfusion/planner"
)

// Executor runs parsed queries against the tables of a catalog.
type Executor struct {
	Catalog datasource.Catalog
	Mem     memory.Allocator
	Logger  *slog.Logger
}

// Result is a fully materialized query result.
type Result struct {
	Columns      []string
	Rows         []cache.Row
	Pushed       int
	Residual     int
	ExplainSteps []string
}

type queryPlan struct {
	provider   datasource.TableProvider
	items      []expr.SelectItem
	req        datasource.ScanRequest
	residual   []expr.Expr
	decisions  []planner.PushdownDecision
	scanSchema *arrow.Schema
}

func (x *Executor) mem() memory.Allocator {
	if x.Mem == nil {
		return memory.DefaultAllocator
	}
	return x.Mem
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.Default()
	}
	return x.Logger
}

func (x *Executor) plan(q *expr.Query) (*queryPlan, error) {
	provider, ok := x.Catalog.Table(q.Table)
	if !ok {
		return nil, dferrors.QueryParseError(fmt.Sprintf("unknown table %q", q.Table))
	}
	schema := provider.Schema()

	// Dotted document fields are canonicalized once so that pushdown and
	// in-engine evaluation see the same tree.
	filters := expr.SplitConjunction(expr.ResolveDotted(q.Where, datasource.ColumnContent))
	items := make([]expr.SelectItem, len(q.Items))
	for i, it := range q.Items {
		items[i] = expr.SelectItem{Expr: expr.ResolveDotted(it.Expr, datasource.ColumnContent), Alias: it.Alias}
		if it.Alias == "" {
			items[i].Alias = it.Name()
		}
	}

	p := &queryPlan{provider: provider, items: items}
	p.decisions = provider.SupportsFiltersPushdown(filters)
	for i, f := range filters {
		if p.decisions[i] != planner.Exact {
			p.residual = append(p.residual, f)
		}
	}

	p.req = datasource.ScanRequest{Filters: filters, Limit: q.Limit}
	if !q.Star {
		var needed []string
		for _, it := range items {
			needed = append(needed, expr.Columns(it.Expr)...)
		}
		for _, f := range p.residual {
			needed = append(needed, expr.Columns(f)...)
		}
		projection, err := projectionFor(schema, needed)
		if err != nil {
			return nil, err
		}
		p.req.Projection = projection
	}
	return p, nil
}

func projectionFor(schema *arrow.Schema, names []string) ([]int, error) {
	seen := make(map[int]bool)
	projection := make([]int, 0, len(names))
	for _, name := range names {
		idx := columnIndex(schema, name)
		if idx < 0 {
			return nil, dferrors.QueryParseError(fmt.Sprintf("unknown column %q", name))
		}
		if !seen[idx] {
			seen[idx] = true
			projection = append(projection, idx)
		}
	}
	sort.Ints(projection)
	return projection, nil
}

// Explain describes how q would run without touching the store.
func (x *Executor) Explain(q *expr.Query) ([]string, error) {
	p, err := x.plan(q)
	if err != nil {
		return nil, err
	}
	return x.explain(p), nil
}

func (x *Executor) explain(p *queryPlan) []string {
	var steps []string
	if e, ok := p.provider.(datasource.Explainer); ok {
		steps = append(steps, e.ExplainScan(p.req)...)
	}
	if p.req.Projection != nil {
		steps = append(steps, fmt.Sprintf("PROJECT %v", p.req.Projection))
	}
	for _, f := range p.residual {
		steps = append(steps, "FILTER "+expr.Format(f))
	}
	return steps
}

// Execute plans q, scans the table with every translatable filter pushed
// down, re-applies the rest in the engine and renders the rows.
func (x *Executor) Execute(ctx context.Context, q *expr.Query) (*Result, error) {
	start := time.Now()
	p, err := x.plan(q)
	if err != nil {
		return nil, err
	}

	reader, err := p.provider.Scan(ctx, p.req)
	if err != nil {
		return nil, err
	}
	defer reader.Release()

	res := &Result{
		Pushed:       len(p.req.Filters) - len(p.residual),
		Residual:     len(p.residual),
		ExplainSteps: x.explain(p),
	}

	for reader.Next() {
		if q.Limit != nil && len(res.Rows) >= *q.Limit {
			break
		}
		if err := x.consume(ctx, p, q, reader.Record(), res); err != nil {
			return nil, err
		}
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	if res.Columns == nil {
		res.Columns = outputColumns(p, q, p.provider.Schema())
	}

	x.logger().Debug("query executed",
		"table", q.Table,
		"rows", len(res.Rows),
		"pushed", res.Pushed,
		"residual", res.Residual,
		"elapsed", time.Since(start))
	return res, nil
}

func (x *Executor) consume(ctx context.Context, p *queryPlan, q *expr.Query, batch arrow.Record, res *Result) error {
	mem := x.mem()
	rec, err := FilterRecord(ctx, mem, batch, p.residual)
	if err != nil {
		return err
	}
	defer rec.Release()

	if res.Columns == nil {
		res.Columns = outputColumns(p, q, rec.Schema())
	}

	values := make([]functions.Value, 0, len(res.Columns))
	defer func() {
		for _, v := range values {
			Release(v)
		}
	}()
	if q.Star {
		for i := 0; i < int(rec.NumCols()); i++ {
			col := rec.Column(i)
			col.Retain()
			values = append(values, functions.ArrayValue(col))
		}
	} else {
		for _, it := range p.items {
			v, err := Evaluate(mem, rec, it.Expr)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
	}

	rows, err := renderRows(res.Columns, values, int(rec.NumRows()), remaining(q.Limit, len(res.Rows)))
	if err != nil {
		return err
	}
	res.Rows = append(res.Rows, rows...)
	return nil
}

func outputColumns(p *queryPlan, q *expr.Query, schema *arrow.Schema) []string {
	if q.Star {
		cols := make([]string, schema.NumFields())
		for i, f := range schema.Fields() {
			cols[i] = f.Name
		}
		return cols
	}
	cols := make([]string, len(p.items))
	for i, it := range p.items {
		cols[i] = it.Alias
	}
	return cols
}

func remaining(limit *int, have int) int {
	if limit == nil {
		return -1
	}
	return max(*limit-have, 0)
}
