package docfusion

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/docfusion/docfusion/docfusion/datasource"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/ops"
	"github.com/docfusion/docfusion/docfusion/planner"
	"github.com/docfusion/docfusion/docfusion/storage"
)

// DocumentTable exposes a store's documents table to the engine.
type DocumentTable struct {
	adapter    storage.Adapter
	translator planner.Translator
	table      string
	mem        memory.Allocator
	logger     *slog.Logger
}

func NewDocumentTable(adapter storage.Adapter, mem memory.Allocator, logger *slog.Logger) *DocumentTable {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentTable{
		adapter:    adapter,
		translator: planner.NewTranslator(datasource.ColumnContent, datasource.ColumnID, adapter.Dialect()),
		table:      adapter.SQL().Table,
		mem:        mem,
		logger:     logger,
	}
}

func (t *DocumentTable) Name() string { return t.table }

func (t *DocumentTable) Schema() *arrow.Schema { return datasource.DocumentSchema() }

func (t *DocumentTable) SupportsFiltersPushdown(filters []expr.Expr) []planner.PushdownDecision {
	return t.translator.Pushdown(filters)
}

// Scan materializes the whole result and returns a reader yielding it as one batch.
func (t *DocumentTable) Scan(ctx context.Context, req datasource.ScanRequest) (array.RecordReader, error) {
	res, err := ops.Scan(ctx, ops.ScanOptions{
		Adapter:    t.adapter,
		Translator: t.translator,
		Table:      t.table,
		Mem:        t.mem,
		Logger:     t.logger,
	}, req)
	if err != nil {
		return nil, err
	}
	defer res.Record.Release()
	return array.NewRecordReader(res.Record.Schema(), []arrow.Record{res.Record})
}

func (t *DocumentTable) ExplainScan(req datasource.ScanRequest) []string {
	plan := t.translator.BuildScanSQL(t.table, req.Filters, req.Limit)
	return append(plan.ExplainSteps, "SQL "+plan.SQL)
}
