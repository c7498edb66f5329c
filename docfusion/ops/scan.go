package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/docfusion/docfusion/docfusion/datasource"
	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/metrics"
	"github.com/docfusion/docfusion/docfusion/planner"
	"github.com/docfusion/docfusion/docfusion/storage"
)

// ScanOptions configures a scan over one documents table.
type ScanOptions struct {
	Adapter    storage.Adapter
	Translator planner.Translator
	Table      string
	Mem        memory.Allocator
	Logger     *slog.Logger
}

// ScanResult is a materialized scan. The caller owns Record.
type ScanResult struct {
	Record arrow.Record
	Plan   planner.ScanPlan
}

// Scan runs the translated query on one pooled connection and decodes every
// row into a single record. Nothing is returned on error.
func Scan(ctx context.Context, opts ScanOptions, req datasource.ScanRequest) (*ScanResult, error) {
	start := time.Now()
	res, err := scan(ctx, opts, req)
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := string(dferrors.KindOf(err))
		if status == "" {
			status = "error"
		}
		metrics.ScansTotal.WithLabelValues(status).Inc()
		return nil, err
	}
	metrics.ScansTotal.WithLabelValues("ok").Inc()
	metrics.ScanRows.Add(float64(res.Record.NumRows()))
	return res, nil
}

func scan(ctx context.Context, opts ScanOptions, req datasource.ScanRequest) (*ScanResult, error) {
	schema := datasource.DocumentSchema()
	if err := validateProjection(schema, req.Projection); err != nil {
		return nil, err
	}

	mem := opts.Mem
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plan := opts.Translator.BuildScanSQL(opts.Table, req.Filters, req.Limit)
	for _, pushed := range plan.Where.Pushed {
		if pushed {
			metrics.FiltersTotal.WithLabelValues(planner.Exact.String()).Inc()
		} else {
			metrics.FiltersTotal.WithLabelValues(planner.Unsupported.String()).Inc()
		}
	}

	conn, err := opts.Adapter.Acquire(ctx)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrConnAcquire, "acquire store connection", err)
	}
	defer conn.Release()

	logger.Debug("executing SQL", "sql", plan.SQL, "backend", string(opts.Adapter.Backend()))

	rows, err := conn.Query(ctx, plan.SQL)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrQueryExec, "execute scan", err)
	}
	defer rows.Close()

	if n := rows.ColumnCount(); n != 2 {
		return nil, dferrors.New(dferrors.ErrRowDecode, fmt.Sprintf("expected 2 columns, got %d", n))
	}

	ids := array.NewInt32Builder(mem)
	defer ids.Release()
	contents := array.NewStringBuilder(mem)
	defer contents.Release()

	for rows.Next() {
		var id int32
		var content *string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, dferrors.Wrap(dferrors.ErrRowDecode, "decode row", err)
		}
		ids.Append(id)
		if content == nil {
			contents.AppendNull()
		} else {
			contents.Append(*content)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, iterError("iterate rows", err)
	}

	idArr := ids.NewArray()
	defer idArr.Release()
	contentArr := contents.NewArray()
	defer contentArr.Release()

	rec := project(schema, []arrow.Array{idArr, contentArr}, req.Projection, int64(idArr.Len()))
	logger.Debug("scan complete", "rows", rec.NumRows())
	return &ScanResult{Record: rec, Plan: plan}, nil
}

func validateProjection(schema *arrow.Schema, projection []int) error {
	for _, idx := range projection {
		if idx < 0 || idx >= schema.NumFields() {
			return dferrors.New(dferrors.ErrProjection, fmt.Sprintf("projection index %d out of range [0,%d)", idx, schema.NumFields()))
		}
	}
	return nil
}

// project selects columns by index order. A nil projection keeps all columns.
func project(schema *arrow.Schema, cols []arrow.Array, projection []int, nrows int64) arrow.Record {
	if projection == nil {
		return array.NewRecord(schema, cols, nrows)
	}
	fields := make([]arrow.Field, len(projection))
	selected := make([]arrow.Array, len(projection))
	for i, idx := range projection {
		fields[i] = schema.Field(idx)
		selected[i] = cols[idx]
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), selected, nrows)
}

// iterError classifies a Rows.Err failure: errors raised by the store are
// execution failures, anything else happened while decoding.
func iterError(msg string, err error) error {
	var stmtErr *storage.StatementError
	if errors.As(err, &stmtErr) {
		return dferrors.Wrap(dferrors.ErrQueryExec, msg, stmtErr.Err)
	}
	return dferrors.Wrap(dferrors.ErrRowDecode, msg, err)
}
