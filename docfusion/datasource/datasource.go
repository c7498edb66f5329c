// Package datasource is the contract between the query engine and a table
// it can scan.
package datasource

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/planner"
)

const (
	ColumnID      = "id"
	ColumnContent = "content"
)

// DocumentSchema is the fixed schema of a document table.
func DocumentSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: ColumnID, Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: ColumnContent, Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
}

// ScanRequest describes one scan. A nil Projection selects every column.
type ScanRequest struct {
	Projection []int
	Filters    []expr.Expr
	Limit      *int
}

type TableProvider interface {
	Schema() *arrow.Schema
	SupportsFiltersPushdown(filters []expr.Expr) []planner.PushdownDecision
	// Scan returns a single-use reader over the materialized result.
	Scan(ctx context.Context, req ScanRequest) (array.RecordReader, error)
}

// Explainer is implemented by providers that can describe a scan without running it.
type Explainer interface {
	ExplainScan(req ScanRequest) []string
}

// Catalog resolves table names to providers.
type Catalog interface {
	Table(name string) (TableProvider, bool)
}
