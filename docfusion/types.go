package docfusion

import (
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/docfusion/docfusion/docfusion/cache"
	"github.com/docfusion/docfusion/docfusion/datasource"
	"github.com/docfusion/docfusion/docfusion/ops"
	"github.com/docfusion/docfusion/docfusion/planner"
)

type (
	Document      = ops.Document
	BulkResult    = ops.BulkResult
	Row           = cache.Row
	ScanRequest   = datasource.ScanRequest
	TableProvider = datasource.TableProvider

	PushdownDecision = planner.PushdownDecision
)

const (
	Exact       = planner.Exact
	Unsupported = planner.Unsupported
)

// Options configures a DB.
type Options struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	CacheMaxSize   int
	CacheMaxRows   int    // larger results are not cached
	DocumentSchema string // optional JSON schema every document must satisfy
	Logger         *slog.Logger
	Mem            memory.Allocator
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		CacheEnabled: true,
		CacheTTL:     cache.DefaultTTL,
		CacheMaxSize: cache.DefaultMaxSize,
		CacheMaxRows: DefaultCacheMaxRows,
		Logger:       slog.Default(),
		Mem:          memory.DefaultAllocator,
	}
}

// QueryOptions configures a single query
type QueryOptions struct {
	Explain bool // plan only, do not touch the store
	NoCache bool // bypass the result cache for lookup and store
}

// QueryResult is the outcome of DB.Query
type QueryResult struct {
	Columns      []string      `json:"columns,omitempty"`
	Rows         []Row         `json:"rows"`
	Count        int           `json:"count"`
	Cached       bool          `json:"cached"`
	Pushed       int           `json:"pushed_filters"`
	Residual     int           `json:"residual_filters"`
	ExplainSteps []string      `json:"explain,omitempty"`
	Elapsed      time.Duration `json:"-"`
}
