package docfusion

import "github.com/docfusion/docfusion/docfusion/ops"

const (
	DefaultTable        = "documents"
	DefaultCacheMaxRows = 1000

	MaxBulkDocuments = ops.MaxBulkDocuments
	DefaultListLimit = ops.DefaultListLimit
	MaxListLimit     = ops.MaxListLimit
)
