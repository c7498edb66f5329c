package sqlite

import (
	"github.com/docfusion/docfusion/docfusion/functions"
	"github.com/docfusion/docfusion/docfusion/storage/sqlbuilder"
)

// Dialect renders SQLite JSON access through the registered Go functions,
// so pushed filters evaluate exactly as they do in the engine.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderQuestion }

func (Dialect) SelectList() string { return "id, content" }

func (Dialect) ExtractText(doc, key string) string {
	return functions.NameExtractPath + "(" + doc + ", " + key + ")"
}

func (Dialect) Contains(doc, pattern string) string {
	return functions.NameContains + "(" + doc + ", " + pattern + ")"
}

func (Dialect) NativeContainment() bool { return false }

func (Dialect) JSONParam(placeholder string) string { return placeholder }
