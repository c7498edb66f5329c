package postgres

import "github.com/docfusion/docfusion/docfusion/storage/sqlbuilder"

// Dialect renders PostgreSQL jsonb operators.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (Dialect) SelectList() string { return "id, content::text" }

// ExtractText only yields the text of string values; ->> alone would also
// stringify numbers and booleans and return NULL for missing keys.
func (Dialect) ExtractText(doc, key string) string {
	return "(CASE WHEN " + doc + " IS NULL THEN NULL" +
		" WHEN jsonb_typeof(" + doc + "->" + key + ") = 'string' THEN " + doc + "->>" + key +
		" ELSE '' END)"
}

func (Dialect) Contains(doc, pattern string) string { return doc + " @> " + pattern }

func (Dialect) NativeContainment() bool { return true }

func (Dialect) JSONParam(placeholder string) string { return placeholder + "::jsonb" }
