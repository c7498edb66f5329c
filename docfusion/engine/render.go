package engine

import (
	"github.com/docfusion/docfusion/docfusion/cache"
	"github.com/docfusion/docfusion/docfusion/functions"
)

// renderRows turns columnar values into row maps. A negative limit renders all rows.
func renderRows(columns []string, values []functions.Value, n, limit int) ([]cache.Row, error) {
	if limit >= 0 && n > limit {
		n = limit
	}
	rows := make([]cache.Row, 0, n)
	for i := 0; i < n; i++ {
		row := make(cache.Row, len(columns))
		for c, name := range columns {
			v, err := values[c].At(i)
			if err != nil {
				return nil, err
			}
			row[name] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
