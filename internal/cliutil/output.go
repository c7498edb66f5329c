package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/docfusion/docfusion/docfusion"
)

type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

var headerColor = color.New(color.FgCyan, color.Bold)

// Columns returns cols, or the sorted keys of the first row when cols is empty.
func Columns(cols []string, rows []docfusion.Row) []string {
	if len(cols) > 0 || len(rows) == 0 {
		return cols
	}
	out := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// PrintTable writes rows as aligned columns with a colored header.
func PrintTable(w io.Writer, cols []string, rows []docfusion.Row) {
	widths := make([]int, len(cols))
	cells := make([][]string, len(rows))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			s := cell(row[c])
			cells[r][i] = s
			widths[i] = max(widths[i], len(s))
		}
	}

	pad := func(s string, i int) string {
		if i == len(cols)-1 {
			return s
		}
		return s + strings.Repeat(" ", widths[i]-len(s)+2)
	}

	var b strings.Builder
	for i, c := range cols {
		b.WriteString(headerColor.Sprint(pad(strings.ToUpper(c), i)))
	}
	fmt.Fprintln(w, b.String())
	for _, line := range cells {
		b.Reset()
		for i, s := range line {
			b.WriteString(pad(s, i))
		}
		fmt.Fprintln(w, b.String())
	}
}

// PrintDocuments writes documents as an id/content table.
func PrintDocuments(w io.Writer, docs []docfusion.Document) {
	rows := make([]docfusion.Row, len(docs))
	for i, d := range docs {
		rows[i] = docfusion.Row{"id": d.ID, "content": string(d.Content)}
	}
	PrintTable(w, []string{"id", "content"}, rows)
}
