// Package planner translates engine filter expressions into store WHERE
// fragments and reports which filters were pushed down.
package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/storage"
)

// PushdownDecision tells the engine whether the store fully evaluates a filter.
type PushdownDecision int

const (
	Unsupported PushdownDecision = iota
	Exact
)

func (d PushdownDecision) String() string {
	if d == Exact {
		return "exact"
	}
	return "unsupported"
}

// Translator renders expressions in a store dialect. It never mutates its input.
//
// Only DocColumn and KeyColumn may appear in a fragment; any other column
// name is left to the engine.
type Translator struct {
	DocColumn string
	KeyColumn string
	Dialect   storage.Dialect
}

func NewTranslator(docColumn, keyColumn string, d storage.Dialect) Translator {
	return Translator{DocColumn: docColumn, KeyColumn: keyColumn, Dialect: d}
}

// Canonicalize rewrites dotted document columns into extract-path calls.
func (t Translator) Canonicalize(e expr.Expr) expr.Expr {
	return expr.ResolveDotted(e, t.DocColumn)
}

// Translate returns the store fragment for e, or false when any part of e
// has no store equivalent.
func (t Translator) Translate(e expr.Expr) (string, bool) {
	frag, _, ok := t.translate(t.Canonicalize(e))
	return frag, ok
}

// translateFilter is Translate restricted to boolean expressions.
func (t Translator) translateFilter(e expr.Expr) (string, bool) {
	frag, typ, ok := t.translate(t.Canonicalize(e))
	if !ok || typ != sqlBool {
		return "", false
	}
	return frag, true
}

// sqlType is the store-side type of a translated operand.
type sqlType int

const (
	sqlNull sqlType = iota
	sqlNumber
	sqlText
	sqlBool
	sqlDoc
)

func literalType(k expr.Kind) sqlType {
	switch k {
	case expr.KindString:
		return sqlText
	case expr.KindInt, expr.KindFloat:
		return sqlNumber
	case expr.KindBool:
		return sqlBool
	default:
		return sqlNull
	}
}

// eqComparable reports whether Eq over l and r means the same thing in the
// store and in the engine.
func eqComparable(l, r sqlType) bool {
	if l != r {
		return false
	}
	return l == sqlNumber || l == sqlText || l == sqlBool
}

func (t Translator) translate(e expr.Expr) (string, sqlType, bool) {
	switch n := e.(type) {
	case expr.Column:
		switch {
		case n.Name == "":
			return "", sqlNull, false
		case n.Name == t.DocColumn:
			return n.Name, sqlDoc, true
		case n.Name == t.KeyColumn:
			return n.Name, sqlNumber, true
		default:
			return "", sqlNull, false
		}

	case expr.Literal:
		return n.Value.SQL(), literalType(n.Value.Kind), true

	case expr.BinaryOp:
		l, lt, ok := t.translate(n.Left)
		if !ok {
			return "", sqlNull, false
		}
		r, rt, ok := t.translate(n.Right)
		if !ok {
			return "", sqlNull, false
		}
		switch n.Op {
		case expr.OpEq:
			if !eqComparable(lt, rt) {
				return "", sqlNull, false
			}
			return group(n.Left, l) + " = " + group(n.Right, r), sqlBool, true
		case expr.OpAnd:
			if lt != sqlBool || rt != sqlBool {
				return "", sqlNull, false
			}
			return "(" + l + " AND " + r + ")", sqlBool, true
		default:
			return "", sqlNull, false
		}

	case expr.Call:
		return t.translateCall(n)

	default:
		return "", sqlNull, false
	}
}

// group parenthesizes a nested comparison; = does not chain in Postgres.
func group(e expr.Expr, frag string) string {
	if b, ok := e.(expr.BinaryOp); ok && b.Op == expr.OpEq {
		return "(" + frag + ")"
	}
	return frag
}

func (t Translator) translateCall(c expr.Call) (string, sqlType, bool) {
	if len(c.Args) != 2 {
		return "", sqlNull, false
	}
	doc, dt, ok := t.translate(c.Args[0])
	if !ok || dt != sqlDoc {
		return "", sqlNull, false
	}
	switch c.Name {
	case expr.FnExtractPath:
		key, ok := c.Args[1].(expr.Literal)
		if !ok || key.Value.Kind != expr.KindString {
			return "", sqlNull, false
		}
		return t.Dialect.ExtractText(doc, key.Value.SQL()), sqlText, true

	case expr.FnContains, expr.FnMultiContains:
		pat, pt, ok := t.translate(c.Args[1])
		if !ok || pt != sqlText {
			return "", sqlNull, false
		}
		if t.Dialect.NativeContainment() && !flatPattern(c.Args[1]) {
			return "", sqlNull, false
		}
		return t.Dialect.Contains(doc, pat), sqlBool, true

	default:
		return "", sqlNull, false
	}
}

// flatPattern reports whether e is a string literal holding a JSON object
// whose values are strings, booleans or null. A native containment
// operator agrees with top-level equality only for such patterns: it
// recurses into nested values and compares numbers numerically.
func flatPattern(e expr.Expr) bool {
	lit, ok := e.(expr.Literal)
	if !ok || lit.Value.Kind != expr.KindString {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(lit.Value.Str)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil || dec.More() {
		return false
	}
	for _, v := range obj {
		switch v.(type) {
		case string, bool, nil:
		default:
			return false
		}
	}
	return true
}

// Where is a translated filter list.
type Where struct {
	Clause       string // without the WHERE keyword; empty when nothing translated
	Pushed       []bool
	ExplainSteps []string
}

// AllPushed reports whether every filter was translated.
func (w Where) AllPushed() bool {
	for _, p := range w.Pushed {
		if !p {
			return false
		}
	}
	return true
}

// BuildWhere translates each filter on its own and AND-joins the fragments
// that succeeded. Untranslatable filters are left out.
func (t Translator) BuildWhere(filters []expr.Expr) Where {
	w := Where{Pushed: make([]bool, len(filters))}
	parts := make([]string, 0, len(filters))
	for i, f := range filters {
		frag, ok := t.translateFilter(f)
		if !ok {
			w.ExplainSteps = append(w.ExplainSteps, "KEEP "+expr.Format(f))
			continue
		}
		w.Pushed[i] = true
		parts = append(parts, frag)
		w.ExplainSteps = append(w.ExplainSteps, "PUSH "+frag)
	}
	w.Clause = strings.Join(parts, " AND ")
	return w
}

// Pushdown reports, per filter, whether the store evaluates it exactly.
func (t Translator) Pushdown(filters []expr.Expr) []PushdownDecision {
	out := make([]PushdownDecision, len(filters))
	for i, f := range filters {
		if _, ok := t.translateFilter(f); ok {
			out[i] = Exact
		}
	}
	return out
}

// ScanPlan is a complete scan statement.
type ScanPlan struct {
	SQL          string
	Where        Where
	LimitPushed  bool
	ExplainSteps []string
}

// BuildScanSQL builds the scan statement for table. The limit is only
// pushed when every filter translated; otherwise the store would cap rows
// before the engine has applied the residual filters.
func (t Translator) BuildScanSQL(table string, filters []expr.Expr, limit *int) ScanPlan {
	w := t.BuildWhere(filters)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(t.Dialect.SelectList())
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if w.Clause != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(w.Clause)
	}

	plan := ScanPlan{Where: w}
	plan.ExplainSteps = append(plan.ExplainSteps, fmt.Sprintf("SCAN %s (%s)", table, t.Dialect.Name()))
	plan.ExplainSteps = append(plan.ExplainSteps, w.ExplainSteps...)

	if limit != nil && *limit >= 0 {
		if w.AllPushed() {
			sb.WriteString(" LIMIT ")
			sb.WriteString(strconv.Itoa(*limit))
			plan.LimitPushed = true
			plan.ExplainSteps = append(plan.ExplainSteps, "LIMIT "+strconv.Itoa(*limit))
		} else {
			plan.ExplainSteps = append(plan.ExplainSteps, "LIMIT "+strconv.Itoa(*limit)+" (in engine)")
		}
	}
	plan.SQL = sb.String()
	return plan
}
