// Package engine evaluates expressions over Arrow records and runs parsed
// queries against table providers.
package engine

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/expr"
	"github.com/docfusion/docfusion/docfusion/functions"
)

// Evaluate computes e over every row of rec. Array results are owned by the
// caller and must be released with Release.
func Evaluate(mem memory.Allocator, rec arrow.Record, e expr.Expr) (functions.Value, error) {
	n := int(rec.NumRows())
	switch x := e.(type) {
	case expr.Column:
		idx := columnIndex(rec.Schema(), x.Name)
		if idx < 0 {
			return functions.Value{}, dferrors.QueryParseError(fmt.Sprintf("unknown column %q", x.Name))
		}
		col := rec.Column(idx)
		col.Retain()
		return functions.ArrayValue(col), nil

	case expr.Literal:
		return functions.ScalarValue(x.Value), nil

	case expr.Call:
		fn, ok := functions.Lookup(x.Name)
		if !ok {
			return functions.Value{}, dferrors.FunctionError(x.Name, "unknown function")
		}
		args := make([]functions.Value, 0, len(x.Args))
		defer func() {
			for _, a := range args {
				Release(a)
			}
		}()
		for _, a := range x.Args {
			v, err := Evaluate(mem, rec, a)
			if err != nil {
				return functions.Value{}, err
			}
			args = append(args, v)
		}
		out, err := fn(mem, args, n)
		if err != nil {
			return functions.Value{}, err
		}
		return functions.ArrayValue(out), nil

	case expr.BinaryOp:
		l, err := Evaluate(mem, rec, x.Left)
		if err != nil {
			return functions.Value{}, err
		}
		defer Release(l)
		r, err := Evaluate(mem, rec, x.Right)
		if err != nil {
			return functions.Value{}, err
		}
		defer Release(r)

		var out arrow.Array
		switch x.Op {
		case expr.OpEq, expr.OpNotEq:
			out, err = compare(mem, x.Op, l, r, n)
		case expr.OpAnd, expr.OpOr:
			out, err = logical(mem, x.Op, l, r, n)
		default:
			err = dferrors.New(dferrors.ErrQueryParse, fmt.Sprintf("unsupported operator %s", x.Op))
		}
		if err != nil {
			return functions.Value{}, err
		}
		return functions.ArrayValue(out), nil

	default:
		return functions.Value{}, dferrors.New(dferrors.ErrQueryParse, fmt.Sprintf("unsupported expression %T", e))
	}
}

// Release frees the array held by v, if any.
func Release(v functions.Value) {
	if v.Array != nil {
		v.Array.Release()
	}
}

func columnIndex(schema *arrow.Schema, name string) int {
	for i, f := range schema.Fields() {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

func compare(mem memory.Allocator, op expr.Operator, l, r functions.Value, n int) (arrow.Array, error) {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Reserve(n)

	for i := 0; i < n; i++ {
		lv, err := l.At(i)
		if err != nil {
			return nil, err
		}
		rv, err := r.At(i)
		if err != nil {
			return nil, err
		}
		if lv == nil || rv == nil {
			b.AppendNull()
			continue
		}
		eq := equalValues(lv, rv)
		if op == expr.OpNotEq {
			eq = !eq
		}
		b.Append(eq)
	}
	return b.NewArray(), nil
}

// equalValues compares numbers numerically; other kinds must match exactly.
func equalValues(a, b any) bool {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

// logical applies three-valued AND/OR.
func logical(mem memory.Allocator, op expr.Operator, l, r functions.Value, n int) (arrow.Array, error) {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Reserve(n)

	for i := 0; i < n; i++ {
		lv, lok, err := boolAt(l, i)
		if err != nil {
			return nil, err
		}
		rv, rok, err := boolAt(r, i)
		if err != nil {
			return nil, err
		}
		switch op {
		case expr.OpAnd:
			switch {
			case (lok && !lv) || (rok && !rv):
				b.Append(false)
			case !lok || !rok:
				b.AppendNull()
			default:
				b.Append(true)
			}
		default:
			switch {
			case (lok && lv) || (rok && rv):
				b.Append(true)
			case !lok || !rok:
				b.AppendNull()
			default:
				b.Append(false)
			}
		}
	}
	return b.NewArray(), nil
}

func boolAt(v functions.Value, i int) (val, valid bool, err error) {
	x, err := v.At(i)
	if err != nil {
		return false, false, err
	}
	switch b := x.(type) {
	case nil:
		return false, false, nil
	case bool:
		return b, true, nil
	default:
		return false, false, dferrors.New(dferrors.ErrQueryParse, fmt.Sprintf("expected boolean, got %T", x))
	}
}
