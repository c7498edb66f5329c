package functions

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/docfusion/docfusion/docfusion/expr"
)

// Value is a function argument or result: either a column (Array) or a
// constant (Scalar) broadcast across every row of the batch.
type Value struct {
	Array  arrow.Array
	Scalar expr.Scalar
}

func ArrayValue(a arrow.Array) Value { return Value{Array: a} }

func ScalarValue(s expr.Scalar) Value { return Value{Scalar: s} }

func (v Value) IsScalar() bool { return v.Array == nil }

// checkLen accepts a scalar, a single-element column (broadcast) or a column of n rows.
func (v Value) checkLen(n int) error {
	if v.IsScalar() || v.Array.Len() == 1 || v.Array.Len() == n {
		return nil
	}
	return fmt.Errorf("argument has %d rows, batch has %d", v.Array.Len(), n)
}

func (v Value) row(i int) int {
	if v.Array.Len() == 1 {
		return 0
	}
	return i
}

// StringAt returns the text at row i; ok is false for null.
func (v Value) StringAt(i int) (s string, ok bool, err error) {
	if v.IsScalar() {
		switch v.Scalar.Kind {
		case expr.KindNull:
			return "", false, nil
		case expr.KindString:
			return v.Scalar.Str, true, nil
		default:
			return "", false, fmt.Errorf("expected string, got %s", v.Scalar.Kind)
		}
	}
	arr, isString := v.Array.(*array.String)
	if !isString {
		if v.Array.DataType().ID() == arrow.NULL {
			return "", false, nil
		}
		return "", false, fmt.Errorf("expected string column, got %s", v.Array.DataType())
	}
	r := v.row(i)
	if arr.IsNull(r) {
		return "", false, nil
	}
	return arr.Value(r), true, nil
}

// At returns the value at row i as a plain Go value: int64, float64, string,
// bool, or nil for null.
func (v Value) At(i int) (any, error) {
	if v.IsScalar() {
		return v.Scalar.Any(), nil
	}
	r := v.row(i)
	if v.Array.IsNull(r) {
		return nil, nil
	}
	switch a := v.Array.(type) {
	case *array.Int32:
		return int64(a.Value(r)), nil
	case *array.Int64:
		return a.Value(r), nil
	case *array.Float64:
		return a.Value(r), nil
	case *array.String:
		return a.Value(r), nil
	case *array.Boolean:
		return a.Value(r), nil
	case *array.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", v.Array.DataType())
	}
}
