// Package functions implements the JSON scalar functions shared by the
// in-engine evaluator and the SQLite backend.
package functions

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
	"github.com/docfusion/docfusion/docfusion/expr"
)

const (
	NameExtractPath   = expr.FnExtractPath
	NameContains      = expr.FnContains
	NameMultiContains = expr.FnMultiContains
)

// Func evaluates a scalar function over n rows.
type Func func(mem memory.Allocator, args []Value, n int) (arrow.Array, error)

var registry = map[string]Func{
	NameExtractPath:   extractPathFunc,
	NameContains:      containsFunc(NameContains),
	NameMultiContains: containsFunc(NameMultiContains),
}

func Lookup(name string) (Func, bool) {
	f, ok := registry[name]
	return f, ok
}

func IsKnown(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists the registered function names.
func Names() []string {
	return []string{NameExtractPath, NameContains, NameMultiContains}
}

func extractPathFunc(mem memory.Allocator, args []Value, n int) (arrow.Array, error) {
	if len(args) != 2 {
		return nil, dferrors.FunctionError(NameExtractPath, fmt.Sprintf("expected 2 arguments, got %d", len(args)))
	}
	return ExtractPath(mem, args[0], args[1], n)
}

func containsFunc(name string) Func {
	return func(mem memory.Allocator, args []Value, n int) (arrow.Array, error) {
		if len(args) != 2 {
			return nil, dferrors.FunctionError(name, fmt.Sprintf("expected 2 arguments, got %d", len(args)))
		}
		return containsKernel(name, mem, args[0], args[1], n)
	}
}

// ExtractPath returns, per row, the string value of key in doc. A null doc
// gives a null row; every other failure gives "".
func ExtractPath(mem memory.Allocator, doc, key Value, n int) (arrow.Array, error) {
	if err := checkArgs(NameExtractPath, n, doc, key); err != nil {
		return nil, err
	}
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(n)

	for i := 0; i < n; i++ {
		d, ok, err := doc.StringAt(i)
		if err != nil {
			return nil, dferrors.FunctionError(NameExtractPath, err.Error())
		}
		if !ok {
			b.AppendNull()
			continue
		}
		k, ok, err := key.StringAt(i)
		if err != nil {
			return nil, dferrors.FunctionError(NameExtractPath, err.Error())
		}
		if !ok {
			b.Append("")
			continue
		}
		b.Append(ExtractPathValue(d, k))
	}
	return b.NewArray(), nil
}

// Contains reports, per row, whether doc contains every top-level key/value of
// pattern. Null on either side gives a null row.
func Contains(mem memory.Allocator, doc, pattern Value, n int) (arrow.Array, error) {
	return containsKernel(NameContains, mem, doc, pattern, n)
}

// MultiContains has the same semantics as Contains under its own name.
func MultiContains(mem memory.Allocator, doc, pattern Value, n int) (arrow.Array, error) {
	return containsKernel(NameMultiContains, mem, doc, pattern, n)
}

func containsKernel(name string, mem memory.Allocator, doc, pattern Value, n int) (arrow.Array, error) {
	if err := checkArgs(name, n, doc, pattern); err != nil {
		return nil, err
	}
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Reserve(n)

	for i := 0; i < n; i++ {
		d, dok, err := doc.StringAt(i)
		if err != nil {
			return nil, dferrors.FunctionError(name, err.Error())
		}
		p, pok, err := pattern.StringAt(i)
		if err != nil {
			return nil, dferrors.FunctionError(name, err.Error())
		}
		if !dok || !pok {
			b.AppendNull()
			continue
		}
		b.Append(ContainsJSON(d, p))
	}
	return b.NewArray(), nil
}

func checkArgs(name string, n int, args ...Value) error {
	if n < 0 {
		return dferrors.FunctionError(name, fmt.Sprintf("invalid row count %d", n))
	}
	for _, a := range args {
		if err := a.checkLen(n); err != nil {
			return dferrors.FunctionError(name, err.Error())
		}
	}
	return nil
}
