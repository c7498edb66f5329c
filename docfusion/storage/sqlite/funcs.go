package sqlite

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"modernc.org/sqlite"

	"github.com/docfusion/docfusion/docfusion/functions"
)

// scalarFunc is a two-argument SQL function over JSON text. A nil result is SQL NULL.
type scalarFunc func(a, b any) (any, error)

var scalarFuncs = map[string]scalarFunc{
	functions.NameExtractPath: func(doc, key any) (any, error) {
		d, ok, err := text(doc)
		if err != nil || !ok {
			return nil, err
		}
		k, ok, err := text(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return "", nil
		}
		return functions.ExtractPathValue(d, k), nil
	},
	functions.NameContains:      containsFunc,
	functions.NameMultiContains: containsFunc,
}

func containsFunc(doc, pattern any) (any, error) {
	d, dok, err := text(doc)
	if err != nil {
		return nil, err
	}
	p, pok, err := text(pattern)
	if err != nil {
		return nil, err
	}
	if !dok || !pok {
		return nil, nil
	}
	if functions.ContainsJSON(d, p) {
		return int64(1), nil
	}
	return int64(0), nil
}

func text(v any) (string, bool, error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return x, true, nil
	case []byte:
		return string(x), true, nil
	default:
		return "", false, fmt.Errorf("expected text argument, got %T", v)
	}
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterFunctions installs the JSON functions on the modernc driver.
// Registration is process-wide and happens once.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		for name, fn := range scalarFuncs {
			err := sqlite.RegisterDeterministicScalarFunction(name, 2,
				func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
					return fn(args[0], args[1])
				})
			if err != nil {
				registerErr = fmt.Errorf("register %s: %w", name, err)
				return
			}
		}
	})
	return registerErr
}
