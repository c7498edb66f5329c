package expr

import (
	"strconv"
	"strings"
)

// Kind is the type tag of a Scalar
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Scalar is a single typed value. Only the field matching Kind is meaningful.
type Scalar struct {
	Kind Kind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

func Null() Scalar { return Scalar{Kind: KindNull} }
func String(s string) Scalar { return Scalar{Kind: KindString, Str: s} }
func Int(n int64) Scalar { return Scalar{Kind: KindInt, Int: n} }
func Float(f float64) Scalar { return Scalar{Kind: KindFloat, Flt: f} }
func Bool(b bool) Scalar { return Scalar{Kind: KindBool, Bool: b} }
func (s Scalar) IsNull() bool { return s.Kind == KindNull }

// SQL renders the canonical SQL text form of the value. Strings are
// single-quoted with embedded quotes doubled.
func (s Scalar) SQL() string {
	switch s.Kind {
	case KindString:
		return "'" + strings.ReplaceAll(s.Str, "'", "''") + "'"
	case KindInt:
		return strconv.FormatInt(s.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(s.Flt, 'g', -1, 64)
	case KindBool:
		if s.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return "NULL"
	}
}

// Any returns the value as a plain Go value (nil for null).
func (s Scalar) Any() any {
	switch s.Kind {
	case KindString:
		return s.Str
	case KindInt:
		return s.Int
	case KindFloat:
		return s.Flt
	case KindBool:
		return s.Bool
	default:
		return nil
	}
}
