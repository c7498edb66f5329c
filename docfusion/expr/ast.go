package expr

// Expr is a filter or projection expression handed to a table provider.
// The set of variants is closed; consumers switch on the concrete type.
type Expr interface {
	isExpr()
}

// Column references a table column by name. A name of the form
// "<document column>.<field>" addresses a top-level JSON field.
type Column struct {
	Name string
}

func (Column) isExpr() {}

// Literal is a constant value
type Literal struct {
	Value Scalar
}

func (Literal) isExpr() {}

// Operator is a binary operator
type Operator int

const (
	OpEq Operator = iota
	OpNotEq
	OpAnd
	OpOr
)

func (op Operator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNotEq:
		return "!="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "?"
	}
}

// BinaryOp applies Op to Left and Right
type BinaryOp struct {
	Op    Operator
	Left  Expr
	Right Expr
}

func (BinaryOp) isExpr() {}

// Call invokes a scalar function by name
type Call struct {
	Name string
	Args []Expr
}

func (Call) isExpr() {}

// Names of the JSON scalar functions recognized by the translator and the engine.
const (
	FnExtractPath   = "json_extract_path"
	FnContains      = "json_contains"
	FnMultiContains = "json_multi_contains"
)

func Col(name string) Column { return Column{Name: name} }

func Lit(s string) Literal { return Literal{Value: String(s)} }

func LitValue(v Scalar) Literal { return Literal{Value: v} }

func Eq(l, r Expr) BinaryOp { return BinaryOp{Op: OpEq, Left: l, Right: r} }

func NotEq(l, r Expr) BinaryOp { return BinaryOp{Op: OpNotEq, Left: l, Right: r} }

func And(l, r Expr) BinaryOp { return BinaryOp{Op: OpAnd, Left: l, Right: r} }

func Or(l, r Expr) BinaryOp { return BinaryOp{Op: OpOr, Left: l, Right: r} }

func Fn(name string, args ...Expr) Call { return Call{Name: name, Args: args} }
