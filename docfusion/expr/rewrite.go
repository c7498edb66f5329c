package expr

import "strings"

// SplitConjunction flattens a tree of ANDs into its conjuncts, left to right.
// A nil expression yields no conjuncts.
func SplitConjunction(e Expr) []Expr {
	if e == nil {
		return nil
	}
	var out []Expr
	splitInto(e, &out)
	return out
}

func splitInto(e Expr, out *[]Expr) {
	if b, ok := e.(BinaryOp); ok && b.Op == OpAnd {
		splitInto(b.Left, out)
		splitInto(b.Right, out)
		return
	}
	*out = append(*out, e)
}

// ResolveDotted rewrites every dotted column reference "<docColumn>.<field>"
// into json_extract_path(<docColumn>, '<field>'). Extraction through the call
// is the single canonical way to address a JSON field, so both spellings
// translate and evaluate identically wherever they appear in the tree.
func ResolveDotted(e Expr, docColumn string) Expr {
	switch x := e.(type) {
	case Column:
		if field, ok := dottedField(x.Name, docColumn); ok {
			return Fn(FnExtractPath, Col(docColumn), Lit(field))
		}
		return x
	case BinaryOp:
		return BinaryOp{Op: x.Op, Left: ResolveDotted(x.Left, docColumn), Right: ResolveDotted(x.Right, docColumn)}
	case Call:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = ResolveDotted(a, docColumn)
		}
		return Call{Name: x.Name, Args: args}
	default:
		return e
	}
}

func dottedField(name, docColumn string) (string, bool) {
	prefix := docColumn + "."
	if len(name) <= len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
		return "", false
	}
	return name[len(prefix):], true
}

// Columns returns the distinct column names referenced by e, in first-seen order.
func Columns(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case Column:
			key := strings.ToLower(x.Name)
			if !seen[key] {
				seen[key] = true
				out = append(out, x.Name)
			}
		case BinaryOp:
			walk(x.Left)
			walk(x.Right)
		case Call:
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}
