package expr

import "strings"

// Format renders e back to the query text it would parse from.
func Format(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case Column:
		if plainIdent(x.Name) {
			b.WriteString(x.Name)
		} else {
			b.WriteByte('"')
			b.WriteString(x.Name)
			b.WriteByte('"')
		}
	case Literal:
		b.WriteString(x.Value.SQL())
	case BinaryOp:
		b.WriteByte('(')
		writeExpr(b, x.Left)
		b.WriteByte(' ')
		b.WriteString(x.Op.String())
		b.WriteByte(' ')
		writeExpr(b, x.Right)
		b.WriteByte(')')
	case Call:
		b.WriteString(x.Name)
		b.WriteByte('(')
		for i, a := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
		b.WriteByte(')')
	default:
		b.WriteString("<?>")
	}
}

// plainIdent reports whether name lexes back as the same bare identifier.
func plainIdent(name string) bool {
	if name == "" {
		return false
	}
	if _, kw := keywords[strings.ToUpper(name)]; kw {
		return false
	}
	for i, ch := range name {
		if i == 0 && !isIdentStart(ch) {
			return false
		}
		if !isIdentChar(ch) {
			return false
		}
	}
	return true
}
