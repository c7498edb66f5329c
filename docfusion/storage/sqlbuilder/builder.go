package sqlbuilder

import (
	"strconv"
	"strings"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

// Arg records v and returns the placeholder that refers to it.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	switch b.Style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(len(b.args))
	default:
		return "?"
	}
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }

// Values renders one "(wrap(ph))" tuple per value, comma separated.
func (b *Builder) Values(vals []any, wrap func(string) string) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		ph := b.Arg(v)
		if wrap != nil {
			ph = wrap(ph)
		}
		sb.WriteString("(")
		sb.WriteString(ph)
		sb.WriteString(")")
	}
	return sb.String()
}
