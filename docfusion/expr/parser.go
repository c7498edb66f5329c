package expr

import (
	"fmt"
	"strconv"
	"strings"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
)

// Query is a parsed SELECT statement
type Query struct {
	Star  bool
	Items []SelectItem
	Table string
	Where Expr // nil when absent
	Limit *int
}

// SelectItem is one entry of the select list
type SelectItem struct {
	Expr  Expr
	Alias string
}

// Name returns the output column name of the item.
func (it SelectItem) Name() string {
	if it.Alias != "" {
		return it.Alias
	}
	if c, ok := it.Expr.(Column); ok {
		return c.Name
	}
	return Format(it.Expr)
}

// ParseQuery parses SELECT <items> FROM <table> [WHERE <expr>] [LIMIT <n>].
func ParseQuery(input string) (*Query, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	q, err := p.parseSelect()
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrQueryParse, "parse query", err)
	}
	return q, nil
}

// ParseExpr parses a standalone expression such as a WHERE clause body.
func ParseExpr(input string) (Expr, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err == nil && !p.match(TokEOF) {
		err = fmt.Errorf("unexpected %v after expression", p.current().Kind)
	}
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrQueryParse, "parse expression", err)
	}
	return e, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func newParser(input string) (*parser, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrQueryParse, "lex", err)
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) parseSelect() (*Query, error) {
	if err := p.expect(TokSelect); err != nil {
		return nil, err
	}

	q := &Query{}
	if p.match(TokStar) {
		p.advance()
		q.Star = true
	} else {
		for {
			item, err := p.parseSelectItem()
			if err != nil {
				return nil, err
			}
			q.Items = append(q.Items, item)
			if !p.match(TokComma) {
				break
			}
			p.advance()
		}
	}

	if err := p.expect(TokFrom); err != nil {
		return nil, err
	}
	if !p.match(TokIdent) {
		return nil, fmt.Errorf("expected table name, got %v", p.current().Kind)
	}
	q.Table = p.current().Value
	p.advance()

	if p.match(TokWhere) {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if p.match(TokLimit) {
		p.advance()
		if !p.match(TokInt) {
			return nil, fmt.Errorf("LIMIT requires an integer, got %v", p.current().Kind)
		}
		n, err := strconv.Atoi(p.current().Value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid LIMIT %q", p.current().Value)
		}
		p.advance()
		q.Limit = &n
	}

	if !p.match(TokEOF) {
		return nil, fmt.Errorf("unexpected %v at offset %d", p.current().Kind, p.current().Pos)
	}
	return q, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	e, err := p.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	if p.match(TokAs) {
		p.advance()
		if !p.match(TokIdent) {
			return SelectItem{}, fmt.Errorf("expected alias after AS, got %v", p.current().Kind)
		}
		item.Alias = p.current().Value
		p.advance()
	}
	return item, nil
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(TokOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}

	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.match(TokAnd) {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}

	return left, nil
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	switch {
	case p.match(TokEq):
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return Eq(left, right), nil
	case p.match(TokNotEq):
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return NotEq(left, right), nil
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Kind {
	case TokLParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return e, nil

	case TokString:
		p.advance()
		return Lit(tok.Value), nil

	case TokInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", tok.Value)
		}
		return LitValue(Int(n)), nil

	case TokFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok.Value)
		}
		return LitValue(Float(f)), nil

	case TokTrue, TokFalse:
		p.advance()
		return LitValue(Bool(tok.Kind == TokTrue)), nil

	case TokNull:
		p.advance()
		return LitValue(Null()), nil

	case TokIdent:
		p.advance()
		if p.match(TokLParen) {
			return p.parseCall(tok.Value)
		}
		return Col(tok.Value), nil

	case TokEOF:
		return nil, fmt.Errorf("unexpected end of query")

	default:
		return nil, fmt.Errorf("expected expression, got %v at offset %d", tok.Kind, tok.Pos)
	}
}

func (p *parser) parseCall(name string) (Expr, error) {
	p.advance() // consume (
	call := Call{Name: strings.ToLower(name)}
	if p.match(TokRParen) {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.match(TokComma) {
			p.advance()
			continue
		}
		if err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) expect(kind TokenKind) error {
	if !p.match(kind) {
		return fmt.Errorf("expected %v, got %v at offset %d", kind, p.current().Kind, p.current().Pos)
	}
	p.advance()
	return nil
}
