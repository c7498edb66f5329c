package expr

import (
	"fmt"
	"strings"
	"unicode"
)

// Token represents a lexical token
type Token struct {
	Kind  TokenKind
	Value string
	Pos   int
}

// TokenKind is the type of token
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokInt
	TokFloat
	TokComma
	TokStar
	TokLParen
	TokRParen
	TokEq
	TokNotEq
	TokSelect
	TokFrom
	TokWhere
	TokLimit
	TokAs
	TokAnd
	TokOr
	TokTrue
	TokFalse
	TokNull
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokInt:
		return "Int"
	case TokFloat:
		return "Float"
	case TokComma:
		return "Comma"
	case TokStar:
		return "Star"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokEq:
		return "Eq"
	case TokNotEq:
		return "NotEq"
	case TokSelect:
		return "SELECT"
	case TokFrom:
		return "FROM"
	case TokWhere:
		return "WHERE"
	case TokLimit:
		return "LIMIT"
	case TokAs:
		return "AS"
	case TokAnd:
		return "AND"
	case TokOr:
		return "OR"
	case TokTrue:
		return "TRUE"
	case TokFalse:
		return "FALSE"
	case TokNull:
		return "NULL"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

var keywords = map[string]TokenKind{
	"SELECT": TokSelect,
	"FROM":   TokFrom,
	"WHERE":  TokWhere,
	"LIMIT":  TokLimit,
	"AS":     TokAs,
	"AND":    TokAnd,
	"OR":     TokOr,
	"TRUE":   TokTrue,
	"FALSE":  TokFalse,
	"NULL":   TokNull,
}

// Lexer tokenizes query text
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Lex tokenizes the entire input
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case ',':
		l.pos++
		return Token{Kind: TokComma, Pos: start}, nil
	case '*':
		l.pos++
		return Token{Kind: TokStar, Pos: start}, nil
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Pos: start}, nil
	case '=':
		l.pos++
		return Token{Kind: TokEq, Pos: start}, nil
	case ';':
		// trailing statement terminator
		l.pos++
		return l.Next()
	}

	if ch == '!' && l.peek(1) == '=' {
		l.pos += 2
		return Token{Kind: TokNotEq, Pos: start}, nil
	}
	if ch == '<' && l.peek(1) == '>' {
		l.pos += 2
		return Token{Kind: TokNotEq, Pos: start}, nil
	}

	if ch == '\'' {
		return l.scanString()
	}
	if ch == '"' {
		return l.scanQuotedIdent()
	}

	if unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peek(1))) {
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		return l.scanIdent()
	}

	return Token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

// scanString reads a single-quoted SQL string; '' is an escaped quote.
func (l *Lexer) scanString() (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\'' {
			if l.peek(1) == '\'' {
				sb.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) scanQuotedIdent() (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			l.pos++
			if sb.Len() == 0 {
				return Token{}, fmt.Errorf("empty identifier at offset %d", start)
			}
			return Token{Kind: TokIdent, Value: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}
	return Token{}, fmt.Errorf("unterminated identifier at offset %d", start)
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	kind := TokInt

	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' && unicode.IsDigit(l.peek(1)) {
		kind = TokFloat
		l.pos++
		for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
			l.pos++
		}
	}

	return Token{Kind: kind, Value: string(l.input[start:l.pos]), Pos: start}, nil
}

func (l *Lexer) scanIdent() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}

	value := string(l.input[start:l.pos])
	if kind, ok := keywords[strings.ToUpper(value)]; ok {
		return Token{Kind: kind, Value: value, Pos: start}, nil
	}
	return Token{Kind: TokIdent, Value: value, Pos: start}, nil
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

// Dots are part of identifiers so that content.status lexes as one column.
func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.'
}
