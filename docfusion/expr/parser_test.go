package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
)

func TestParseQuerySelectStar(t *testing.T) {
	q, err := ParseQuery("SELECT * FROM documents")
	require.NoError(t, err)
	assert.True(t, q.Star)
	assert.Equal(t, "documents", q.Table)
	assert.Nil(t, q.Where)
	assert.Nil(t, q.Limit)
}

func TestParseQueryItemsWhereLimit(t *testing.T) {
	q, err := ParseQuery(`select id, json_extract_path(content, 'status') as status from documents
		where json_extract_path(content, 'status') = 'active' and id = 3 limit 10;`)
	require.NoError(t, err)

	require.Len(t, q.Items, 2)
	assert.Equal(t, Col("id"), q.Items[0].Expr)
	assert.Equal(t, "status", q.Items[1].Name())
	assert.Equal(t, Fn(FnExtractPath, Col("content"), Lit("status")), q.Items[1].Expr)

	want := And(
		Eq(Fn(FnExtractPath, Col("content"), Lit("status")), Lit("active")),
		Eq(Col("id"), LitValue(Int(3))),
	)
	assert.Equal(t, want, q.Where)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 10, *q.Limit)
}

func TestParseExprPrecedence(t *testing.T) {
	e, err := ParseExpr("a = 1 OR b = 'x' AND c != TRUE")
	require.NoError(t, err)

	want := Or(
		Eq(Col("a"), LitValue(Int(1))),
		And(Eq(Col("b"), Lit("x")), NotEq(Col("c"), LitValue(Bool(true)))),
	)
	assert.Equal(t, want, e)
}

func TestParseExprLiterals(t *testing.T) {
	e, err := ParseExpr(`json_contains(content, '{"tags":["a"]}') = NULL`)
	require.NoError(t, err)
	want := Eq(Fn(FnContains, Col("content"), Lit(`{"tags":["a"]}`)), LitValue(Null()))
	assert.Equal(t, want, e)

	e, err = ParseExpr("x = -2.5")
	require.NoError(t, err)
	assert.Equal(t, Eq(Col("x"), LitValue(Float(-2.5))), e)

	e, err = ParseExpr("name = 'O''Brien'")
	require.NoError(t, err)
	assert.Equal(t, Eq(Col("name"), Lit("O'Brien")), e)
}

func TestParseExprDottedColumn(t *testing.T) {
	e, err := ParseExpr("content.status = 'active'")
	require.NoError(t, err)
	assert.Equal(t, Eq(Col("content.status"), Lit("active")), e)
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"SELECT FROM documents",
		"SELECT * documents",
		"SELECT * FROM documents LIMIT x",
		"SELECT * FROM documents WHERE",
		"SELECT * FROM documents WHERE a = 'unterminated",
		"SELECT * FROM documents extra",
		"SELECT f(a, FROM documents",
		`SELECT * FROM documents WHERE "" = 1`,
	}
	for _, in := range cases {
		_, err := ParseQuery(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, dferrors.IsKind(err, dferrors.ErrQueryParse), "input %q: %v", in, err)
	}
}

func TestLexKeywordsCaseInsensitive(t *testing.T) {
	toks, err := Lex("SeLeCt * fRoM t wHeRe a <> b")
	require.NoError(t, err)
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{TokSelect, TokStar, TokFrom, TokIdent, TokWhere, TokIdent, TokNotEq, TokIdent, TokEOF}, kinds)
}

func TestSelectItemName(t *testing.T) {
	assert.Equal(t, "id", SelectItem{Expr: Col("id")}.Name())
	assert.Equal(t, "s", SelectItem{Expr: Col("id"), Alias: "s"}.Name())
	assert.Equal(t, "json_extract_path(content, 'k')", SelectItem{Expr: Fn(FnExtractPath, Col("content"), Lit("k"))}.Name())
}
