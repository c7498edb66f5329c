package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorKind string

const (
	ErrConnAcquire     ErrorKind = "conn_acquire"
	ErrQueryExec       ErrorKind = "query_exec"
	ErrRowDecode       ErrorKind = "row_decode"
	ErrProjection      ErrorKind = "projection"
	ErrQueryParse      ErrorKind = "query_parse"
	ErrFunction        ErrorKind = "function"
	ErrNotFound        ErrorKind = "not_found"
	ErrInvalidDocument ErrorKind = "invalid_document"
	ErrConfig          ErrorKind = "config"
	ErrIO              ErrorKind = "io"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func QueryParseError(msg string) *Error {
	return &Error{Kind: ErrQueryParse, Message: msg}
}

func FunctionError(name, msg string) *Error {
	return &Error{Kind: ErrFunction, Message: msg, Field: name}
}

func NotFoundError(id int32) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("document not found: id=%d", id)}
}

func InvalidDocumentError(msg string) *Error {
	return &Error{Kind: ErrInvalidDocument, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
