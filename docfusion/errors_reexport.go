package docfusion

import dferrors "github.com/docfusion/docfusion/docfusion/errors"

// Re-export error types so callers only need the root package.
type Error = dferrors.Error
type ErrorKind = dferrors.ErrorKind

const (
	ErrConnAcquire     = dferrors.ErrConnAcquire
	ErrQueryExec       = dferrors.ErrQueryExec
	ErrRowDecode       = dferrors.ErrRowDecode
	ErrProjection      = dferrors.ErrProjection
	ErrQueryParse      = dferrors.ErrQueryParse
	ErrFunction        = dferrors.ErrFunction
	ErrNotFound        = dferrors.ErrNotFound
	ErrInvalidDocument = dferrors.ErrInvalidDocument
	ErrConfig          = dferrors.ErrConfig
	ErrIO              = dferrors.ErrIO
)

func Wrap(kind ErrorKind, msg string, cause error) *Error { return dferrors.Wrap(kind, msg, cause) }
func New(kind ErrorKind, msg string) *Error { return dferrors.New(kind, msg) }
func IsKind(err error, kind ErrorKind) bool { return dferrors.IsKind(err, kind) }
func KindOf(err error) ErrorKind { return dferrors.KindOf(err) }
