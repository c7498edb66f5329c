package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docfusion/docfusion/docfusion"
)

// Response is the envelope of every API reply.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func fail(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, Response{
		Error:     &APIError{Kind: kind, Message: msg},
		Timestamp: time.Now().UTC(),
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind docfusion.ErrorKind) int {
	switch kind {
	case docfusion.ErrInvalidDocument, docfusion.ErrQueryParse, docfusion.ErrProjection, docfusion.ErrFunction:
		return http.StatusBadRequest
	case docfusion.ErrNotFound:
		return http.StatusNotFound
	case docfusion.ErrConnAcquire:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func failErr(c *gin.Context, err error) {
	kind := docfusion.KindOf(err)
	status := statusFor(kind)
	apiErr := &APIError{Kind: string(kind), Message: err.Error()}
	if kind == "" {
		apiErr.Kind = "internal"
	}
	var e *docfusion.Error
	if errors.As(err, &e) {
		apiErr.Field = e.Field
	}
	if status >= http.StatusInternalServerError {
		loggerFrom(c).Error("request failed", "error", err)
		// store details stay in the log
		if kind != docfusion.ErrConnAcquire {
			apiErr.Message = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, Response{Error: apiErr, Timestamp: time.Now().UTC()})
}
