package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type ctxKey struct{}

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, text
	AddSource bool
	Output    io.Writer // defaults to stderr
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init builds the process logger and installs it as the slog default.
func Init(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// Get returns the process logger, initializing a JSON info logger on first use.
func Get() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return Init(Config{Level: "info", Format: "json"})
	}
	return l
}

// ContextWithRequestID stores id for WithRequestID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID adds request_id to l when ctx carries one.
func WithRequestID(ctx context.Context, l *slog.Logger) *slog.Logger {
	id := RequestID(ctx)
	if id == "" {
		return l
	}
	return l.With("request_id", id)
}
