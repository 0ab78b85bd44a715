// Package logging owns the process-wide structured logger: JSON to stdout
// plus a size-rotated file.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

const ginKey = "logger"

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the global logger exactly once. Call from main before
// constructing components.
func Init(service, filePath string) *slog.Logger {
	once.Do(func() {
		_ = os.MkdirAll(filepath.Dir(filePath), 0o755)

		rot := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		h := slog.NewJSONHandler(io.MultiWriter(os.Stdout, rot), &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
		base = slog.New(h).With("service", service)
	})
	return base
}

// New returns a child logger for one component, sharing the global handler.
func New(component string) *slog.Logger {
	if base == nil {
		return slog.Default().With("component", component)
	}
	return base.With("component", component)
}

// WithCtx attaches a logger to a plain context.
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx returns the logger carried by ctx, or the global one.
func FromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return New("app")
}

// IntoGin stores a request-scoped logger in the gin context.
func IntoGin(c *gin.Context, l *slog.Logger) { c.Set(ginKey, l) }

// FromGin returns the request-scoped logger, or the global one.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return New("http")
}
