// Package logger provides structured logging for Academy Hub.
// It builds a zap logger tuned per environment and carries the domain-specific
// field helpers used across the service and the notification worker.
package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Environment selects the encoder: "production" logs JSON, anything else
	// uses the colored development console encoder.
	Environment string

	// Level is the minimum enabled level (debug, info, warn, error).
	Level string

	// Format overrides the encoder choice ("json" or "console"). Optional.
	Format string

	// OutputPaths defaults to stdout.
	OutputPaths []string
}

// New creates a zap logger from options.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config

	if opts.Environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	switch strings.ToLower(opts.Format) {
	case "json":
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	case "console", "text":
		cfg.Encoding = "console"
	}

	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cfg.OutputPaths = []string{"stdout"}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	return cfg.Build()
}

// Must is like New but panics on error. Meant for main packages.
func Must(opts Options) *zap.Logger {
	l, err := New(opts)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return l
}

// ParseLevel parses a string into a zap level. Unknown values map to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// RequestIDKey is the field key for request tracing.
const RequestIDKey = "request_id"

// RequestID tags a log line with the request id.
func RequestID(id string) zap.Field { return zap.String(RequestIDKey, id) }

// Domain-related logging helpers.
func StudentID(id int64) zap.Field      { return zap.Int64("student_id", id) }
func PlanID(id int64) zap.Field         { return zap.Int64("plan_id", id) }
func EnrollmentID(id int64) zap.Field   { return zap.Int64("enrollment_id", id) }
func HelpOrderID(id int64) zap.Field    { return zap.Int64("help_order_id", id) }
func TaskKey(key string) zap.Field      { return zap.String("task_key", key) }
func TaskID(id string) zap.Field        { return zap.String("task_id", id) }
func Attempt(n int) zap.Field           { return zap.Int("attempt", n) }
func Component(name string) zap.Field   { return zap.String("component", name) }
func Operation(name string) zap.Field   { return zap.String("operation", name) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
