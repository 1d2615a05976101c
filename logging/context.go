package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	// RunIDKey is the context key for the batch run ID.
	RunIDKey ctxKey = "run_id"
	// ProductKey is the context key for the product being processed.
	ProductKey ctxKey = "product"
	loggerKey  ctxKey = "logger"
)

// WithRunID returns a context carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithProduct returns a context carrying the product name.
func WithProduct(ctx context.Context, product string) context.Context {
	return context.WithValue(ctx, ProductKey, product)
}

// GetRunID extracts the run ID from context.
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetProduct extracts the product name from context.
func GetProduct(ctx context.Context) string {
	return stringValue(ctx, ProductKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithContext creates a child logger with run_id and product from ctx, if present.
func WithContext(logger Logger, ctx context.Context) Logger {
	if ctx == nil {
		return logger
	}

	var fields []zap.Field
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if product := GetProduct(ctx); product != "" {
		fields = append(fields, zap.String("product", product))
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// ToContext stores a logger in the context.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(Logger); ok {
			return l
		}
	}
	return Global()
}
