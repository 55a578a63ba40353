package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID  contextKey = "run_id"
	ContextKeyItemID contextKey = "item_id"
)

// WithRunID adds the run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithItemID adds the identity of the item being processed to the context
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, ContextKeyItemID, itemID)
}

// ItemIDFromContext extracts the item ID from context
func ItemIDFromContext(ctx context.Context) string {
	if itemID, ok := ctx.Value(ContextKeyItemID).(string); ok {
		return itemID
	}
	return ""
}

// LoggerFrom returns logger annotated with the run and item IDs found in ctx.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if id := ItemIDFromContext(ctx); id != "" {
		logger = logger.With("item_id", id)
	}
	return logger
}
