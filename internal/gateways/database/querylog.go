package database

import (
	"log/slog"
	"time"

	"github.com/cardbox-bot/cardbox/internal/metrics"
)

type queryLog struct {
	operation string
	query     string
	args      []any
	start     time.Time
}

func newQueryLog(operation, query string, args ...any) *queryLog {
	return &queryLog{
		operation: operation,
		query:     query,
		args:      args,
		start:     time.Now(),
	}
}

// Done logs the statement outcome and records its duration.
func (l *queryLog) Done(err error, rowsAffected int64) {
	took := time.Since(l.start)
	metrics.RecordStoreOp(l.operation, took, err)

	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", l.operation),
		slog.Duration("took", took),
	}
	if l.query != "" {
		attrs = append(attrs, slog.String("query", l.query), slog.Any("args", l.args))
	}

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", rowsAffected))...)
}
