package logger

import (
	"log/slog"
	"time"
)

// LogCommand logs the outcome of a chat command on any frontend.
func LogCommand(platform, name string, userID int64, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "cmd"),
		slog.String("platform", platform),
		slog.String("name", name),
		slog.Int64("user_id", userID),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Command failed", append(attrs, slog.Any("error", err), slog.String("status", "failed"))...)
		return
	}
	if duration > SlowCommandThreshold {
		slog.Warn("Command executed slowly", append(attrs, slog.String("status", "slow"))...)
		return
	}
	slog.Info("Command executed", append(attrs, slog.String("status", "success"))...)
}

// SlowCommandThreshold marks a command as slow in LogCommand.
const SlowCommandThreshold = 2 * time.Second

func LogSystem(msg string, attrs ...any) {
	slog.Info(msg, append([]any{slog.String("type", "sys")}, attrs...)...)
}

func LogError(msg string, err error, attrs ...any) {
	base := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(base, attrs...)...)
}
