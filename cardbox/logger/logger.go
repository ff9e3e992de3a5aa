package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
)

// Noisy library messages dropped before formatting. Matching is a
// case-insensitive substring test.
var skippedMessages = []string{
	"gateway event",
	"binary message received",
	"received gateway message",
	"opening gateway connection",
	"sending gateway command",
	"sending heartbeat",
	"rate limit response headers",
	"locking rest bucket",
	"unlocking rest bucket",
	"new request",
	"new response",
	"long polling",
}

var internalAttrs = []string{"type", "name", "user_name", "status", "platform"}

// Options configure a Handler.
type Options struct {
	Level   slog.Leveler
	NoColor bool
	Prefix  string
	// Timestamp defaults to time.Now and exists for tests.
	Timestamp func() time.Time
}

// Handler prints one colourised line per record:
//
//	[cardbox] [15:04:05] [INFO] [CMD] Command executed [draw by alice] [Status: success] user_id=42
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	out    io.Writer
	attrs  []slog.Attr
	groups []string
}

func NewHandler(out io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Prefix == "" {
		opts.Prefix = "cardbox"
	}
	if opts.Timestamp == nil {
		opts.Timestamp = time.Now
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		opts.NoColor = true
	}
	return &Handler{opts: opts, mu: &sync.Mutex{}, out: out}
}

// Setup installs a Handler writing to stdout as the default slog logger.
func Setup(level slog.Level) *slog.Logger {
	l := slog.New(NewHandler(os.Stdout, Options{Level: level}))
	slog.SetDefault(l)
	return l
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkip(r.Message) {
		return nil
	}

	fields := collect(h.attrs, r)

	message := r.Message
	if r.Level >= slog.LevelError {
		location := fields["error_location"]
		if location == "" {
			location = sourceLocation(r.PC)
		}
		if location != "" {
			message = fmt.Sprintf("%s (%s)", message, location)
		}
		if details := fields["error"]; details != "" {
			message = fmt.Sprintf("%s: %s", message, details)
		}
	}
	if cmd, user := fields["name"], fields["user_name"]; cmd != "" && user != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, cmd, user)
	}
	if status := fields["status"]; status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, status)
	}

	var extra strings.Builder
	prefix := strings.Join(h.groups, ".")
	for _, attr := range h.attrs {
		if slices.Contains(internalAttrs, attr.Key) {
			continue
		}
		key := attr.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&extra, " %s=%v", key, attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		if slices.Contains(internalAttrs, a.Key) || a.Key == "error" || a.Key == "error_location" {
			return true
		}
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&extra, " %s=%v", key, a.Value)
		return true
	})

	levelColor, levelText := levelStyle(r.Level)
	white, reset := colorWhite, colorReset
	if h.opts.NoColor {
		levelColor, white, reset = "", "", ""
	}

	line := fmt.Sprintf("%s[%s] [%s] [%s%s%s] [%s] %s%s%s\n",
		white,
		h.opts.Prefix,
		h.opts.Timestamp().Format("15:04:05"),
		levelColor, levelText, white,
		logType(fields["type"]),
		message,
		extra.String(),
		reset,
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return colorRed, "ERROR"
	case level >= slog.LevelWarn:
		return colorYellow, "WARN"
	case level >= slog.LevelInfo:
		return colorGreen, "INFO"
	default:
		return colorPurple, "DEBUG"
	}
}

func shouldSkip(msg string) bool {
	msg = strings.ToLower(msg)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}

func logType(v string) LogType {
	switch v {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

// collect flattens handler and record attributes; record values win.
func collect(base []slog.Attr, r slog.Record) map[string]string {
	fields := make(map[string]string, len(base)+r.NumAttrs())
	for _, a := range base {
		fields[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.String()
		return true
	})
	return fields
}

func sourceLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
