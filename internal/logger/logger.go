package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

var levelVar = new(slog.LevelVar)

var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	levelVar.Set(ParseLevel(lvl))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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

// Setup replaces L with a logger writing text to stderr and, when file is
// non-empty, JSON to that file. The returned func closes the file.
func Setup(level, file string) func() error {
	SetLevel(level)

	if file == "" {
		L = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
		slog.SetDefault(L)
		return func() error { return nil }
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		L = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
		slog.SetDefault(L)
		L.Error("failed to open log file, using stderr only", "error", err, "file", file)
		return func() error { return nil }
	}

	L = newFanout(os.Stderr, f)
	slog.SetDefault(L)
	return f.Close
}

// SetupWithWriters points L at the given writers. Used by tests.
func SetupWithWriters(stderr, file io.Writer, level string) {
	SetLevel(level)
	L = newFanout(stderr, file)
}

func newFanout(stderr, file io.Writer) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: levelVar}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: levelVar}),
	))
}
