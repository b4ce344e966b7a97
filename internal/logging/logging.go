package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Logger is a structured logger writing through log/slog.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger at the given level ("debug", "info", "warn",
// "error") and format ("text", "json" or "pretty"). If w is nil, os.Stderr is
// used.
func NewLogger(level, format string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: "2006-01-02 15:04:05.000Z07:00",
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return &Logger{Logger: slog.New(handler)}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Component returns a child logger tagged with a "component" attribute.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With(slog.String("component", name))}
}

// SetDefault installs l as the process-wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
