package log

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so every record carries a component field.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// New creates a logger writing text records to stdout at the given level.
func New(level slog.Level, component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base,
		component: l.component,
	}
}

// WithComponent returns a new logger scoped to a different component.
// It derives from the base logger so records carry a single component
// attribute.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With(FieldComponent, component),
		base:      l.base,
		component: component,
	}
}

// SetDefault installs the logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
