package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fanbridge/fanbridge/internal/infrastructure/config"
)

// Logger embeds slog.Logger, so call sites use the plain slog surface
// (Info, Warn, Error, Debug with alternating key-value args). The wrapper
// exists to stamp every record with service and version attributes and to
// build the handler from the logging config section.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the config file's logging section. Format is
// "json" or "text" (json default), output is "stdout" or "stderr"
// (stdout default), and level falls back to info when unrecognised.
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "fanbridge"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger carrying extra default attributes.
// The usual pattern is one child per component:
//
//	cloudLog := log.With("component", "cloud")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before the config file is loaded.
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
