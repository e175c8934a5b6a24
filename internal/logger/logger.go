package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rentroll-payment-ledger/internal/config"
)

// NewLogger creates the service logger, writing JSON to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := New(os.Stdout, cfg.Logging.Level)
	logger.Info("logger initialized", "level", ParseLevel(cfg.Logging.Level), "app", cfg.Application.Name)
	return logger
}

// New builds a JSON logger on w. The importer CLI passes stderr so its
// summary output on stdout stays clean.
func New(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config string to a slog level, defaulting to info
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
