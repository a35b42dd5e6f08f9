package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. JSON output so log shippers can parse
// attributes without extra configuration.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
