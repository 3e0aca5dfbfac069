package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the rotated log file inside Logging.Dir
const LogFileName = "ticker.log"

// NewLogger creates the process logger. JSON records go to stdout and to a
// rotated file, and every record carries the tracked coin/currency pair.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, console io.Writer) *slog.Logger {
	writer := console
	if file := rotatingFile(cfg.Logging.Dir); file != nil {
		writer = io.MultiWriter(console, file)
	}

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Logging.Level),
		ReplaceAttr: readableDurations,
	}

	return slog.New(slog.NewJSONHandler(writer, opts)).With(
		slog.String("coin", cfg.API.Coin),
		slog.String("currency", cfg.API.Currency),
	)
}

// rotatingFile returns nil when the log directory cannot be created; the
// ticker then logs to the console only.
func rotatingFile(dir string) io.Writer {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    10, // Megabytes
		MaxBackups: 3,
		MaxAge:     28, // Days
		Compress:   true,
	}
}

// readableDurations logs intervals and cycle latency as "1.5s" instead of nanoseconds
func readableDurations(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.String(a.Key, a.Value.Duration().String())
	}
	return a
}

// ParseLevel maps a config level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
