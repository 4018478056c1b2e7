package app

import (
	"io"
	"log/slog"

	"github.com/vk/modforge/internal/summary"
)

// Log formats accepted by Config.LogFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// newLogger builds the run's logger. Records go to outW at the configured
// level; independently of that level, every record at info or above is
// appended to s so the summary reads the same whatever the console shows.
// It does not set the global logger.
func newLogger(levelStr, formatStr string, outW io.Writer, s *summary.Summary) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var console slog.Handler
	switch formatStr {
	case FormatJSON:
		console = slog.NewJSONHandler(outW, opts)
	default:
		console = slog.NewTextHandler(outW, opts)
	}

	return slog.New(summary.NewHandler(console, s, slog.LevelInfo))
}
