package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup initialises the global slog default logger.
// level may be "debug", "info", "warn", or "error" (default "info").
// format may be "json" or "text" (default "json").
func Setup(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	// Plain log calls (Fiber callbacks, the websocket relay) funnel through
	// the default handler at this level.
	slog.SetLogLoggerLevel(lvl)
}
