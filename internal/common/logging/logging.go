package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var level slog.LevelVar

// New builds a slog logger writing to stdout and installs it as the default.
// format is "json" or "text"; unknown levels fall back to info.
func New(lvl, format string) *slog.Logger {
	return Install(os.Stdout, lvl, format)
}

func Install(w io.Writer, lvl, format string) *slog.Logger {
	level.Set(ParseLevel(lvl))
	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of every logger built by Install.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
