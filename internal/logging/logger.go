package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}
}

// New builds a logger writing to w. format is "text", "json" or "auto";
// auto picks text on a terminal and JSON otherwise.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	parsedLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level: parsedLevel,
	}

	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(contextHandler{inner: handler}), nil
}

// Init installs the stdout logger as the slog default.
func Init(level, format string) (*slog.Logger, error) {
	logger, err := New(os.Stdout, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
