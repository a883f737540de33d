package obs

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger returns a colored tint logger for dev/local and JSON elsewhere.
func NewLogger(env string, debug bool) *slog.Logger {
	return newLogger(os.Stdout, env, debug)
}

func newLogger(w io.Writer, env string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if env == "dev" || env == "local" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  debug,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})).With(slog.String("service", "venuebook"), slog.String("env", env))
}
