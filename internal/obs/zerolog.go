package obs

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger adapts a zerolog.Logger to Logger.
type ZeroLogger struct {
	Z zerolog.Logger
}

// NewZeroLogger builds a zerolog-backed Logger writing to w. format is
// "console" for human-readable output or "json"; minLevel is the lowest level kept.
func NewZeroLogger(w io.Writer, format string, minLevel Level) ZeroLogger {
	if w == nil {
		w = os.Stderr
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).Level(minLevel.zerolog()).With().Timestamp().Logger()
	return ZeroLogger{Z: z}
}

func (z ZeroLogger) Logf(level Level, format string, args ...interface{}) {
	z.Z.WithLevel(level.zerolog()).Msg(fmt.Sprintf(format, args...))
}

// With returns a logger that tags every line with key=value.
func (z ZeroLogger) With(key, value string) Logger {
	return ZeroLogger{Z: z.Z.With().Str(key, value).Logger()}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.NoLevel
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, fmt.Errorf("obs: unknown log level %q", s)
}
