package obs

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

func init() {
	// Match the field naming newacorn-fasthttp's log.go configures at
	// init, so log lines stay short under load.
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"
}

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
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

// Logger is a minimal logging interface for observability. originhttp
// calls Logf for every trace-worthy event when ServerConfig.Trace is set.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// StdLogger adapts a github.com/rs/zerolog.Logger to the Logger
// interface, the way newacorn-fasthttp wires zerolog through its own
// package-level logger. Min filters out events below the configured
// level.
type StdLogger struct {
	L    zerolog.Logger
	Min  Level
	Pref string
}

// NewStdLogger builds a StdLogger writing structured JSON lines to w,
// suitable as the default ServerConfig.Logger when Trace is enabled.
func NewStdLogger(w io.Writer, min Level, prefix string) StdLogger {
	return StdLogger{L: zerolog.New(w).With().Timestamp().Logger(), Min: min, Pref: prefix}
}

func (s StdLogger) Logf(level Level, format string, args ...interface{}) {
	if level < s.Min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if s.Pref != "" {
		msg = s.Pref + msg
	}
	s.L.WithLevel(level.zerolog()).Msg(msg)
}
