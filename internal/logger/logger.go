package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

func init() {
	// Quiet default until Init is called by the command layer
	Logger = newLogger(os.Stderr, false)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// ParseLevel maps a config string onto a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Init configures the global logger. Pretty output goes through a console writer.
func Init(level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	Logger = newLogger(os.Stderr, pretty)
	log.Logger = Logger
}

// SetOutput redirects the global logger, mostly for tests and the capture command
// which writes image data to stdout.
func SetOutput(w io.Writer) {
	Logger = Logger.Output(w)
	log.Logger = Logger
}

// SetLevel changes the global level without rebuilding the logger
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func newLogger(out io.Writer, pretty bool) zerolog.Logger {
	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// WithSession returns a component logger tagged with a capture session id
func WithSession(component, sessionID string) *zerolog.Logger {
	l := Logger.With().
		Str("component", component).
		Str("session_id", sessionID).
		Logger()
	return &l
}
