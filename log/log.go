// Wraps zerolog logger, ensuring the timestamp goes in the beginning.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var logger zerolog.Logger

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.DurationFieldInteger = true
	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger = zerolog.New(os.Stderr).With().Stack().Logger()
}

// Setup reconfigures the process logger. Console output is meant for local runs.
func Setup(level string, console bool) {
	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	logger = zerolog.New(out).With().Stack().Logger()

	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsedLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsedLevel)
}

type Logger interface {
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

type baseLogger struct{}

// Base is the process logger as a value, for code that takes a Logger
var Base Logger = baseLogger{}

func (baseLogger) Info() *zerolog.Event {
	return Info()
}

func (baseLogger) Warn() *zerolog.Event {
	return Warn()
}

func (baseLogger) Error() *zerolog.Event {
	return Error()
}

func Info() *zerolog.Event {
	return logger.Info().Timestamp()
}

func Warn() *zerolog.Event {
	return logger.Warn().Timestamp()
}

func Error() *zerolog.Event {
	return logger.Error().Timestamp()
}
