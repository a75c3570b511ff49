package crawler

import (
	"fmt"
	"galmirror/log"
	"sync"

	"github.com/rs/zerolog"
)

type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type ZeroLogger struct {
	Logger log.Logger
}

func NewZeroLogger(logger log.Logger) *ZeroLogger {
	return &ZeroLogger{Logger: logger}
}

func (l *ZeroLogger) Info(format string, args ...any) {
	l.Logger.Info().Msgf(format, args...)
}

func (l *ZeroLogger) Warn(format string, args ...any) {
	l.Logger.Warn().Msgf(format, args...)
}

func (l *ZeroLogger) Error(format string, args ...any) {
	l.Logger.Error().Msgf(format, args...)
}

// DummyLogger records entries so that tests stay quiet and can replay them on failure
type DummyLogger struct {
	mutex   sync.Mutex
	entries []logEntry
}

type logLevel int

const (
	logLevelInfo logLevel = iota
	logLevelWarn
	logLevelError
)

type logEntry struct {
	Level  logLevel
	Format string
	Args   []any
}

func NewDummyLogger() *DummyLogger {
	return &DummyLogger{
		entries: nil,
	}
}

func (d *DummyLogger) Info(format string, args ...any) {
	d.log(logLevelInfo, format, args)
}

func (d *DummyLogger) Warn(format string, args ...any) {
	d.log(logLevelWarn, format, args)
}

func (d *DummyLogger) Error(format string, args ...any) {
	d.log(logLevelError, format, args)
}

func (d *DummyLogger) log(level logLevel, format string, args []any) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.entries = append(d.entries, logEntry{
		Level:  level,
		Format: format,
		Args:   args,
	})
}

// WarnCount returns how many entries were logged at warn level or above
func (d *DummyLogger) WarnCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	count := 0
	for _, entry := range d.entries {
		if entry.Level >= logLevelWarn {
			count++
		}
	}
	return count
}

func (d *DummyLogger) Replay(logger log.Logger) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for _, entry := range d.entries {
		var event *zerolog.Event
		switch entry.Level {
		case logLevelInfo:
			event = logger.Info()
		case logLevelWarn:
			event = logger.Warn()
		case logLevelError:
			event = logger.Error()
		default:
			panic(fmt.Errorf("Unknown log level: %d", entry.Level))
		}
		event = event.Bool("replay", true)
		event.Msgf(entry.Format, entry.Args...)
	}
}
