package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with typed structured fields.
type Logger struct {
	zl zerolog.Logger
}

// Config controls log level, format and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout, stderr, or file path
}

// New creates a logger from config.
func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards everything; handy in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f(event)
	}
	event.Msg(msg)
}

// Field adds one structured key/value to a log event.
type Field func(*zerolog.Event)

func String(key, value string) Field {
	return func(e *zerolog.Event) { e.Str(key, value) }
}

func Int(key string, value int) Field {
	return func(e *zerolog.Event) { e.Int(key, value) }
}

func Int64(key string, value int64) Field {
	return func(e *zerolog.Event) { e.Int64(key, value) }
}

func Float(key string, value float64) Field {
	return func(e *zerolog.Event) { e.Float64(key, value) }
}

func Bool(key string, value bool) Field {
	return func(e *zerolog.Event) { e.Bool(key, value) }
}

func Duration(key string, value time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(key, value) }
}

func Error(err error) Field {
	return func(e *zerolog.Event) { e.Err(err) }
}

func Any(key string, value interface{}) Field {
	return func(e *zerolog.Event) { e.Interface(key, value) }
}
