package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Constants for logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments, they choose log format
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Rotation defaults for the file sink
const (
	defaultFileMaxSizeMB  = 10
	defaultFileMaxBackups = 3
	defaultFileMaxAgeDays = 7
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

type options struct {
	file string
}

type Option func(*options)

// Duplicate log records to the rotating file
// Empty path disables the file sink
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// New creates logger for environment: text for development, JSON for production
func New(environment string, level string, opts ...Option) (Logger, error) {
	switch environment {
	case EnvDevelopment:
		return NewTextLogger(level, opts...)
	case EnvProduction:
		return NewJSONLogger(level, opts...)
	default:
		return nil, fmt.Errorf("unknown environment %q, expected one of: %s, %s", environment, EnvDevelopment, EnvProduction)
	}
}

// NewTextLogger creates a new text logger with the specified level
func NewTextLogger(level string, opts ...Option) (Logger, error) {
	return newLogger(level, opts, func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
		return slog.NewTextHandler(w, o)
	})
}

// NewJSONLogger creates a new JSON logger with the specified level
func NewJSONLogger(level string, opts ...Option) (Logger, error) {
	return newLogger(level, opts, func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
		return slog.NewJSONHandler(w, o)
	})
}

// NewNoOpLogger creates a logger that discards all log messages
func NewNoOpLogger() Logger {
	logger := slog.New(slog.DiscardHandler)
	return &slogLogger{logger: logger}
}

func newLogger(level string, opts []Option, handler func(io.Writer, *slog.HandlerOptions) slog.Handler) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var w io.Writer = os.Stderr
	if o.file != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    defaultFileMaxSizeMB,
			MaxBackups: defaultFileMaxBackups,
			MaxAge:     defaultFileMaxAgeDays,
			Compress:   true,
		})
	}

	h := handler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   true,
		ReplaceAttr: replace,
	})

	return &slogLogger{logger: slog.New(h)}, nil
}
