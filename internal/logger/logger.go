// Package logger provides context-aware structured logging for the memory
// backend. A request-scoped *logrus.Entry travels in the context so every
// log line carries the request id and any fields attached upstream.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const loggerKey contextKey = "logger"

// RequestIDField is the entry field carrying the request id.
const RequestIDField = "request_id"

var baseLogger = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Options controls the base logger output.
type Options struct {
	Level      string
	Format     string // "text" or "json"
	FilePath   string // when set, logs rotate via lumberjack
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup reconfigures the process-wide base logger. Called once at startup.
func Setup(opts Options) {
	if lvl, err := logrus.ParseLevel(opts.Level); err == nil {
		baseLogger.SetLevel(lvl)
	}
	if opts.Format == "json" {
		baseLogger.SetFormatter(&logrus.JSONFormatter{})
	}
	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		baseLogger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// GetLogger returns the entry stored in ctx, or a plain entry on the base
// logger when the context carries none.
func GetLogger(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(baseLogger)
}

// WithContext stores the entry in ctx.
func WithContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// WithRequestID returns a context whose logger carries the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithContext(ctx, GetLogger(ctx).WithField(RequestIDField, requestID))
}

// WithField attaches a field to the context logger.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithContext(ctx, GetLogger(ctx).WithField(key, value))
}

// Info logs at info level using the context logger.
func Info(ctx context.Context, args ...interface{}) {
	GetLogger(ctx).Info(args...)
}

// Infof logs a formatted message at info level.
func Infof(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Infof(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Warnf(format, args...)
}

// Error logs at error level using the context logger.
func Error(ctx context.Context, args ...interface{}) {
	GetLogger(ctx).Error(args...)
}

// Errorf logs a formatted message at error level.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Errorf(format, args...)
}

// Debugf logs a formatted message at debug level.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Debugf(format, args...)
}
