// Package logging builds the zap loggers used by the barback command.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation configures a rotated log file.
type Rotation struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Option configures New.
type Option func(*options)

type options struct {
	rotation *Rotation
	fields   []zap.Field
}

// WithFile writes logs to a rotated file instead of stderr.
func WithFile(r Rotation) Option {
	return func(o *options) {
		if r.Path != "" {
			o.rotation = &r
		}
	}
}

// WithFields adds fields to every entry.
func WithFields(fields ...zap.Field) Option {
	return func(o *options) {
		o.fields = append(o.fields, fields...)
	}
}

// ParseLevel parses debug, info, warn or error, ignoring case.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// EncoderConfig is the production JSON encoding with an ISO8601 timestamp key.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// New creates a JSON logger at level.
func New(level string, opts ...Option) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if r := o.rotation; r != nil {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   r.Path,
			MaxSize:    r.MaxSizeMB,
			MaxBackups: r.MaxBackups,
			MaxAge:     r.MaxAgeDays,
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(EncoderConfig()),
		sink,
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.AddCaller(), zap.Fields(o.fields...)), nil
}
