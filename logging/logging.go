// Package logging builds the zap loggers used across the module.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavor and minimum level.
type Config struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Development switches to the human-friendly console encoder.
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig logs info and above as JSON.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// EncoderConfig returns the encoder settings shared by every sink: a
// "timestamp" key with ISO8601 times.
func EncoderConfig(development bool) zapcore.EncoderConfig {
	var enc zapcore.EncoderConfig
	if development {
		enc = zap.NewDevelopmentEncoderConfig()
	} else {
		enc = zap.NewProductionEncoderConfig()
	}
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return enc
}

// ParseLevel converts a level name, defaulting to info when empty.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}

// New builds a logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig = EncoderConfig(cfg.Development)
	return zcfg.Build()
}

// NewProduction is New with JSON output at info level.
func NewProduction() (*zap.Logger, error) {
	return New(DefaultConfig())
}

// NewDevelopment is New with console output at debug level.
func NewDevelopment() (*zap.Logger, error) {
	return New(Config{Level: "debug", Development: true})
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
