package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	level       string
	outputPaths []string
}

// Option customizes NewLogger.
type Option func(*options)

// WithLevel overrides the log level: debug, info, warn, error. Empty keeps the env default.
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// WithOutputPaths redirects log output (e.g. to a file while the TUI owns the terminal).
// Empty keeps zap's default (stderr).
func WithOutputPaths(paths ...string) Option {
	return func(o *options) { o.outputPaths = paths }
}

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev use colored console output.
func NewLogger(env string, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker", "test":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if o.level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(o.level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	if len(o.outputPaths) > 0 {
		cfg.OutputPaths = o.outputPaths
		cfg.ErrorOutputPaths = o.outputPaths
		// colors are noise in a file
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
