// Package observability builds the zap logger shared by the storyweave CLIs
// and threaded into every engine component.
//
// Engine packages accept a *zap.Logger that may be nil; they pass it through
// OrNop once at construction so library callers that do not care about
// diagnostics never have to build one. The CLIs build a real logger with
// NewLogger and hand it down.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/storyweave/internal/config"
)

// NewLogger builds the logger for a CLI run from the logging section of the
// config. Everything is written to stderr: storylet-graph prints its graph
// document on stdout and the REPLs print their transcript there.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	zapCfg, err := baseConfig(cfg.Format)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.With(zap.String("app", "storyweave")), nil
}

// baseConfig maps a format name to zap's production (json) or development
// (console) preset.
func baseConfig(format string) (zap.Config, error) {
	switch format {
	case "json":
		return zap.NewProductionConfig(), nil
	case "console":
		return zap.NewDevelopmentConfig(), nil
	}
	return zap.Config{}, fmt.Errorf("unknown log format %q", format)
}

// OrNop lets components treat a nil logger as "discard everything".
//
// Postcondition: the result is never nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
