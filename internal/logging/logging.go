// Package logging builds the process-wide zap logger and exposes the
// level knob the CLI's --verbose flag controls, following the teacher's
// PersistentPreRunE / PersistentPostRun wiring around a zap production
// config.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger at info level, or debug level when
// verbose is set. Callers are responsible for calling Sync before exit.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// WithRun returns a child logger carrying run_id on every subsequent
// entry, the field every component's log line keys on.
func WithRun(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("run_id", runID))
}
