// Package logging constructs the process-wide zap logger used by
// internal/errs.
package logging

import "go.uber.org/zap"

// New builds a sugared logger: development encoding (human-readable,
// stack traces on warn+) when verbose is set, production JSON encoding
// otherwise. Callers should defer Sync() on the returned logger's
// underlying *zap.Logger if they need flushed output on exit; talpctl's
// short-lived commands skip this.
func New(verbose bool) *zap.SugaredLogger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
