// Package logging constructs the process-wide zap logger. zap already
// enters this module's dependency closure indirectly through
// jito-labs/jito-go-rpc's use of streamingfast/logging; this package just
// promotes it to a direct, explicitly-configured dependency instead of
// leaving every new package to reach for fmt.Println the way pkg/sol does.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger: a human-readable console encoder in dev mode,
// JSON otherwise, at the given level.
func New(level string, dev bool) (*zap.Logger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
