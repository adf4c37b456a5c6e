// Package logging builds the application's structured logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/config"
)

// New builds a zap logger from the log config: a development logger with
// colored console output when debug is on, JSON production output
// otherwise. The level comes from config (debug overrides to Debug).
func New(cfg config.LogConfig, debug bool) (*zap.Logger, error) {
	var zapCfg zap.Config
	if debug {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" && !debug {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// Nop returns a no-op logger, useful in tests.
func Nop() *zap.Logger { return zap.NewNop() }
