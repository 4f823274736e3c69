package logger

import (
	"github.com/fxnlabs/compute-channel/internal/config"
	"go.uber.org/zap"
)

// New builds the root logger. Development mode switches to the console
// encoder with stack traces on warnings.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Verbosity)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level
	return zapConfig.Build()
}
