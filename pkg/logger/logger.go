package logger

import (
	"go.uber.org/zap"
)

var Log *zap.Logger

// New builds the process-wide production logger. Level defaults to info.
func New(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level != "" {
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = lvl
		}
	}
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}
