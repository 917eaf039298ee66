// Package logger builds the zap logger shared by every component.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and sampling.
type Config struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or console
	Development bool   `yaml:"development"`
	// Sampling keeps per-frame debug lines from flooding the output: the
	// first SampleInitial entries per second pass, then one in SampleThereafter.
	Sampling         bool `yaml:"sampling"`
	SampleInitial    int  `yaml:"sample_initial"`
	SampleThereafter int  `yaml:"sample_thereafter"`
}

func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Format:           "console",
		Sampling:         true,
		SampleInitial:    10,
		SampleThereafter: 100,
	}
}

func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Format {
	case "", "console":
		zc.Encoding = "console"
	case "json":
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("log format %q: want json or console", cfg.Format)
	}

	zc.Sampling = nil
	if cfg.Sampling && cfg.SampleInitial > 0 {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    cfg.SampleInitial,
			Thereafter: cfg.SampleThereafter,
		}
	}

	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
