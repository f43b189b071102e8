package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes the command line logger
type Config struct {
	Level       string
	Encoding    string // json or console
	Development bool

	// Output is a zap sink; stdout is reserved for command output.
	Output string

	Fields map[string]any
}

// DefaultConfig returns a quiet console logger on stderr
func DefaultConfig() Config {
	return Config{
		Level:    "warn",
		Encoding: "console",
		Output:   "stderr",
	}
}

// Build creates a logger from the configuration
func (c Config) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if c.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.DisableCaller = !c.Development
	zapConfig.Sampling = nil

	if c.Encoding != "" {
		zapConfig.Encoding = c.Encoding
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if zapConfig.Encoding == "console" {
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	output := c.Output
	if output == "" {
		output = "stderr"
	}
	zapConfig.OutputPaths = []string{output}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if len(c.Fields) > 0 {
		fields := make([]zap.Field, 0, len(c.Fields))
		for k, v := range c.Fields {
			fields = append(fields, zap.Any(k, v))
		}
		logger = logger.With(fields...)
	}
	return logger, nil
}
