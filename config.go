package pipe

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the tuning of a pipeline, usually read from the environment.
type Config struct {
	Limit          int    `envconfig:"LIMIT" default:"0"`
	BufferCapacity int    `envconfig:"BUFFER_CAPACITY" default:"0"`
	Workers        int    `envconfig:"WORKERS" default:"0"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEV" default:"false"`
}

// LoadConfig reads the configuration from the environment variables prefixed with prefix, e.g. PIPE_LIMIT for
// the prefix "pipe".
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Options returns the stage options matching the configuration, followed by extra.
func (c Config) Options(extra ...Option) []Option {
	opts := []Option{WithLimit(c.Limit), WithBufferCapacity(c.BufferCapacity)}
	return append(opts, extra...)
}

// NewLogger builds a zap logger at the configured level. The development logger is human readable.
func (c Config) NewLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	zapCfg := zap.NewProductionConfig()
	if c.LogDevelopment {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// NewWorkers builds the workers of the configuration, inline when Workers is 0.
func (c Config) NewWorkers(loop *Loop) (*Workers, error) {
	return NewWorkers(loop, c.Workers)
}
