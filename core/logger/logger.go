package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum level to emit: silent, warn, info or debug.
	Level string `mapstructure:"level" default:"info"`
	// Format is the encoding: console or json.
	Format string `mapstructure:"format" default:"console"`
}

// FromVerbosity maps the CLI verbosity flags onto a logger configuration.
// -q silences everything, -v keeps warnings only, the default is info,
// and -vvv (or more) enables debug output.
func FromVerbosity(quiet bool, verbose int) Config {
	cfg := Config{Format: "console"}
	switch {
	case quiet:
		cfg.Level = "silent"
	case verbose == 0 || verbose == 2:
		cfg.Level = "info"
	case verbose == 1:
		cfg.Level = "warn"
	default:
		cfg.Level = "debug"
	}
	return cfg
}

// New creates a new zap logger based on the configuration.
// All output goes to stderr so command results on stdout stay clean.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Level == "silent" {
		return zap.NewNop(), nil
	}

	var config zap.Config
	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	switch cfg.Level {
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"

	return config.Build()
}
