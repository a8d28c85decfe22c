package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Logger wraps zap so the rest of the service depends on one logging type.
type Logger struct {
	*zap.Logger
	config *LoggerConfig
}

// New builds a logger from cfg. A nil cfg reads the environment.
func New(cfg *LoggerConfig) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.OutputFile != "" && cfg.OutputFile != "stdout" && cfg.OutputFile != "stderr" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logger: cannot create log directory for %s, using stdout: %v\n", cfg.OutputFile, err)
			cfg.OutputFile = "stdout"
		}
	}

	zl, err := zapConfig(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: falling back to production defaults: %v\n", err)
		zl, _ = zap.NewProduction()
	}
	return &Logger{Logger: zl, config: cfg}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), config: &LoggerConfig{Level: "info", Format: "json"}}
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}
