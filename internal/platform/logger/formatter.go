package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapConfig builds the zap configuration for the requested encoding.
func zapConfig(cfg *LoggerConfig) zap.Config {
	var zc zap.Config
	if cfg.ZapLevel() == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch cfg.Format {
	case "console", "text":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zc.Encoding = "json"
	}

	switch cfg.OutputFile {
	case "", "stdout":
		zc.OutputPaths = []string{"stdout"}
	case "stderr":
		zc.OutputPaths = []string{"stderr"}
	default:
		zc.OutputPaths = []string{cfg.OutputFile, "stdout"}
	}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc
}
