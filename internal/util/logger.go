package util

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"assistente-api/internal/config"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init builds the global logger from the logging section of the service
// configuration. Production gets sampled JSON with ISO timestamps, anything
// else gets the colored development console.
func Init(environment string, cfg config.LoggingConfig) *zap.Logger {
	once.Do(func() {
		zc := buildConfig(environment, cfg)

		var err error
		globalLogger, err = zc.Build(
			zap.AddCaller(),
			zap.AddCallerSkip(1),
		)
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}

		zap.ReplaceGlobals(globalLogger)
	})

	return globalLogger
}

func buildConfig(environment string, cfg config.LoggingConfig) zap.Config {
	var zc zap.Config

	if environment == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.DisableStacktrace = true
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc.Level = zap.NewAtomicLevelAt(parseLogLevel(cfg.Level))
	if cfg.Format == "json" {
		zc.Encoding = "json"
	} else {
		zc.Encoding = "console"
	}

	// Containers collect stdout; never write files.
	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc
}

// Get returns the global logger, initializing a production default when Init
// has not run yet.
func Get() *zap.Logger {
	if globalLogger == nil {
		return Init("production", config.LoggingConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// Sync flushes any buffered log entries.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}
