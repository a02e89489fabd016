package logging

import (
	"os"
	"strings"

	"github.com/savegress/traderecon/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Unknown levels fall back to info.
func New(cfg config.LoggingConfig) *zap.Logger {
	return zap.New(NewCore(cfg, zapcore.Lock(os.Stderr)), zap.AddCaller()).
		With(zap.String("service", "traderecon"))
}

// NewCore builds a zap core writing to ws, used directly by tests
func NewCore(cfg config.LoggingConfig, ws zapcore.WriteSyncer) zapcore.Core {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zapcore.NewCore(encoder, ws, level)
}
