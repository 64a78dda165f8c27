// Package logger provides leveled structured logging backed by zap.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger

func init() {
	// A usable default until Init runs, so early failures still log.
	global = build(zapcore.InfoLevel, "text")
}

// Init configures the global logger with the given level ("debug", "info",
// "warn", "error") and format ("json" or "text").
func Init(level, format string) {
	global = build(parseLevel(level), format)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level, format string) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.ToLower(format) == "text" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level)
	return zap.New(core, zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = global.Sync()
}

func Debug(format string, args ...any) {
	global.Debugf(format, args...)
}

func Info(format string, args ...any) {
	global.Infof(format, args...)
}

func Warn(format string, args ...any) {
	global.Warnf(format, args...)
}

func Error(format string, args ...any) {
	global.Errorf(format, args...)
}

func Fatal(format string, args ...any) {
	global.Fatalf(format, args...)
}
