package utils

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cppla/pdftoolkit/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global structured logger
	Logger *zap.Logger
	// Sugar is a sugared logger for convenience
	Sugar *zap.SugaredLogger
)

// rotation holds the lumberjack settings shared by the application and access logs.
type rotation struct {
	maxSizeMB, maxBackups, maxAgeDays int
	compress                          bool
}

func rotationOf(cfg config.AppConfig) rotation {
	return rotation{cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress}
}

// rollingSink opens a lumberjack writer at path, creating its directory.
func rollingSink(path string, r rotation) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(r.maxSizeMB, 100), // megabytes
		MaxBackups: nz(r.maxBackups, 3),
		MaxAge:     nz(r.maxAgeDays, 7), // days
		Compress:   r.compress,
	}), nil
}

func jsonEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = timeEncoder
	encCfg.EncodeDuration = zapcore.SecondsDurationEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// InitLogger writes JSON lines to stdout and, when LogPath is set, to a rotated file.
func InitLogger(cfg config.AppConfig) error {
	level := parseLevel(cfg.LogLevel)
	cores := []zapcore.Core{zapcore.NewCore(jsonEncoder(), zapcore.Lock(os.Stdout), level)}

	if cfg.LogPath != "" {
		ws, err := rollingSink(cfg.LogPath, rotationOf(cfg))
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder(), ws, level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development())
	}
	UseLogger(zap.New(zapcore.NewTee(cores...), opts...))
	return nil
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// parseLevel falls back to info for empty or unknown names.
func parseLevel(s string) zapcore.Level {
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func nz(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// NewConsoleLogger builds a stderr-only logger for the command line tools.
func NewConsoleLogger(level string) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = timeEncoder
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), parseLevel(level))
	return zap.New(core)
}

// UseLogger installs l as the global logger. Tests and CLIs use it in place of InitLogger.
func UseLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
	Sugar = l.Sugar()
}

// L returns the global logger, or a no-op logger before initialisation.
func L() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}

// LogOperation writes one line per processing operation.
func LogOperation(op string, success bool, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("op", op), zap.Bool("success", success)}, fields...)
	if success {
		L().Info("operation", fields...)
		return
	}
	L().Warn("operation", fields...)
}
