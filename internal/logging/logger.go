package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "handlecheck.log"

type Options struct {
	Level  string // debug, info, warn, error; unknown values mean info
	Stderr bool   // tee to stderr in addition to the rotated file
}

func NewLogger(logDir string) (*zap.Logger, error) {
	return New(logDir, Options{})
}

func New(logDir string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	level := ParseLevel(opts.Level)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level)
	if opts.Stderr {
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level))
	}
	return zap.New(core), nil
}

func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil || s == "" {
		return zap.InfoLevel
	}
	return l
}
