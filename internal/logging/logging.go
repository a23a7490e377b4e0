// Package logging builds the updater's run log: zap JSON records written to a
// size-rotated file. Console status lines are not part of the log.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Options selects where the run log goes and how verbose it is.
// File is a path, "stdout", or "off".
type Options struct {
	Level string
	File  string
}

// ParseLevel converts a level name to a zapcore.Level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// New builds a logger for opts. The returned close function flushes and
// releases the log file; it is safe to call when logging is off.
func New(opts Options) (*zap.Logger, func(), error) {
	var writer zapcore.WriteSyncer
	var rotator *lumberjack.Logger

	switch strings.ToLower(opts.File) {
	case "off", "":
		return zap.NewNop(), func() {}, nil
	case "stdout":
		writer = zapcore.Lock(os.Stdout)
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, err
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		writer = zapcore.AddSync(rotator)
	}

	core := zapcore.NewCore(encoder(), writer, ParseLevel(opts.Level))
	logger := zap.New(core, zap.AddCaller())

	closeFn := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, closeFn, nil
}

// NewWithWriter builds a logger that writes JSON records to w. Used by tests
// and by callers that already own a sink.
func NewWithWriter(w zapcore.WriteSyncer, level string) *zap.Logger {
	return zap.New(zapcore.NewCore(encoder(), w, ParseLevel(level)))
}
