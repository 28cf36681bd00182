// Package log provides the leveled, key-value structured logger used across
// the bridge (logger.Info("message", "key", value, ...)).
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module identifies the subsystem a logger belongs to.
type Module string

const (
	ModuleStore     Module = "store"
	ModuleAdapter   Module = "adapter"
	ModuleEngine    Module = "engine"
	ModuleRetry     Module = "retry"
	ModuleScheduler Module = "scheduler"
	ModuleAPI       Module = "api"
	ModuleConfig    Module = "config"
	ModuleCmd       Module = "cmd"
)

var base *zap.Logger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// Logger is the key-value leveled logger handed to every package.
type Logger struct {
	module Module
	z      *zap.SugaredLogger
}

// NewModuleLogger returns a Logger tagged with the given module name.
func NewModuleLogger(module Module) *Logger {
	return &Logger{module: module, z: base.Sugar().With("module", string(module))}
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }

// Crit logs at error level and terminates the process; used for
// unrecoverable startup failures.
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.z.Errorw(msg, kv...)
	_ = base.Sync()
	os.Exit(1)
}

// Sync flushes buffered log entries; call on process shutdown.
func Sync() {
	_ = base.Sync()
}
