// Package logger builds the zap logger used across otpguard.
package logger

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr at level. Every entry
// carries a run id so lines from one invocation can be grouped.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewWithSink(lvl, zapcore.Lock(os.Stderr)), nil
}

func NewWithSink(lvl zapcore.Level, sink zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, zap.NewAtomicLevelAt(lvl))
	return zap.New(core).With(zap.String("run", uuid.NewString()))
}
