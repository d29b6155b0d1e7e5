// Package logging builds the process logger.
package logging

import (
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger at the given level. Debug switches to the
// development encoder.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	config := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// AsynqLevel maps a log level name onto the queue server's levels.
func AsynqLevel(level string) asynq.LogLevel {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return asynq.InfoLevel
	}
	switch {
	case lvl <= zapcore.DebugLevel:
		return asynq.DebugLevel
	case lvl == zapcore.InfoLevel:
		return asynq.InfoLevel
	case lvl == zapcore.WarnLevel:
		return asynq.WarnLevel
	case lvl == zapcore.ErrorLevel:
		return asynq.ErrorLevel
	default:
		return asynq.FatalLevel
	}
}

// AsynqLogger adapts a zap logger to the queue server's logger.
type AsynqLogger struct {
	s *zap.SugaredLogger
}

func NewAsynqLogger(l *zap.Logger) *AsynqLogger {
	return &AsynqLogger{s: l.Named("asynq").Sugar()}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l *AsynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l *AsynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l *AsynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }
