package logging

import (
	"testing"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New("warn")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) || !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn level")
	}
	if _, err := New("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestAsynqLevel(t *testing.T) {
	cases := map[string]asynq.LogLevel{
		"debug": asynq.DebugLevel,
		"info":  asynq.InfoLevel,
		"warn":  asynq.WarnLevel,
		"error": asynq.ErrorLevel,
		"fatal": asynq.FatalLevel,
		"???":   asynq.InfoLevel,
	}
	for in, want := range cases {
		if got := AsynqLevel(in); got != want {
			t.Errorf("AsynqLevel(%q) = %v, want %v", in, got, want)
		}
	}
	NewAsynqLogger(zap.NewNop()).Info("quiet")
}
