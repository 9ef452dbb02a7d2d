package logger

import (
	"testing"

	"quiz_bank_backend/internal/config"

	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name  string
		level string
		mode  string
		want  zapcore.Level
	}{
		{"debug mode default", "", "debug", zapcore.DebugLevel},
		{"release mode default", "", "release", zapcore.InfoLevel},
		{"explicit level wins", "warn", "debug", zapcore.WarnLevel},
		{"unknown level falls back", "loud", "release", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Log.Level = tt.level
			cfg.Server.Mode = tt.mode
			if got := levelFor(cfg); got != tt.want {
				t.Fatalf("levelFor = %v, want %v", got, tt.want)
			}
		})
	}
}
