package infrastructure_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/JaimeStill/palette/internal/infrastructure"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		warn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := infrastructure.NewLogger(tt.level)
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.debug {
				t.Errorf("debug enabled: got %v, want %v", got, tt.debug)
			}
			if got := logger.Enabled(ctx, slog.LevelWarn); got != tt.warn {
				t.Errorf("warn enabled: got %v, want %v", got, tt.warn)
			}
		})
	}
}
