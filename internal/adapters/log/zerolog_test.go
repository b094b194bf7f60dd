package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/custodian/internal/ports"
)

func TestZerologAdapter_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("record committed",
		ports.String("address", "0xabc"),
		ports.Uint32("value", 42),
		ports.Uint64("commits", 3),
		ports.Duration("commit_frequency", 30*time.Second),
		ports.Err(errors.New("boom")),
	)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if got["message"] != "record committed" || got["level"] != "info" {
		t.Errorf("unexpected envelope: %v", got)
	}
	if got["address"] != "0xabc" || got["value"] != float64(42) || got["commits"] != float64(3) {
		t.Errorf("unexpected fields: %v", got)
	}
	if got["error"] != "boom" {
		t.Errorf("error field = %v, want boom", got["error"])
	}
}

func TestZerologAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	z.Debug("hidden")
	z.Info("hidden")
	z.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("below-level messages were written: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %s", buf.String())
	}
}

func TestNewConsoleLogger_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		l := newConsoleLogger(&bytes.Buffer{}, tt.level)
		if l.GetLevel() != tt.want {
			t.Errorf("level %q = %v, want %v", tt.level, l.GetLevel(), tt.want)
		}
	}
}
