package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" Warn ", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debug("hidden", "k", 1)
	Info("shown", "k", 2)
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "k=2") {
		t.Errorf("info line missing: %q", buf.String())
	}

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug line missing at debug level: %q", buf.String())
	}
}

func TestErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Error("fetch failed", errors.New("boom"), "id", "primary")
	out := buf.String()
	if !strings.Contains(out, "err=boom") {
		t.Errorf("missing err attribute: %q", out)
	}
	if !strings.Contains(out, "id=primary") {
		t.Errorf("missing kv attribute: %q", out)
	}
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("missing level: %q", out)
	}
}
