package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLogger(WithOutput(&buf), WithLevel(LevelDebug))

	tests := []struct {
		log   func(string, ...interface{})
		level string
	}{
		{logger.Debug, "[DEBUG]"},
		{logger.Info, "[INFO]"},
		{logger.Warn, "[WARN]"},
		{logger.Error, "[ERROR]"},
	}

	for _, tc := range tests {
		tc.log("flushed block %d", 7)
		out := buf.String()
		if !strings.Contains(out, tc.level) || !strings.Contains(out, "flushed block 7") {
			t.Errorf("expected %s entry, got: %s", tc.level, out)
		}
		buf.Reset()
	}
}

func TestStandardLoggerFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filtering failed, got: %s", buf.String())
	}

	buf.Reset()
	logger.SetLevel(LevelOff)
	logger.Error("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output at LevelOff, got: %s", buf.String())
	}
	if logger.GetLevel() != LevelOff {
		t.Errorf("expected LevelOff, got %v", logger.GetLevel())
	}
}

func TestStandardLoggerFieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLogger(
		WithOutput(&buf),
		WithInitialFields(map[string]interface{}{"table": 3}),
	)

	child := logger.WithFields(map[string]interface{}{
		"block":  12,
		"offset": 4096,
	})
	child.Info("rollover")

	out := buf.String()
	want := " block=12 offset=4096 table=3 rollover"
	if !strings.Contains(out, want) {
		t.Errorf("expected %q in output, got: %s", want, out)
	}

	// The parent must not see the child's fields
	buf.Reset()
	logger.Info("parent")
	if strings.Contains(buf.String(), "block=") {
		t.Errorf("child fields leaked into parent: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"off", LevelOff, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefaultLogger(original)

	var buf bytes.Buffer
	SetDefaultLogger(NewStandardLogger(WithOutput(&buf)))

	Info("global %s", "message")
	if !strings.Contains(buf.String(), "[INFO]") || !strings.Contains(buf.String(), "global message") {
		t.Errorf("global info logging failed, got: %s", buf.String())
	}
	buf.Reset()

	Debug("not shown")
	if buf.Len() != 0 {
		t.Errorf("debug entry written at info level: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	if logger.GetLevel() != LevelOff {
		t.Errorf("expected discard logger at LevelOff, got %v", logger.GetLevel())
	}
}
