package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, lvl, false)), buf
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	logger, buf := newBufferLogger(t)
	logger.With(String(FieldComponent, "engine")).Info("tick complete", Int("ticks", 3))

	line := buf.String()
	if !strings.Contains(line, "INFO engine: tick complete") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "ticks=3") {
		t.Fatalf("expected attrs in output, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger(t)
	logger.Info("mapping saved", String(FieldIdentity, "Glow Effect"))

	if !strings.Contains(buf.String(), `identity="Glow Effect"`) {
		t.Fatalf("expected quoted identity, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(buf, lvl, false))

	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN kept") {
		t.Fatalf("warn should pass: %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logger, buf := newBufferLogger(t)
	WarnWithContext(logger, "state file unreadable", "state_read_failed")

	out := buf.String()
	for _, want := range []string{"event_type=state_read_failed", "error_hint=", "impact="} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
