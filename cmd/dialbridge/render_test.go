package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"dialbridge/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Engine", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s [ERROR] Not running", statusIndent, statusLabelWidth, "Engine:")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineColorsOnlyTheTag(t *testing.T) {
	got := renderStatusLine("Engine", statusOK, "Running", true)
	if !strings.Contains(got, ansiGreen+"[OK]"+ansiReset) {
		t.Fatalf("expected colored tag, got %q", got)
	}
	if !strings.HasSuffix(got, " Running") {
		t.Fatalf("message must stay outside the colored run, got %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Button", "Property"},
		[][]string{{"3", "Opacity"}, {"4"}},
		1,
	)
	if !strings.Contains(out, "BUTTON") && !strings.Contains(out, "Button") {
		t.Fatalf("expected header in table output, got %q", out)
	}
	if !strings.Contains(out, "Opacity") {
		t.Fatalf("expected row value in table output, got %q", out)
	}
}

func TestDaemonStatusLines(t *testing.T) {
	status := &ipc.StatusResponse{
		PID:           1234,
		EngineRunning: true,
		RunID:         "run-1",
		Ticks:         42,
		LastTick:      "2026-08-23T10:00:00Z",
		LastError:     "read state file: transient read failure",
		MappingDBPath: "/tmp/mappings.db",
	}
	lines := daemonStatusLines(status, false)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "polling (run run-1)") {
		t.Fatalf("expected run id in engine line, got %q", joined)
	}
	if !strings.Contains(joined, "42") {
		t.Fatalf("expected tick count, got %q", joined)
	}
	if !strings.Contains(joined, "[WARN] read state file") {
		t.Fatalf("expected last error as warning, got %q", joined)
	}
}

func TestNavigatorStatusLines(t *testing.T) {
	nav := ipc.NavigatorStatus{
		State:       "entity_selected",
		Container:   "Comp 1",
		Entity:      "Glow",
		Property:    "Opacity",
		EntityCount: 3,
	}
	lines := navigatorStatusLines(nav, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[2], "Glow (of 3)") {
		t.Fatalf("expected entity count detail, got %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
