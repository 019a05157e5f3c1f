package statefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dialbridge/internal/faults"
	"dialbridge/internal/logging"
	"dialbridge/internal/testsupport"
)

func newTestChannel(t *testing.T) (*Channel, string, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	ch := NewChannel(NewFileSource(cfg), logging.NewNop())
	return ch, cfg.Paths.StateDir, cfg.Paths.FallbackDirs[0]
}

func TestChannelPositionReadsPrimary(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WritePositionRecord(t, stateDir, "logi_position.json", 12, -3, 100)

	rec, fresh, err := ch.Position(context.Background())
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if !fresh {
		t.Fatal("expected fresh read")
	}
	if rec.X != 12 || rec.Y != -3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestChannelFallsBackToSecondaryPath(t *testing.T) {
	ch, _, fallbackDir := newTestChannel(t)
	testsupport.WritePositionRecord(t, fallbackDir, "logi_position.json", 7, 0, 0)

	rec, fresh, err := ch.Position(context.Background())
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if !fresh || rec.X != 7 {
		t.Fatalf("unexpected result: %+v fresh=%v", rec, fresh)
	}
}

func TestChannelMissingEverywhereIsTransient(t *testing.T) {
	ch, _, _ := newTestChannel(t)

	_, _, err := ch.Position(context.Background())
	if !errors.Is(err, faults.ErrTransientRead) {
		t.Fatalf("expected transient read error, got %v", err)
	}
}

func TestChannelRejectsTruncatedPayload(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WriteStateFile(t, stateDir, "logi_position.json", `{"x": 12, "y":`)

	_, _, err := ch.Position(context.Background())
	if !errors.Is(err, faults.ErrCorruptPayload) {
		t.Fatalf("expected corrupt payload error, got %v", err)
	}
	if ch.Raw(KindPosition) == "" {
		t.Fatal("raw payload should be retained for introspection")
	}
}

func TestChannelServesCacheWhenReadFails(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	path := testsupport.WritePositionRecord(t, stateDir, "logi_position.json", 5, 5, 10)

	if _, _, err := ch.Position(context.Background()); err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	rec, fresh, err := ch.Position(context.Background())
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if fresh {
		t.Fatal("cache fallback must not report fresh")
	}
	if rec.X != 5 {
		t.Fatalf("unexpected cached record: %+v", rec)
	}
}

func TestChannelServesCacheOnCorruption(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WritePositionRecord(t, stateDir, "logi_position.json", 5, 5, 10)
	if _, _, err := ch.Position(context.Background()); err != nil {
		t.Fatalf("Position failed: %v", err)
	}

	testsupport.WriteStateFile(t, stateDir, "logi_position.json", "garbage")
	rec, fresh, err := ch.Position(context.Background())
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if fresh || rec.X != 5 {
		t.Fatalf("expected cached record, got %+v fresh=%v", rec, fresh)
	}
}

func TestChannelDeduplicatesByMarker(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WriteButtonRecord(t, stateDir, "logi_buttons.json", "TOP RIGHT", true, 42)

	rec, fresh, err := ch.Button(context.Background())
	if err != nil || !fresh {
		t.Fatalf("first read: rec=%+v fresh=%v err=%v", rec, fresh, err)
	}

	// Same timestamp: stale, served from cache.
	rec, fresh, err = ch.Button(context.Background())
	if err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if fresh {
		t.Fatal("repeated marker must not be fresh")
	}
	if rec.Button != "TOP RIGHT" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	// Advancing timestamp is fresh again.
	testsupport.WriteButtonRecord(t, stateDir, "logi_buttons.json", "TOP RIGHT", true, 43)
	_, fresh, err = ch.Button(context.Background())
	if err != nil || !fresh {
		t.Fatalf("advanced marker: fresh=%v err=%v", fresh, err)
	}
}

func TestChannelAcceptsLoweredMarkerAfterHostRestart(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WriteButtonRecord(t, stateDir, "logi_buttons.json", "TOP RIGHT", true, 9000)

	if _, fresh, err := ch.Button(context.Background()); err != nil || !fresh {
		t.Fatalf("first read: fresh=%v err=%v", fresh, err)
	}

	// A restarted device host stamps from zero again; the event must not be
	// dropped as a duplicate.
	testsupport.WriteButtonRecord(t, stateDir, "logi_buttons.json", "TOP LEFT", true, 3)
	rec, fresh, err := ch.Button(context.Background())
	if err != nil {
		t.Fatalf("post-restart read failed: %v", err)
	}
	if !fresh {
		t.Fatal("lowered marker must be treated as fresh")
	}
	if rec.Button != "TOP LEFT" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestChannelZeroMarkerNeverStale(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WritePositionRecord(t, stateDir, "logi_position.json", 1, 0, 0)

	for i := 0; i < 3; i++ {
		_, fresh, err := ch.Position(context.Background())
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		if !fresh {
			t.Fatalf("read %d: zero marker must always be processed", i)
		}
	}
}

func TestChannelConsoleRecord(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WriteConsoleRecord(t, stateDir, "controller_state.json", map[string]any{
		"knob_1a":     0.5,
		"fader_1":     64.0,
		"focus_1":     true,
		"ctrl_1":      false,
		"last_update": 99.0,
		"device":      "x-touch",
	})

	rec, fresh, err := ch.Console(context.Background())
	if err != nil || !fresh {
		t.Fatalf("Console failed: fresh=%v err=%v", fresh, err)
	}
	if rec.Channels["knob_1a"] != 0.5 || rec.Channels["fader_1"] != 64 {
		t.Fatalf("unexpected channels: %+v", rec.Channels)
	}
	if !rec.Buttons["focus_1"] || rec.Buttons["ctrl_1"] {
		t.Fatalf("unexpected buttons: %+v", rec.Buttons)
	}
	if rec.LastUpdate != 99 {
		t.Fatalf("unexpected last_update: %v", rec.LastUpdate)
	}
	if _, ok := rec.Channels["device"]; ok {
		t.Fatal("string metadata must not appear as a channel")
	}
}

func TestResetPositionZeroesPrimary(t *testing.T) {
	ch, stateDir, _ := newTestChannel(t)
	testsupport.WritePositionRecord(t, stateDir, "logi_position.json", 250, -80, 7)
	if _, _, err := ch.Position(context.Background()); err != nil {
		t.Fatalf("Position failed: %v", err)
	}

	if err := ResetPosition(ch); err != nil {
		t.Fatalf("ResetPosition failed: %v", err)
	}

	rec, fresh, err := ch.Position(context.Background())
	if err != nil {
		t.Fatalf("post-reset read failed: %v", err)
	}
	if !fresh {
		t.Fatal("post-reset read must be fresh")
	}
	if rec.X != 0 || rec.Y != 0 {
		t.Fatalf("expected zeroed record, got %+v", rec)
	}
}

func TestParseButtonRejectsMissingFields(t *testing.T) {
	_, err := parseButton([]byte(`{"button": "TOP RIGHT", "pressed": true}`))
	if !errors.Is(err, faults.ErrCorruptPayload) {
		t.Fatalf("expected corrupt payload error, got %v", err)
	}
	_, err = parseButton([]byte(`{"button": "  ", "pressed": true, "timestamp": 1}`))
	if !errors.Is(err, faults.ErrCorruptPayload) {
		t.Fatalf("expected corrupt payload error for blank button, got %v", err)
	}
}

func TestWatchSourceServesObservedPayload(t *testing.T) {
	dir := t.TempDir()
	testsupport.WritePositionRecord(t, dir, "logi_position.json", 3, 4, 1)

	src, err := NewWatchSource(dir, "logi_position.json", "logi_buttons.json", "controller_state.json", logging.NewNop())
	if err != nil {
		t.Fatalf("NewWatchSource failed: %v", err)
	}
	defer src.Close()

	data, err := src.Load(context.Background(), KindPosition)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rec, err := parsePosition(data)
	if err != nil {
		t.Fatalf("parsePosition failed: %v", err)
	}
	if rec.X != 3 || rec.Y != 4 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := src.Load(context.Background(), KindButton); !errors.Is(err, faults.ErrTransientRead) {
		t.Fatalf("expected transient read for unobserved kind, got %v", err)
	}
	want := filepath.Join(dir, "logi_position.json")
	if got := src.PrimaryPath(KindPosition); got != want {
		t.Fatalf("PrimaryPath = %q, want %q", got, want)
	}
}
