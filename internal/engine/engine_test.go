package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"dialbridge/internal/config"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
	"dialbridge/internal/statefile"
	"dialbridge/internal/testsupport"
)

var opacity = host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}

func newTestEngine(t *testing.T) (*Engine, *testsupport.FakeHost, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeHost()
	fake.Seed()
	store, err := mappings.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	channel := statefile.NewChannel(statefile.NewFileSource(cfg), logging.NewNop())
	e := New(cfg, channel, fake, store, logging.NewNop())
	e.needsRefresh = true
	return e, fake, cfg
}

func TestStartStopLifecycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !e.Running() {
		t.Fatal("engine should report running")
	}
	if e.Status(false).RunID == "" {
		t.Fatal("running engine must carry a run handle")
	}

	if err := e.Start(ctx); err != ErrAlreadyRunning {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}

	e.Stop()
	if e.Running() {
		t.Fatal("engine should be stopped")
	}
	if e.Status(false).RunID != "" {
		t.Fatal("stop must invalidate the run handle")
	}

	// Stopping again is a no-op; a fresh start works.
	e.Stop()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	e.Stop()
}

func TestTickAppliesDialDelta(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()

	// First tick anchors the baseline without mutating.
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 10, 0, 1)
	e.tick(ctx)
	if got := fake.Values[opacity].Scalar; got != 50 {
		t.Fatalf("baseline tick mutated value to %v", got)
	}

	// Dial moved 5 counts at big sensitivity 0.1.
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 15, 0, 2)
	e.tick(ctx)
	if got := fake.Values[opacity].Scalar; got != 50.5 {
		t.Fatalf("opacity = %v, want 50.5", got)
	}
}

func TestTickScrubsPlayheadFromSmallDial(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()

	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 0, 0, 1)
	e.tick(ctx)
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 0, 30, 2)
	e.tick(ctx)

	if got, want := fake.Playhead.Time, 1.0; got != want {
		t.Fatalf("playhead = %v, want %v", got, want)
	}
}

func TestTickGlitchJumpDoesNotMutate(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()

	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 5000, 0, 1)
	e.tick(ctx)

	// Device host restarted: accumulated position collapses to zero.
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 0, 0, 2)
	e.tick(ctx)
	if got := fake.Values[opacity].Scalar; got != 50 {
		t.Fatalf("rejected jump mutated value to %v", got)
	}

	// Baseline re-anchored: normal movement applies next tick.
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 5, 0, 3)
	e.tick(ctx)
	if got := fake.Values[opacity].Scalar; got != 50.5 {
		t.Fatalf("opacity = %v after recovery, want 50.5", got)
	}
}

func TestTickDispatchesNavigationButton(t *testing.T) {
	e, _, cfg := newTestEngine(t)
	ctx := context.Background()

	testsupport.WriteButtonRecord(t, cfg.Paths.StateDir, cfg.Paths.ButtonFile, cfg.Buttons.NextEntity, true, 1)
	e.tick(ctx)
	if got := e.nav.Identity(); got != "Blur" {
		t.Fatalf("identity = %q, want Blur", got)
	}

	// Same event again is deduplicated by its timestamp.
	e.tick(ctx)
	if got := e.nav.Identity(); got != "Blur" {
		t.Fatalf("identity = %q after duplicate event, want Blur", got)
	}
}

func TestTickKeyframeToggleButton(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()
	fake.Playhead.Time = 2

	testsupport.WriteButtonRecord(t, cfg.Paths.StateDir, cfg.Paths.ButtonFile, cfg.Buttons.KeyframeJump, true, 1)
	e.tick(ctx)

	keys := fake.KeyframeLists[opacity]
	if len(keys) != 1 || keys[0].Time != 2 {
		t.Fatalf("keyframes = %+v, want one at t=2", keys)
	}
}

func TestTickContainsFaults(t *testing.T) {
	e, _, cfg := newTestEngine(t)
	ctx := context.Background()

	testsupport.WriteStateFile(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, `{"x": 1, "y`)
	e.tick(ctx)

	st := e.Status(true)
	if st.LastError == "" {
		t.Fatal("status must carry the contained fault")
	}
	if st.Raw[string(statefile.KindPosition)] == "" {
		t.Fatal("raw introspection should expose the bad payload")
	}

	// The scheduler keeps going: a valid record next tick is processed.
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 1, 0, 5)
	e.tick(ctx)
	if got := e.Status(false).Ticks; got != 2 {
		t.Fatalf("tick count = %d, want 2", got)
	}
}

func TestTickWritesHeartbeat(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.tick(context.Background())

	info, err := os.Stat(e.heartbeatPath)
	if err != nil {
		t.Fatalf("heartbeat missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("heartbeat file is empty")
	}
}

func TestConsolePassAppliesMappedChannel(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()

	if err := e.store.Assign(ctx, "Glow", 1, mappings.Assignment{PropertyID: "p-opacity", PropertyName: "Opacity"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	testsupport.WriteConsoleRecord(t, cfg.Paths.StateDir, cfg.Paths.ConsoleFile, map[string]any{
		"knob_1a":     10.0,
		"last_update": 1.0,
	})
	e.tick(ctx)

	testsupport.WriteConsoleRecord(t, cfg.Paths.StateDir, cfg.Paths.ConsoleFile, map[string]any{
		"knob_1a":     10.4,
		"last_update": 2.0,
	})
	e.tick(ctx)

	want := 50 + 0.4*cfg.Engine.BigSensitivity
	got := fake.Values[opacity].Scalar
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("opacity = %v, want %v", got, want)
	}
}

func TestConsoleFocusButtonSelectsProperty(t *testing.T) {
	e, _, cfg := newTestEngine(t)
	ctx := context.Background()

	if err := e.store.Assign(ctx, "Glow", 2, mappings.Assignment{PropertyID: "p-color", PropertyName: "Color"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	testsupport.WriteConsoleRecord(t, cfg.Paths.StateDir, cfg.Paths.ConsoleFile, map[string]any{
		"focus_2":     true,
		"last_update": 1.0,
	})
	e.tick(ctx)

	target, ok := e.nav.ActiveTarget()
	if !ok || target.PropertyID != "p-color" {
		t.Fatalf("target = %+v ok = %v, want p-color", target, ok)
	}
}

func TestResetPositionClearsBaselines(t *testing.T) {
	e, fake, cfg := newTestEngine(t)
	ctx := context.Background()

	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 300, 0, 1)
	e.tick(ctx)

	if err := e.ResetPosition(); err != nil {
		t.Fatalf("ResetPosition failed: %v", err)
	}

	// Post-reset the zeroed record re-anchors instead of applying -300.
	e.tick(ctx)
	if got := fake.Values[opacity].Scalar; got != 50 {
		t.Fatalf("opacity = %v after reset, want 50", got)
	}
}

func TestPollLoopTicksOnSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(5))
	fake := testsupport.NewFakeHost()
	fake.Seed()
	store, err := mappings.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	channel := statefile.NewChannel(statefile.NewFileSource(cfg), logging.NewNop())
	e := New(cfg, channel, fake, store, logging.NewNop())

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for e.Status(false).Ticks < 2 {
		select {
		case <-deadline:
			t.Fatal("engine never ticked")
		case <-time.After(10 * time.Millisecond):
		}
	}
	e.Stop()
}
