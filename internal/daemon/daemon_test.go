package daemon

import (
	"context"
	"testing"

	"dialbridge/internal/config"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
	"dialbridge/internal/statefile"
	"dialbridge/internal/testsupport"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeHost()
	fake.Seed()

	d, err := New(cfg, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must fail")
	}

	st := d.Status(false)
	if !st.Running || !st.Engine.Running {
		t.Fatalf("status = %+v, want running daemon and engine", st)
	}
	if st.Engine.RunID == "" {
		t.Fatal("running engine must carry a run handle")
	}

	d.Stop()
	st = d.Status(false)
	if st.Running || st.Engine.Running {
		t.Fatalf("status = %+v after stop, want idle", st)
	}

	// Stop is idempotent; restart works.
	d.Stop()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	d.Stop()
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeHost()
	fake.Seed()

	first, err := New(cfg, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must be rejected by the lock")
	}
}

func TestDaemonMappingOperations(t *testing.T) {
	d := newTestDaemon(t)
	ctx := context.Background()

	if err := d.MappingAssign(ctx, "Glow", 3, mappings.Assignment{PropertyID: "p-opacity", PropertyName: "Opacity"}); err != nil {
		t.Fatalf("MappingAssign failed: %v", err)
	}

	mapping, err := d.MappingGet(ctx, "Glow")
	if err != nil {
		t.Fatalf("MappingGet failed: %v", err)
	}
	if a, ok := mapping.Lookup(3); !ok || a.PropertyID != "p-opacity" {
		t.Fatalf("mapping = %+v, want button 3 -> p-opacity", mapping)
	}

	identities, err := d.MappingIdentities(ctx)
	if err != nil {
		t.Fatalf("MappingIdentities failed: %v", err)
	}
	if len(identities) != 1 || identities[0] != "glow" {
		t.Fatalf("identities = %v, want [glow]", identities)
	}

	if err := d.MappingUnassign(ctx, "Glow", 3); err != nil {
		t.Fatalf("MappingUnassign failed: %v", err)
	}
	mapping, err = d.MappingGet(ctx, "Glow")
	if err != nil {
		t.Fatalf("MappingGet failed: %v", err)
	}
	if _, ok := mapping.Lookup(3); ok {
		t.Fatal("binding should be removed")
	}
}

func TestDaemonSelectsWatchTransport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.Source = config.SourceWatch
	testsupport.WritePositionRecord(t, cfg.Paths.StateDir, cfg.Paths.PositionFile, 9, -2, 50)
	fake := testsupport.NewFakeHost()
	fake.Seed()

	d, err := New(cfg, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if _, ok := d.channel.Source().(*statefile.WatchSource); !ok {
		t.Fatalf("source = %T, want watch transport", d.channel.Source())
	}
	rec, fresh, err := d.channel.Position(context.Background())
	if err != nil || !fresh {
		t.Fatalf("Position via watch transport: rec=%+v fresh=%v err=%v", rec, fresh, err)
	}
	if rec.X != 9 || rec.Y != -2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDaemonDefaultsToPollTransport(t *testing.T) {
	d := newTestDaemon(t)
	if _, ok := d.channel.Source().(*statefile.FileSource); !ok {
		t.Fatalf("source = %T, want polling transport", d.channel.Source())
	}
}

func TestDaemonResetPosition(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.ResetPosition(); err != nil {
		t.Fatalf("ResetPosition failed: %v", err)
	}
}
