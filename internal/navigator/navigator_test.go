package navigator

import (
	"context"
	"errors"
	"testing"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
	"dialbridge/internal/testsupport"
)

func newTestNavigator(t *testing.T) (*Navigator, *testsupport.FakeHost, *mappings.Store) {
	t.Helper()
	fake := testsupport.NewFakeHost()
	fake.Seed()
	cfg := testsupport.NewConfig(t)
	store, err := mappings.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(fake, store, logging.NewNop()), fake, store
}

func TestRefreshEntersEntitySelected(t *testing.T) {
	n, _, _ := newTestNavigator(t)

	if err := n.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n.State() != StateEntitySelected {
		t.Fatalf("state = %v, want %v", n.State(), StateEntitySelected)
	}
	if n.Identity() != "Glow" {
		t.Fatalf("identity = %q, want Glow", n.Identity())
	}
	target, ok := n.ActiveTarget()
	if !ok {
		t.Fatal("expected an active target")
	}
	if target.ContainerID != "e-glow" || target.PropertyID != "p-opacity" {
		t.Fatalf("unexpected target: %+v", target)
	}
}

func TestRefreshWithNoContainers(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	fake.ContainerList = nil

	if err := n.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n.State() != StateNoContainer {
		t.Fatalf("state = %v, want %v", n.State(), StateNoContainer)
	}
	if _, ok := n.ActiveTarget(); ok {
		t.Fatal("no target expected without containers")
	}
}

func TestRefreshWithNothingSelected(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	fake.SelectedID = ""

	if err := n.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n.State() != StateNoSelection {
		t.Fatalf("state = %v, want %v", n.State(), StateNoSelection)
	}
}

func TestEntityStepWrapsCyclically(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	fake.EntityLists["c1"] = append(fake.EntityLists["c1"], host.Entity{ID: "e-curves", Name: "Curves"})
	fake.PropertyLists["e-curves"] = []host.Property{{ID: "p-mix", Name: "Mix"}}
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Three entities: Glow, Blur, Curves. Step forward off the end.
	for _, want := range []string{"Blur", "Curves", "Glow"} {
		if err := n.NextEntity(ctx); err != nil {
			t.Fatalf("NextEntity failed: %v", err)
		}
		if n.Identity() != want {
			t.Fatalf("identity = %q, want %q", n.Identity(), want)
		}
	}

	// Step backward off the start: Glow -> Curves.
	if err := n.PrevEntity(ctx); err != nil {
		t.Fatalf("PrevEntity failed: %v", err)
	}
	if n.Identity() != "Curves" {
		t.Fatalf("identity = %q, want Curves", n.Identity())
	}
}

func TestEntityStepNoopWithSingleEntity(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	fake.EntityLists["c1"] = fake.EntityLists["c1"][:1]
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := n.NextEntity(ctx); err != nil {
		t.Fatalf("NextEntity failed: %v", err)
	}
	if n.Identity() != "Glow" {
		t.Fatalf("single-entity wrap must be a no-op, got %q", n.Identity())
	}
}

func TestContainerStepWrapsAndRefocuses(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := n.NextContainer(ctx); err != nil {
		t.Fatalf("NextContainer failed: %v", err)
	}
	if fake.SelectedID != "c2" {
		t.Fatalf("host selection = %q, want c2", fake.SelectedID)
	}
	if n.Identity() != "Tint" {
		t.Fatalf("identity = %q, want Tint", n.Identity())
	}

	// Wrap past the end back to c1.
	if err := n.NextContainer(ctx); err != nil {
		t.Fatalf("NextContainer failed: %v", err)
	}
	if fake.SelectedID != "c1" || n.Identity() != "Glow" {
		t.Fatalf("selection = %q identity = %q, want c1/Glow", fake.SelectedID, n.Identity())
	}
}

func TestEmptyContainerIsContainerSelected(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	fake.EntityLists["c1"] = nil
	ctx := context.Background()

	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n.State() != StateContainerSelected {
		t.Fatalf("state = %v, want %v", n.State(), StateContainerSelected)
	}
	if err := n.NextEntity(ctx); err != nil {
		t.Fatalf("NextEntity on empty container failed: %v", err)
	}
}

func TestSelectPropertyByMappedButton(t *testing.T) {
	n, _, store := newTestNavigator(t)
	ctx := context.Background()
	if err := store.Assign(ctx, "Glow", 3, mappings.Assignment{PropertyID: "p-color", PropertyName: "Color"}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := n.SelectPropertyByButton(ctx, 3); err != nil {
		t.Fatalf("SelectPropertyByButton failed: %v", err)
	}
	target, ok := n.ActiveTarget()
	if !ok || target.PropertyID != "p-color" {
		t.Fatalf("target = %+v ok = %v, want p-color", target, ok)
	}
}

func TestSelectPropertyUnmappedButton(t *testing.T) {
	n, _, _ := newTestNavigator(t)
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	err := n.SelectPropertyByButton(ctx, 9)
	if !errors.Is(err, faults.ErrUnsupportedValue) {
		t.Fatalf("expected unmapped-button error, got %v", err)
	}
}

func TestHostFailureNeedsReenumeration(t *testing.T) {
	n, fake, _ := newTestNavigator(t)
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fake.Fail = errors.New("socket gone")
	err := n.NextEntity(ctx)
	if !errors.Is(err, faults.ErrHostAPI) {
		t.Fatalf("expected host API error, got %v", err)
	}
	if !faults.NeedsReenumeration(err) {
		t.Fatal("host API failure must demand re-enumeration")
	}

	// Host recovers: a refresh restores navigation.
	fake.Fail = nil
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("recovery Refresh failed: %v", err)
	}
	if n.State() != StateEntitySelected {
		t.Fatalf("state = %v after recovery, want %v", n.State(), StateEntitySelected)
	}
}

func TestSnapshotReportsPosition(t *testing.T) {
	n, _, _ := newTestNavigator(t)
	ctx := context.Background()
	if err := n.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	snap := n.Snapshot()
	if snap.State != StateEntitySelected || snap.Container != "Layer 1" || snap.Entity != "Glow" || snap.Property != "Opacity" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.EntityCount != 2 {
		t.Fatalf("entity count = %d, want 2", snap.EntityCount)
	}
}
