package rpc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/testsupport"
)

func newRoundTrip(t *testing.T) (*Client, *testsupport.FakeHost) {
	t.Helper()
	fake := testsupport.NewFakeHost()
	fake.Seed()

	socket := filepath.Join(t.TempDir(), "host.sock")
	server, err := NewServer(context.Background(), socket, fake, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := Dial(socket, time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

func TestRoundTripEnumeration(t *testing.T) {
	client, _ := newRoundTrip(t)
	ctx := context.Background()

	containers, err := client.Containers(ctx)
	if err != nil {
		t.Fatalf("Containers failed: %v", err)
	}
	if len(containers) != 2 || containers[0].ID != "c1" {
		t.Fatalf("unexpected containers: %+v", containers)
	}

	selected, err := client.SelectedContainer(ctx)
	if err != nil {
		t.Fatalf("SelectedContainer failed: %v", err)
	}
	if selected == nil || selected.ID != "c1" {
		t.Fatalf("unexpected selection: %+v", selected)
	}

	entities, err := client.Entities(ctx, "c1")
	if err != nil {
		t.Fatalf("Entities failed: %v", err)
	}
	if len(entities) != 2 || entities[0].Name != "Glow" {
		t.Fatalf("unexpected entities: %+v", entities)
	}

	properties, err := client.Properties(ctx, "e-glow")
	if err != nil {
		t.Fatalf("Properties failed: %v", err)
	}
	if len(properties) != 2 || properties[0].ID != "p-opacity" {
		t.Fatalf("unexpected properties: %+v", properties)
	}
}

func TestRoundTripNilSelection(t *testing.T) {
	client, fake := newRoundTrip(t)
	fake.SelectedID = ""

	selected, err := client.SelectedContainer(context.Background())
	if err != nil {
		t.Fatalf("SelectedContainer failed: %v", err)
	}
	if selected != nil {
		t.Fatalf("expected nil selection, got %+v", selected)
	}
}

func TestRoundTripValueMutation(t *testing.T) {
	client, fake := newRoundTrip(t)
	ctx := context.Background()
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}

	value, err := client.Value(ctx, target)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if value.Kind != host.KindScalar || value.Scalar != 50 {
		t.Fatalf("unexpected value: %+v", value)
	}

	if err := client.SetValue(ctx, target, host.ScalarValue(75)); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if got := fake.Values[target].Scalar; got != 75 {
		t.Fatalf("value = %v after SetValue, want 75", got)
	}
}

func TestRoundTripKeyframesAndTimeline(t *testing.T) {
	client, fake := newRoundTrip(t)
	ctx := context.Background()
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}

	if err := client.InsertKeyframe(ctx, target, host.Keyframe{Time: 1, Value: host.ScalarValue(10)}); err != nil {
		t.Fatalf("InsertKeyframe failed: %v", err)
	}
	keys, err := client.Keyframes(ctx, target)
	if err != nil {
		t.Fatalf("Keyframes failed: %v", err)
	}
	if len(keys) != 1 || keys[0].Time != 1 {
		t.Fatalf("unexpected keyframes: %+v", keys)
	}

	if err := client.RemoveKeyframe(ctx, target, 1); err != nil {
		t.Fatalf("RemoveKeyframe failed: %v", err)
	}
	if len(fake.KeyframeLists[target]) != 0 {
		t.Fatal("keyframe not removed")
	}

	if err := client.SetPlayhead(ctx, 12); err != nil {
		t.Fatalf("SetPlayhead failed: %v", err)
	}
	timeline, err := client.Timeline(ctx)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if timeline.Time != 12 {
		t.Fatalf("playhead = %v, want 12", timeline.Time)
	}
}

func TestRoundTripErrorPropagates(t *testing.T) {
	client, _ := newRoundTrip(t)

	_, err := client.Properties(context.Background(), "e-nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown entity")
	}
}
