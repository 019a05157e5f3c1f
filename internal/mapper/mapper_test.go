package mapper

import (
	"context"
	"errors"
	"testing"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/testsupport"
)

func newTestMapper(t *testing.T) (*Mapper, *testsupport.FakeHost) {
	t.Helper()
	fake := testsupport.NewFakeHost()
	fake.Seed()
	return New(fake, 0.01, logging.NewNop()), fake
}

func TestApplyScalarAddsScaledDelta(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}

	// Dial moved 5 counts at sensitivity 0.1.
	if err := m.Apply(context.Background(), target, 5, 0.1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	v := fake.Values[target]
	if v.Scalar != 50.5 {
		t.Fatalf("scalar = %v, want 50.5", v.Scalar)
	}
}

func TestApplyColorLikeVectorClampsToOne(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-color"}

	if err := m.Apply(context.Background(), target, 10, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	v := fake.Values[target]
	if v.Vector[0] != 1.0 {
		t.Fatalf("first component = %v, want 1.0 (clamped)", v.Vector[0])
	}
	if v.Vector[1] != 0.5 || v.Vector[2] != 0.5 || v.Vector[3] != 1 {
		t.Fatalf("other components must be untouched: %v", v.Vector)
	}
}

func TestApplyColorLikeVectorClampsToZero(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-color"}

	if err := m.Apply(context.Background(), target, -200, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if v := fake.Values[target]; v.Vector[0] != 0 {
		t.Fatalf("first component = %v, want 0 (clamped)", v.Vector[0])
	}
}

func TestApplyPlainVectorUnclamped(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-blur", PropertyID: "p-anchor"}
	fake.Values[target] = host.VectorValue(false, 100, 200)

	if err := m.Apply(context.Background(), target, 30, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	v := fake.Values[target]
	if v.Vector[0] != 130 || v.Vector[1] != 200 {
		t.Fatalf("vector = %v, want [130 200]", v.Vector)
	}
}

func TestApplyUnsupportedValueNoMutation(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-blur", PropertyID: "p-mode"}
	fake.Values[target] = host.Value{Kind: host.KindUnsupported}

	err := m.Apply(context.Background(), target, 5, 1)
	if !errors.Is(err, faults.ErrUnsupportedValue) {
		t.Fatalf("expected unsupported value error, got %v", err)
	}
	if fake.Values[target].Kind != host.KindUnsupported {
		t.Fatal("unsupported target must not be mutated")
	}
}

func TestApplyKeyframedPropertyWritesAtPlayhead(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}
	fake.KeyframeLists[target] = []host.Keyframe{
		{Time: 0, Value: host.ScalarValue(0)},
		{Time: 2, Value: host.ScalarValue(100)},
	}
	fake.Playhead.Time = 2

	if err := m.Apply(context.Background(), target, 5, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// The static value is untouched; the keyframe at the playhead took the
	// delta.
	if fake.Values[target].Scalar != 50 {
		t.Fatalf("static value mutated: %v", fake.Values[target].Scalar)
	}
	keys := fake.KeyframeLists[target]
	if len(keys) != 2 {
		t.Fatalf("keyframe count = %d, want 2", len(keys))
	}
	if keys[1].Value.Scalar != 105 {
		t.Fatalf("keyframe value = %v, want 105", keys[1].Value.Scalar)
	}
	if keys[0].Value.Scalar != 0 {
		t.Fatalf("untouched keyframe changed: %v", keys[0].Value.Scalar)
	}
}

func TestApplyKeyframedBetweenKeyframesInsertsNew(t *testing.T) {
	m, fake := newTestMapper(t)
	target := host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}
	fake.KeyframeLists[target] = []host.Keyframe{
		{Time: 0, Value: host.ScalarValue(10)},
	}
	fake.Playhead.Time = 1

	if err := m.Apply(context.Background(), target, 2, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	keys := fake.KeyframeLists[target]
	if len(keys) != 2 {
		t.Fatalf("keyframe count = %d, want 2", len(keys))
	}
	if keys[1].Time != 1 {
		t.Fatalf("new keyframe time = %v, want 1", keys[1].Time)
	}
}

func TestApplyHostFailureIsHostAPIError(t *testing.T) {
	m, fake := newTestMapper(t)
	fake.Fail = errors.New("socket gone")

	err := m.Apply(context.Background(), host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}, 1, 1)
	if !errors.Is(err, faults.ErrHostAPI) {
		t.Fatalf("expected host API error, got %v", err)
	}
}

func TestScrubMovesPlayheadByFrames(t *testing.T) {
	m, fake := newTestMapper(t)
	fake.Playhead.Time = 1

	if err := m.Scrub(context.Background(), 30, 1); err != nil {
		t.Fatalf("Scrub failed: %v", err)
	}
	if got, want := fake.Playhead.Time, 2.0; got != want {
		t.Fatalf("playhead = %v, want %v", got, want)
	}
}

func TestScrubClampsToTimelineBounds(t *testing.T) {
	m, fake := newTestMapper(t)

	if err := m.Scrub(context.Background(), -1000, 1); err != nil {
		t.Fatalf("Scrub failed: %v", err)
	}
	if fake.Playhead.Time != 0 {
		t.Fatalf("playhead = %v, want 0", fake.Playhead.Time)
	}

	if err := m.Scrub(context.Background(), 1e9, 1); err != nil {
		t.Fatalf("Scrub failed: %v", err)
	}
	if want := 60 - 1.0/30; fake.Playhead.Time != want {
		t.Fatalf("playhead = %v, want %v", fake.Playhead.Time, want)
	}
}
