package testsupport

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"dialbridge/internal/host"
)

// FakeHost is an in-memory host.Capability with deterministic behavior. It
// is safe for concurrent use so RPC round-trip tests can share one instance.
type FakeHost struct {
	mu sync.Mutex

	ContainerList []host.Container
	EntityLists   map[string][]host.Entity
	PropertyLists map[string][]host.Property

	SelectedID     string
	SelectedEntity map[string]int

	Values        map[host.Target]host.Value
	KeyframeLists map[host.Target][]host.Keyframe

	Playhead host.Timeline

	// Fail, when set, makes every call return this error. Used to
	// exercise HostAPIFailure handling.
	Fail error
}

// NewFakeHost returns an empty fake with initialized maps and a one-minute
// timeline at 30 fps.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		EntityLists:    map[string][]host.Entity{},
		PropertyLists:  map[string][]host.Property{},
		SelectedEntity: map[string]int{},
		Values:         map[host.Target]host.Value{},
		KeyframeLists:  map[host.Target][]host.Keyframe{},
		Playhead:       host.Timeline{Time: 0, Duration: 60, FrameLength: 1.0 / 30},
	}
}

func (f *FakeHost) Containers(context.Context) ([]host.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	out := make([]host.Container, len(f.ContainerList))
	copy(out, f.ContainerList)
	return out, nil
}

func (f *FakeHost) SelectedContainer(context.Context) (*host.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	for _, c := range f.ContainerList {
		if c.ID == f.SelectedID {
			sel := c
			return &sel, nil
		}
	}
	return nil, nil
}

func (f *FakeHost) SelectContainer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	for _, c := range f.ContainerList {
		if c.ID == id {
			f.SelectedID = id
			return nil
		}
	}
	return fmt.Errorf("container %q not found", id)
}

func (f *FakeHost) Entities(_ context.Context, containerID string) ([]host.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	out := make([]host.Entity, len(f.EntityLists[containerID]))
	copy(out, f.EntityLists[containerID])
	return out, nil
}

func (f *FakeHost) SelectEntity(_ context.Context, containerID string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	entities := f.EntityLists[containerID]
	if index < 0 || index >= len(entities) {
		return fmt.Errorf("entity index %d out of range for container %q", index, containerID)
	}
	f.SelectedEntity[containerID] = index
	return nil
}

func (f *FakeHost) Properties(_ context.Context, entityID string) ([]host.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	props, ok := f.PropertyLists[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %q not found", entityID)
	}
	out := make([]host.Property, len(props))
	copy(out, props)
	return out, nil
}

func (f *FakeHost) Value(_ context.Context, t host.Target) (host.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return host.Value{}, f.Fail
	}
	v, ok := f.Values[t]
	if !ok {
		return host.Value{}, fmt.Errorf("property %q not found on %q", t.PropertyID, t.ContainerID)
	}
	return v.Clone(), nil
}

func (f *FakeHost) SetValue(_ context.Context, t host.Target, v host.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	if _, ok := f.Values[t]; !ok {
		return fmt.Errorf("property %q not found on %q", t.PropertyID, t.ContainerID)
	}
	f.Values[t] = v.Clone()
	return nil
}

func (f *FakeHost) ValueAtTime(ctx context.Context, t host.Target, at float64) (host.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return host.Value{}, f.Fail
	}
	for _, k := range f.KeyframeLists[t] {
		if math.Abs(k.Time-at) < 1e-9 {
			return k.Value.Clone(), nil
		}
	}
	v, ok := f.Values[t]
	if !ok {
		return host.Value{}, fmt.Errorf("property %q not found on %q", t.PropertyID, t.ContainerID)
	}
	return v.Clone(), nil
}

func (f *FakeHost) SetValueAtTime(_ context.Context, t host.Target, at float64, v host.Value) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	f.insertKeyframeLocked(t, host.Keyframe{Time: at, Value: v.Clone()})
	return nil
}

func (f *FakeHost) Keyframes(_ context.Context, t host.Target) ([]host.Keyframe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	keys := f.KeyframeLists[t]
	out := make([]host.Keyframe, len(keys))
	copy(out, keys)
	return out, nil
}

func (f *FakeHost) InsertKeyframe(_ context.Context, t host.Target, k host.Keyframe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	f.insertKeyframeLocked(t, host.Keyframe{Time: k.Time, Value: k.Value.Clone()})
	return nil
}

func (f *FakeHost) RemoveKeyframe(_ context.Context, t host.Target, at float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	keys := f.KeyframeLists[t]
	for i, k := range keys {
		if math.Abs(k.Time-at) < 1e-9 {
			f.KeyframeLists[t] = append(keys[:i:i], keys[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no keyframe at %v", at)
}

func (f *FakeHost) Timeline(context.Context) (host.Timeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return host.Timeline{}, f.Fail
	}
	return f.Playhead, nil
}

func (f *FakeHost) SetPlayhead(_ context.Context, at float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return f.Fail
	}
	f.Playhead.Time = at
	return nil
}

func (f *FakeHost) insertKeyframeLocked(t host.Target, k host.Keyframe) {
	keys := f.KeyframeLists[t]
	for i := range keys {
		if math.Abs(keys[i].Time-k.Time) < 1e-9 {
			keys[i].Value = k.Value
			return
		}
	}
	keys = append(keys, k)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	f.KeyframeLists[t] = keys
}

// Seed populates a minimal two-container scene used by most tests:
// container "c1" (selected) holds entities "Glow" and "Blur"; Glow exposes
// Opacity (scalar) and Color (color-like vector).
func (f *FakeHost) Seed() {
	f.ContainerList = []host.Container{
		{ID: "c1", Name: "Layer 1"},
		{ID: "c2", Name: "Layer 2"},
	}
	f.SelectedID = "c1"
	f.EntityLists["c1"] = []host.Entity{
		{ID: "e-glow", Name: "Glow"},
		{ID: "e-blur", Name: "Blur"},
	}
	f.EntityLists["c2"] = []host.Entity{
		{ID: "e-tint", Name: "Tint"},
	}
	f.PropertyLists["e-glow"] = []host.Property{
		{ID: "p-opacity", Name: "Opacity"},
		{ID: "p-color", Name: "Color"},
	}
	f.PropertyLists["e-blur"] = []host.Property{
		{ID: "p-radius", Name: "Radius"},
	}
	f.PropertyLists["e-tint"] = []host.Property{
		{ID: "p-amount", Name: "Amount"},
	}
	f.Values[host.Target{ContainerID: "e-glow", PropertyID: "p-opacity"}] = host.ScalarValue(50)
	f.Values[host.Target{ContainerID: "e-glow", PropertyID: "p-color"}] = host.VectorValue(true, 0.95, 0.5, 0.5, 1)
	f.Values[host.Target{ContainerID: "e-blur", PropertyID: "p-radius"}] = host.ScalarValue(4)
	f.Values[host.Target{ContainerID: "e-tint", PropertyID: "p-amount"}] = host.ScalarValue(0.5)
}
