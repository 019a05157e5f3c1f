// Package host defines the narrow capability surface dialbridge consumes
// from the creative application. The engine never talks to the application
// directly; it is handed a Capability, so the in-process fake used by tests
// and the socket-backed adapter in host/rpc are interchangeable.
package host

import "context"

// Container is a selectable top-level item in the application's hierarchy,
// e.g. a layer in the active composition.
type Container struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Entity is a stackable sub-object inside a container, e.g. an effect on a
// layer. Entity IDs are addressable application-wide.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Property is an addressable numeric or vector parameter of an entity.
type Property struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Target addresses one parameter: the entity that owns it and the property.
type Target struct {
	ContainerID string `json:"container_id"`
	PropertyID  string `json:"property_id"`
}

// Keyframe is a timestamped value on a property's timeline.
type Keyframe struct {
	Time  float64 `json:"time"`
	Value Value   `json:"value"`
}

// Timeline describes the playhead state of the active composition.
type Timeline struct {
	Time        float64 `json:"time"`
	Duration    float64 `json:"duration"`
	FrameLength float64 `json:"frame_length"`
}

// Capability is the injected surface the engine drives. All calls are
// synchronous; implementations report failures as error values, never
// panics. Callers tag errors with faults.ErrHostAPI.
type Capability interface {
	// Containers enumerates sibling selectable items.
	Containers(ctx context.Context) ([]Container, error)
	// SelectedContainer returns the current selection, or nil when the
	// application has none.
	SelectedContainer(ctx context.Context) (*Container, error)
	// SelectContainer makes the identified container the selection.
	SelectContainer(ctx context.Context, id string) error

	// Entities enumerates the sub-objects of a container.
	Entities(ctx context.Context, containerID string) ([]Entity, error)
	// SelectEntity focuses the index-th entity of a container.
	SelectEntity(ctx context.Context, containerID string, index int) error
	// Properties enumerates the addressable parameters of an entity.
	Properties(ctx context.Context, entityID string) ([]Property, error)

	Value(ctx context.Context, t Target) (Value, error)
	SetValue(ctx context.Context, t Target, v Value) error
	ValueAtTime(ctx context.Context, t Target, at float64) (Value, error)
	SetValueAtTime(ctx context.Context, t Target, at float64, v Value) error

	Keyframes(ctx context.Context, t Target) ([]Keyframe, error)
	InsertKeyframe(ctx context.Context, t Target, k Keyframe) error
	RemoveKeyframe(ctx context.Context, t Target, at float64) error

	Timeline(ctx context.Context) (Timeline, error)
	SetPlayhead(ctx context.Context, at float64) error
}
