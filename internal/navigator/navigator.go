// Package navigator tracks the selection the dials operate on: which
// container, which entity inside it, and which of the entity's properties
// takes dial deltas. Directional buttons walk the collections cyclically;
// numbered buttons jump straight to a mapped property.
package navigator

import (
	"context"
	"fmt"
	"log/slog"

	"dialbridge/internal/faults"
	"dialbridge/internal/host"
	"dialbridge/internal/logging"
	"dialbridge/internal/mappings"
)

// State names the navigator's position in the selection hierarchy.
type State string

const (
	// StateNoContainer: the host reports no selectable containers at all.
	StateNoContainer State = "no_container"
	// StateNoSelection: containers exist but none is selected.
	StateNoSelection State = "no_selection"
	// StateContainerSelected: a container is selected but holds no entities
	// (or none is focused yet).
	StateContainerSelected State = "container_selected"
	// StateEntitySelected: an entity is focused and its properties are
	// addressable.
	StateEntitySelected State = "entity_selected"
)

// Navigator owns the selection indices. It is driven solely from the engine
// tick, so it carries no lock; Snapshot copies state out for IPC status.
type Navigator struct {
	host   host.Capability
	store  *mappings.Store
	logger *slog.Logger

	state        State
	containers   []host.Container
	containerIdx int
	entities     []host.Entity
	entityIdx    int
	properties   []host.Property
	propertyIdx  int
	identity     string
	mapping      mappings.Mapping
}

// Snapshot is a copy of the navigator's position for status reporting.
type Snapshot struct {
	State        State  `json:"state"`
	Container    string `json:"container,omitempty"`
	Entity       string `json:"entity,omitempty"`
	Property     string `json:"property,omitempty"`
	EntityCount  int    `json:"entity_count"`
	PropertyIdx  int    `json:"property_index"`
	MappedButton int    `json:"mapped_buttons"`
}

// New returns a navigator in StateNoContainer; call Refresh to enumerate.
func New(cap host.Capability, store *mappings.Store, logger *slog.Logger) *Navigator {
	return &Navigator{
		host:   cap,
		store:  store,
		logger: logging.NewComponentLogger(logger, "navigator"),
		state:  StateNoContainer,
	}
}

// Refresh re-enumerates the hierarchy from the host. It is called on start,
// after any host API failure, and when the application's own selection
// changed out from under the engine.
func (n *Navigator) Refresh(ctx context.Context) error {
	containers, err := n.host.Containers(ctx)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "enumerate containers", "", err)
	}
	n.containers = containers
	if len(containers) == 0 {
		n.reset(StateNoContainer)
		return nil
	}

	selected, err := n.host.SelectedContainer(ctx)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "read selection", "", err)
	}
	if selected == nil {
		n.reset(StateNoSelection)
		return nil
	}

	n.containerIdx = indexOfContainer(containers, selected.ID)
	return n.enterContainer(ctx, selected.ID)
}

// NextEntity focuses the following entity, wrapping past the end.
func (n *Navigator) NextEntity(ctx context.Context) error { return n.stepEntity(ctx, 1) }

// PrevEntity focuses the preceding entity, wrapping past the start.
func (n *Navigator) PrevEntity(ctx context.Context) error { return n.stepEntity(ctx, -1) }

// NextContainer selects the following container, wrapping past the end.
func (n *Navigator) NextContainer(ctx context.Context) error { return n.stepContainer(ctx, 1) }

// PrevContainer selects the preceding container, wrapping past the start.
func (n *Navigator) PrevContainer(ctx context.Context) error { return n.stepContainer(ctx, -1) }

// SelectPropertyByButton resolves button through the active identity's
// mapping and makes that property the dial target.
func (n *Navigator) SelectPropertyByButton(ctx context.Context, button int) error {
	if n.state != StateEntitySelected {
		return faults.Wrap(faults.ErrUnsupportedValue, "navigator", "select property", "no entity focused", nil)
	}
	assignment, ok := n.mapping.Lookup(button)
	if !ok {
		return faults.Wrap(faults.ErrUnsupportedValue, "navigator", "select property",
			fmt.Sprintf("button %d has no mapping for %q", button, n.identity), nil)
	}
	for i, p := range n.properties {
		if p.ID == assignment.PropertyID || (assignment.PropertyName != "" && p.Name == assignment.PropertyName) {
			n.propertyIdx = i
			n.logger.Debug("property selected by button",
				logging.Int(logging.FieldButton, button),
				logging.String(logging.FieldTarget, p.ID),
			)
			return nil
		}
	}
	return faults.Wrap(faults.ErrUnsupportedValue, "navigator", "select property",
		fmt.Sprintf("mapped property %q not present on %q", assignment.PropertyID, n.identity), nil)
}

// ResolveMapped returns the target bound to button without changing the
// active selection. Console channels address parameters this way.
func (n *Navigator) ResolveMapped(button int) (host.Target, bool) {
	if n.state != StateEntitySelected {
		return host.Target{}, false
	}
	assignment, ok := n.mapping.Lookup(button)
	if !ok {
		return host.Target{}, false
	}
	for _, p := range n.properties {
		if p.ID == assignment.PropertyID || (assignment.PropertyName != "" && p.Name == assignment.PropertyName) {
			return host.Target{ContainerID: n.entities[n.entityIdx].ID, PropertyID: p.ID}, true
		}
	}
	return host.Target{}, false
}

// ActiveTarget returns the parameter the dial currently drives.
func (n *Navigator) ActiveTarget() (host.Target, bool) {
	if n.state != StateEntitySelected || n.propertyIdx >= len(n.properties) {
		return host.Target{}, false
	}
	return host.Target{
		ContainerID: n.entities[n.entityIdx].ID,
		PropertyID:  n.properties[n.propertyIdx].ID,
	}, true
}

// Identity returns the focused entity's mapping identity.
func (n *Navigator) Identity() string { return n.identity }

// State returns the current navigation state.
func (n *Navigator) State() State { return n.state }

// Snapshot copies the position out for status reporting.
func (n *Navigator) Snapshot() Snapshot {
	snap := Snapshot{
		State:        n.state,
		EntityCount:  len(n.entities),
		PropertyIdx:  n.propertyIdx,
		MappedButton: len(n.mapping.Buttons),
	}
	if n.containerIdx < len(n.containers) {
		snap.Container = n.containers[n.containerIdx].Name
	}
	if n.state == StateEntitySelected {
		snap.Entity = n.entities[n.entityIdx].Name
		if n.propertyIdx < len(n.properties) {
			snap.Property = n.properties[n.propertyIdx].Name
		}
	}
	return snap
}

func (n *Navigator) stepEntity(ctx context.Context, dir int) error {
	if n.state != StateContainerSelected && n.state != StateEntitySelected {
		return nil
	}
	if len(n.entities) <= 1 {
		// Wraparound over 0 or 1 members is a no-op.
		return nil
	}
	next := wrap(n.entityIdx+dir, len(n.entities))
	containerID := n.containers[n.containerIdx].ID
	if err := n.host.SelectEntity(ctx, containerID, next); err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "select entity", "", err)
	}
	n.entityIdx = next
	return n.enterEntity(ctx)
}

func (n *Navigator) stepContainer(ctx context.Context, dir int) error {
	if len(n.containers) <= 1 {
		return nil
	}
	next := wrap(n.containerIdx+dir, len(n.containers))
	id := n.containers[next].ID
	if err := n.host.SelectContainer(ctx, id); err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "select container", "", err)
	}
	n.containerIdx = next
	return n.enterContainer(ctx, id)
}

// enterContainer enumerates the container's entities and focuses the first
// one when present.
func (n *Navigator) enterContainer(ctx context.Context, id string) error {
	entities, err := n.host.Entities(ctx, id)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "enumerate entities", "", err)
	}
	n.entities = entities
	n.entityIdx = 0
	if len(entities) == 0 {
		n.state = StateContainerSelected
		n.properties = nil
		n.propertyIdx = 0
		n.identity = ""
		n.mapping = mappings.Mapping{}
		return nil
	}
	return n.enterEntity(ctx)
}

// enterEntity loads the focused entity's properties and autoloads the
// mapping for its identity.
func (n *Navigator) enterEntity(ctx context.Context) error {
	entity := n.entities[n.entityIdx]
	properties, err := n.host.Properties(ctx, entity.ID)
	if err != nil {
		return faults.Wrap(faults.ErrHostAPI, "navigator", "enumerate properties", "", err)
	}
	n.properties = properties
	n.propertyIdx = 0
	n.state = StateEntitySelected

	if entity.Name != n.identity {
		n.identity = entity.Name
		mapping, err := n.store.Get(ctx, entity.Name)
		if err != nil {
			// A mapping read failure degrades numbered buttons but must not
			// block navigation.
			n.logger.Warn("mapping autoload failed",
				logging.String(logging.FieldIdentity, entity.Name),
				logging.Error(err),
			)
			mapping = mappings.NewMapping(entity.Name)
		}
		n.mapping = mapping
		n.logger.Debug("entity focused",
			logging.String(logging.FieldIdentity, entity.Name),
			logging.Int("mapped_buttons", len(mapping.Buttons)),
		)
	}
	return nil
}

func (n *Navigator) reset(state State) {
	n.state = state
	n.containerIdx = 0
	n.entities = nil
	n.entityIdx = 0
	n.properties = nil
	n.propertyIdx = 0
	n.identity = ""
	n.mapping = mappings.Mapping{}
}

func indexOfContainer(containers []host.Container, id string) int {
	for i, c := range containers {
		if c.ID == id {
			return i
		}
	}
	return 0
}

func wrap(i, size int) int {
	i %= size
	if i < 0 {
		i += size
	}
	return i
}
