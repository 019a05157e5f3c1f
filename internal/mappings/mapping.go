package mappings

// Assignment binds one numbered button to a property of the mapped entity.
type Assignment struct {
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name,omitempty"`
}

// Mapping is the full button layout persisted for one entity identity.
type Mapping struct {
	Identity string             `json:"identity"`
	Buttons  map[int]Assignment `json:"buttons"`
}

// NewMapping returns an empty mapping for identity.
func NewMapping(identity string) Mapping {
	return Mapping{Identity: identity, Buttons: make(map[int]Assignment)}
}

// Clone returns a copy that shares no state with the receiver.
func (m Mapping) Clone() Mapping {
	out := Mapping{Identity: m.Identity, Buttons: make(map[int]Assignment, len(m.Buttons))}
	for button, a := range m.Buttons {
		out.Buttons[button] = a
	}
	return out
}

// Lookup returns the assignment for button, if any.
func (m Mapping) Lookup(button int) (Assignment, bool) {
	a, ok := m.Buttons[button]
	return a, ok
}
