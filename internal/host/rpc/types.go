package rpc

import "dialbridge/internal/host"

// Wire types for the host capability service. The in-application plugin
// registers the server side; dialbridged dials the client side.

type EmptyRequest struct{}

type ContainersResponse struct {
	Containers []host.Container `json:"containers"`
}

type SelectedContainerResponse struct {
	// Selected is nil when the application has no selection.
	Selected *host.Container `json:"selected,omitempty"`
}

type SelectContainerRequest struct {
	ID string `json:"id"`
}

type EntitiesRequest struct {
	ContainerID string `json:"container_id"`
}

type EntitiesResponse struct {
	Entities []host.Entity `json:"entities"`
}

type SelectEntityRequest struct {
	ContainerID string `json:"container_id"`
	Index       int    `json:"index"`
}

type PropertiesRequest struct {
	EntityID string `json:"entity_id"`
}

type PropertiesResponse struct {
	Properties []host.Property `json:"properties"`
}

type ValueRequest struct {
	Target host.Target `json:"target"`
}

type ValueResponse struct {
	Value host.Value `json:"value"`
}

type SetValueRequest struct {
	Target host.Target `json:"target"`
	Value  host.Value  `json:"value"`
}

type ValueAtTimeRequest struct {
	Target host.Target `json:"target"`
	At     float64     `json:"at"`
}

type SetValueAtTimeRequest struct {
	Target host.Target `json:"target"`
	At     float64     `json:"at"`
	Value  host.Value  `json:"value"`
}

type KeyframesRequest struct {
	Target host.Target `json:"target"`
}

type KeyframesResponse struct {
	Keyframes []host.Keyframe `json:"keyframes"`
}

type InsertKeyframeRequest struct {
	Target   host.Target   `json:"target"`
	Keyframe host.Keyframe `json:"keyframe"`
}

type RemoveKeyframeRequest struct {
	Target host.Target `json:"target"`
	At     float64     `json:"at"`
}

type TimelineResponse struct {
	Timeline host.Timeline `json:"timeline"`
}

type SetPlayheadRequest struct {
	At float64 `json:"at"`
}

type EmptyResponse struct{}
