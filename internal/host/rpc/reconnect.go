package rpc

import (
	"context"
	"errors"
	stdrpc "net/rpc"
	"sync"
	"time"

	"dialbridge/internal/host"
)

// Reconnecting is a host.Capability that dials the socket lazily and
// re-dials after transport failures. The application restarting therefore
// costs a few failed ticks, not a daemon restart.
type Reconnecting struct {
	path    string
	timeout time.Duration

	mu     sync.Mutex
	client *Client
}

var _ host.Capability = (*Reconnecting)(nil)

// NewReconnecting wraps the capability socket at path.
func NewReconnecting(path string, timeout time.Duration) *Reconnecting {
	return &Reconnecting{path: path, timeout: timeout}
}

// Close drops the current connection, if any.
func (r *Reconnecting) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Reconnecting) call(serviceMethod string, args, reply any) error {
	r.mu.Lock()
	if r.client == nil {
		client, err := Dial(r.path, r.timeout)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.client = client
	}
	client := r.client
	r.mu.Unlock()

	err := client.client.Call(serviceMethod, args, reply)
	if err != nil && isTransportError(err) {
		r.mu.Lock()
		if r.client == client {
			_ = client.Close()
			r.client = nil
		}
		r.mu.Unlock()
	}
	return err
}

// isTransportError distinguishes a dead connection from an error the remote
// capability returned. Only the former invalidates the connection.
func isTransportError(err error) bool {
	var serverErr stdrpc.ServerError
	if errors.As(err, &serverErr) {
		return false
	}
	return true
}

func (r *Reconnecting) Containers(context.Context) ([]host.Container, error) {
	var resp ContainersResponse
	if err := r.call(serviceName+".Containers", EmptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Containers, nil
}

func (r *Reconnecting) SelectedContainer(context.Context) (*host.Container, error) {
	var resp SelectedContainerResponse
	if err := r.call(serviceName+".SelectedContainer", EmptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Selected, nil
}

func (r *Reconnecting) SelectContainer(_ context.Context, id string) error {
	return r.call(serviceName+".SelectContainer", SelectContainerRequest{ID: id}, &EmptyResponse{})
}

func (r *Reconnecting) Entities(_ context.Context, containerID string) ([]host.Entity, error) {
	var resp EntitiesResponse
	if err := r.call(serviceName+".Entities", EntitiesRequest{ContainerID: containerID}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (r *Reconnecting) SelectEntity(_ context.Context, containerID string, index int) error {
	return r.call(serviceName+".SelectEntity", SelectEntityRequest{ContainerID: containerID, Index: index}, &EmptyResponse{})
}

func (r *Reconnecting) Properties(_ context.Context, entityID string) ([]host.Property, error) {
	var resp PropertiesResponse
	if err := r.call(serviceName+".Properties", PropertiesRequest{EntityID: entityID}, &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

func (r *Reconnecting) Value(_ context.Context, t host.Target) (host.Value, error) {
	var resp ValueResponse
	if err := r.call(serviceName+".Value", ValueRequest{Target: t}, &resp); err != nil {
		return host.Value{}, err
	}
	return resp.Value, nil
}

func (r *Reconnecting) SetValue(_ context.Context, t host.Target, v host.Value) error {
	return r.call(serviceName+".SetValue", SetValueRequest{Target: t, Value: v}, &EmptyResponse{})
}

func (r *Reconnecting) ValueAtTime(_ context.Context, t host.Target, at float64) (host.Value, error) {
	var resp ValueResponse
	if err := r.call(serviceName+".ValueAtTime", ValueAtTimeRequest{Target: t, At: at}, &resp); err != nil {
		return host.Value{}, err
	}
	return resp.Value, nil
}

func (r *Reconnecting) SetValueAtTime(_ context.Context, t host.Target, at float64, v host.Value) error {
	return r.call(serviceName+".SetValueAtTime", SetValueAtTimeRequest{Target: t, At: at, Value: v}, &EmptyResponse{})
}

func (r *Reconnecting) Keyframes(_ context.Context, t host.Target) ([]host.Keyframe, error) {
	var resp KeyframesResponse
	if err := r.call(serviceName+".Keyframes", KeyframesRequest{Target: t}, &resp); err != nil {
		return nil, err
	}
	return resp.Keyframes, nil
}

func (r *Reconnecting) InsertKeyframe(_ context.Context, t host.Target, k host.Keyframe) error {
	return r.call(serviceName+".InsertKeyframe", InsertKeyframeRequest{Target: t, Keyframe: k}, &EmptyResponse{})
}

func (r *Reconnecting) RemoveKeyframe(_ context.Context, t host.Target, at float64) error {
	return r.call(serviceName+".RemoveKeyframe", RemoveKeyframeRequest{Target: t, At: at}, &EmptyResponse{})
}

func (r *Reconnecting) Timeline(context.Context) (host.Timeline, error) {
	var resp TimelineResponse
	if err := r.call(serviceName+".Timeline", EmptyRequest{}, &resp); err != nil {
		return host.Timeline{}, err
	}
	return resp.Timeline, nil
}

func (r *Reconnecting) SetPlayhead(_ context.Context, at float64) error {
	return r.call(serviceName+".SetPlayhead", SetPlayheadRequest{At: at}, &EmptyResponse{})
}
