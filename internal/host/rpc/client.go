package rpc

import (
	"context"
	"net"
	stdrpc "net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"dialbridge/internal/host"
)

// Client is a host.Capability backed by the unix-socket service. Calls are
// synchronous; the context is accepted for interface parity but net/rpc
// carries no cancellation.
type Client struct {
	conn   net.Conn
	client *stdrpc.Client
}

var _ host.Capability = (*Client)(nil)

// Dial connects to the host capability socket.
func Dial(path string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:   conn,
		client: stdrpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) Containers(context.Context) ([]host.Container, error) {
	var resp ContainersResponse
	if err := c.client.Call(serviceName+".Containers", EmptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Containers, nil
}

func (c *Client) SelectedContainer(context.Context) (*host.Container, error) {
	var resp SelectedContainerResponse
	if err := c.client.Call(serviceName+".SelectedContainer", EmptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Selected, nil
}

func (c *Client) SelectContainer(_ context.Context, id string) error {
	return c.client.Call(serviceName+".SelectContainer", SelectContainerRequest{ID: id}, &EmptyResponse{})
}

func (c *Client) Entities(_ context.Context, containerID string) ([]host.Entity, error) {
	var resp EntitiesResponse
	if err := c.client.Call(serviceName+".Entities", EntitiesRequest{ContainerID: containerID}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (c *Client) SelectEntity(_ context.Context, containerID string, index int) error {
	return c.client.Call(serviceName+".SelectEntity", SelectEntityRequest{ContainerID: containerID, Index: index}, &EmptyResponse{})
}

func (c *Client) Properties(_ context.Context, entityID string) ([]host.Property, error) {
	var resp PropertiesResponse
	if err := c.client.Call(serviceName+".Properties", PropertiesRequest{EntityID: entityID}, &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

func (c *Client) Value(_ context.Context, t host.Target) (host.Value, error) {
	var resp ValueResponse
	if err := c.client.Call(serviceName+".Value", ValueRequest{Target: t}, &resp); err != nil {
		return host.Value{}, err
	}
	return resp.Value, nil
}

func (c *Client) SetValue(_ context.Context, t host.Target, v host.Value) error {
	return c.client.Call(serviceName+".SetValue", SetValueRequest{Target: t, Value: v}, &EmptyResponse{})
}

func (c *Client) ValueAtTime(_ context.Context, t host.Target, at float64) (host.Value, error) {
	var resp ValueResponse
	if err := c.client.Call(serviceName+".ValueAtTime", ValueAtTimeRequest{Target: t, At: at}, &resp); err != nil {
		return host.Value{}, err
	}
	return resp.Value, nil
}

func (c *Client) SetValueAtTime(_ context.Context, t host.Target, at float64, v host.Value) error {
	return c.client.Call(serviceName+".SetValueAtTime", SetValueAtTimeRequest{Target: t, At: at, Value: v}, &EmptyResponse{})
}

func (c *Client) Keyframes(_ context.Context, t host.Target) ([]host.Keyframe, error) {
	var resp KeyframesResponse
	if err := c.client.Call(serviceName+".Keyframes", KeyframesRequest{Target: t}, &resp); err != nil {
		return nil, err
	}
	return resp.Keyframes, nil
}

func (c *Client) InsertKeyframe(_ context.Context, t host.Target, k host.Keyframe) error {
	return c.client.Call(serviceName+".InsertKeyframe", InsertKeyframeRequest{Target: t, Keyframe: k}, &EmptyResponse{})
}

func (c *Client) RemoveKeyframe(_ context.Context, t host.Target, at float64) error {
	return c.client.Call(serviceName+".RemoveKeyframe", RemoveKeyframeRequest{Target: t, At: at}, &EmptyResponse{})
}

func (c *Client) Timeline(context.Context) (host.Timeline, error) {
	var resp TimelineResponse
	if err := c.client.Call(serviceName+".Timeline", EmptyRequest{}, &resp); err != nil {
		return host.Timeline{}, err
	}
	return resp.Timeline, nil
}

func (c *Client) SetPlayhead(_ context.Context, at float64) error {
	return c.client.Call(serviceName+".SetPlayhead", SetPlayheadRequest{At: at}, &EmptyResponse{})
}
