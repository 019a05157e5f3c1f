package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
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

// Start requests the daemon to start the engine.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("DialBridge.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop the engine.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("DialBridge.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status(includeRaw bool) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("DialBridge.Status", StatusRequest{IncludeRaw: includeRaw}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reset zeroes the accumulated position record.
func (c *Client) Reset() (*ResetResponse, error) {
	var resp ResetResponse
	if err := c.client.Call("DialBridge.Reset", ResetRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingList returns identities with persisted mappings.
func (c *Client) MappingList() (*MappingListResponse, error) {
	var resp MappingListResponse
	if err := c.client.Call("DialBridge.MappingList", MappingListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingShow returns the button assignments for one identity.
func (c *Client) MappingShow(identity string) (*MappingShowResponse, error) {
	var resp MappingShowResponse
	if err := c.client.Call("DialBridge.MappingShow", MappingShowRequest{Identity: identity}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingAssign binds a button to a property for an identity.
func (c *Client) MappingAssign(req MappingAssignRequest) (*MappingAssignResponse, error) {
	var resp MappingAssignResponse
	if err := c.client.Call("DialBridge.MappingAssign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingUnassign removes a button binding.
func (c *Client) MappingUnassign(identity string, button int) (*MappingUnassignResponse, error) {
	var resp MappingUnassignResponse
	req := MappingUnassignRequest{Identity: identity, Button: button}
	if err := c.client.Call("DialBridge.MappingUnassign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingExport writes a mapping record to an arbitrary path.
func (c *Client) MappingExport(identity, path string) (*MappingExportResponse, error) {
	var resp MappingExportResponse
	req := MappingExportRequest{Identity: identity, Path: path}
	if err := c.client.Call("DialBridge.MappingExport", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MappingImport reads a mapping record from a path.
func (c *Client) MappingImport(path string) (*MappingImportResponse, error) {
	var resp MappingImportResponse
	if err := c.client.Call("DialBridge.MappingImport", MappingImportRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
