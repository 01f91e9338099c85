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

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Minute.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Minute.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Minute.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Minute.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Minute.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Minute.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MeetingsList returns meetings optionally filtered by statuses.
func (c *Client) MeetingsList(statuses []string) (*MeetingsListResponse, error) {
	var resp MeetingsListResponse
	req := MeetingsListRequest{Statuses: statuses}
	if err := c.client.Call("Minute.MeetingsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MeetingDescribe returns details for a single meeting.
func (c *Client) MeetingDescribe(id int64) (*MeetingDescribeResponse, error) {
	var resp MeetingDescribeResponse
	req := MeetingDescribeRequest{ID: id}
	if err := c.client.Call("Minute.MeetingDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MeetingRemove deletes meetings by ID.
func (c *Client) MeetingRemove(ids []int64) (*MeetingRemoveResponse, error) {
	var resp MeetingRemoveResponse
	req := MeetingRemoveRequest{IDs: ids}
	if err := c.client.Call("Minute.MeetingRemove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsList returns queued webhook events in the given state.
func (c *Client) EventsList(status string) (*EventsListResponse, error) {
	var resp EventsListResponse
	req := EventsListRequest{Status: status}
	if err := c.client.Call("Minute.EventsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsRetry retries failed webhook events.
func (c *Client) EventsRetry(ids []int64) (*EventsRetryResponse, error) {
	var resp EventsRetryResponse
	req := EventsRetryRequest{IDs: ids}
	if err := c.client.Call("Minute.EventsRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MeetingHealth returns meeting and event queue diagnostics.
func (c *Client) MeetingHealth() (*MeetingHealthResponse, error) {
	var resp MeetingHealthResponse
	if err := c.client.Call("Minute.MeetingHealth", MeetingHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
