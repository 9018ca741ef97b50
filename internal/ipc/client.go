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

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// AssetList returns assets matching the filter.
func (c *Client) AssetList(req AssetListRequest) (*AssetListResponse, error) {
	return call[AssetListRequest, AssetListResponse](c, "AssetList", req)
}

// AssetDescribe fetches one asset by id.
func (c *Client) AssetDescribe(id string) (*AssetDescribeResponse, error) {
	return call[AssetDescribeRequest, AssetDescribeResponse](c, "AssetDescribe", AssetDescribeRequest{ID: id})
}

// Register creates an asset and optionally dispatches it.
func (c *Client) Register(req RegisterRequest) (*RegisterResponse, error) {
	return call[RegisterRequest, RegisterResponse](c, "Register", req)
}

// Dispatch submits a pending asset.
func (c *Client) Dispatch(id string, wait bool) (*JobResponse, error) {
	return call[JobRequest, JobResponse](c, "Dispatch", JobRequest{ID: id, Wait: wait})
}

// Retry resets a failed asset and submits it again.
func (c *Client) Retry(id string, wait bool) (*JobResponse, error) {
	return call[JobRequest, JobResponse](c, "Retry", JobRequest{ID: id, Wait: wait})
}

// RetryAll resubmits every asset matching the request.
func (c *Client) RetryAll(req RetryAllRequest) (*BulkResponse, error) {
	return call[RetryAllRequest, BulkResponse](c, "RetryAll", req)
}

// CancelStuck fails processing assets older than the threshold.
func (c *Client) CancelStuck(olderThanMinutes int) (*CancelResponse, error) {
	return call[CancelStuckRequest, CancelResponse](c, "CancelStuck", CancelStuckRequest{OlderThanMinutes: olderThanMinutes})
}

// CancelAll fails every processing asset.
func (c *Client) CancelAll() (*CancelResponse, error) {
	return call[CancelAllRequest, CancelResponse](c, "CancelAll", CancelAllRequest{})
}

// CustomEncode queues an on-demand variant.
func (c *Client) CustomEncode(req CustomEncodeRequest) (*JobResponse, error) {
	return call[CustomEncodeRequest, JobResponse](c, "CustomEncode", req)
}

// DispatchPending submits pending assets whose sources resolve.
func (c *Client) DispatchPending(container string) (*BulkResponse, error) {
	return call[DispatchPendingRequest, BulkResponse](c, "DispatchPending", DispatchPendingRequest{Container: container})
}

// RegenerateThumbnails re-extracts video thumbnails.
func (c *Client) RegenerateThumbnails(req ThumbnailsRequest) (*ThumbnailsResponse, error) {
	return call[ThumbnailsRequest, ThumbnailsResponse](c, "RegenerateThumbnails", req)
}

// DeleteAsset removes an asset and its files.
func (c *Client) DeleteAsset(id string) (*DeleteResponse, error) {
	return call[DeleteRequest, DeleteResponse](c, "DeleteAsset", DeleteRequest{ID: id})
}

// Reconcile runs the source-file reconciler.
func (c *Client) Reconcile(req ReconcileRequest) (*ReconcileResponse, error) {
	return call[ReconcileRequest, ReconcileResponse](c, "Reconcile", req)
}

// ErrorList returns ledger records.
func (c *Client) ErrorList(req ErrorListRequest) (*ErrorListResponse, error) {
	return call[ErrorListRequest, ErrorListResponse](c, "ErrorList", req)
}

// ErrorResolve marks a ledger record resolved or unresolved.
func (c *Client) ErrorResolve(id string, resolved bool) (*ErrorResolveResponse, error) {
	return call[ErrorResolveRequest, ErrorResolveResponse](c, "ErrorResolve", ErrorResolveRequest{ID: id, Resolved: resolved})
}

// NotifyTest publishes a test notification through the daemon.
func (c *Client) NotifyTest() (*NotifyTestResponse, error) {
	return call[NotifyTestRequest, NotifyTestResponse](c, "NotifyTest", NotifyTestRequest{})
}
