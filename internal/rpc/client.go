package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// requestTimeout bounds each RPC round trip.
const requestTimeout = 5 * time.Second

// requestID is the fixed id field of every JSON-RPC envelope.
const requestID = "vigil"

// Sentinel errors callers branch on.
var (
	// ErrAuthFailed means the node answered 401: wrong credentials or a
	// stale cookie from a previous node run.
	ErrAuthFailed = errors.New("rpc authentication failed (check bitcoin.conf credentials or .cookie file)")

	// ErrEmptyResult means the response carried neither error nor result.
	ErrEmptyResult = errors.New("rpc response had no result")
)

// TransportError wraps connection-level failures (node not listening,
// timeout). The staged shutdown falls back to signals on this class only.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NodeError carries a JSON-RPC error object returned by the node.
type NodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues JSON-RPC 1.0 calls to the local node.
type Client struct {
	http HTTPDoer
}

// NewClient returns a client with the standard 5 second timeout.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: requestTimeout}}
}

// NewClientWithDoer injects a custom HTTP client (primarily for tests).
func NewClientWithDoer(doer HTTPDoer) *Client {
	return &Client{http: doer}
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Call posts one JSON-RPC request to http://127.0.0.1:<port>/ with Basic
// authentication and returns the raw result.
func (c *Client) Call(ctx context.Context, auth Auth, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "1.0",
		ID:      requestID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding rpc request: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/", auth.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building rpc request: %w", err)
	}
	req.SetBasicAuth(auth.User, auth.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthFailed
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding rpc response: %w", err)}
	}

	if !rawNull(parsed.Error) {
		nodeErr := &NodeError{}
		if err := json.Unmarshal(parsed.Error, nodeErr); err != nil {
			nodeErr.Message = string(parsed.Error)
		}
		return nil, nodeErr
	}

	if rawNull(parsed.Result) {
		return nil, ErrEmptyResult
	}

	return parsed.Result, nil
}

// rawNull reports whether a raw JSON field is absent or the null literal.
func rawNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
