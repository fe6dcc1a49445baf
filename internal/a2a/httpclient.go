package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client over HTTP JSON-RPC.
type HTTPClient struct {
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request HTTP timeout. Stage timeouts are enforced
// by the pipeline through the request context; this bounds a single call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a client with a five minute request timeout.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage calls message/send.
func (c *HTTPClient) SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, endpoint, MethodSendMessage, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask calls tasks/get.
func (c *HTTPClient) GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, endpoint, MethodGetTask, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks calls tasks/list.
func (c *HTTPClient) ListTasks(ctx context.Context, endpoint string, req ListTasksRequest) (*ListTasksResponse, error) {
	var resp ListTasksResponse
	if err := c.call(ctx, endpoint, MethodListTasks, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelTask calls tasks/cancel.
func (c *HTTPClient) CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error) {
	var task Task
	if err := c.call(ctx, endpoint, MethodCancelTask, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DiscoverAgent fetches the worker's card from AgentCardPath.
func (c *HTTPClient) DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error) {
	url := strings.TrimRight(baseURL, "/") + AgentCardPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("a2a: discover agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("a2a: discover agent: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("a2a: decode agent card: %w", err)
	}
	return &card, nil
}

func (c *HTTPClient) call(ctx context.Context, endpoint, method string, params, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("a2a: marshal params: %w", err)
	}

	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return fmt.Errorf("a2a: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("a2a: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("a2a: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("a2a: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("a2a: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("a2a: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return &RPCError{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("a2a: decode result: %w", err)
		}
	}
	return nil
}

// RPCError is a JSON-RPC error returned by a worker.
type RPCError struct {
	Method  string
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
