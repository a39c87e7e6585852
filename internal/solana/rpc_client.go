package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"stakepool-monitor/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Failure reasons reported per RPC method.
const (
	failTransport   = "transport"
	failRateLimited = "rate_limited"
	failStatus      = "status"
	failRPC         = "rpc"
	failDecode      = "decode"
)

// callError is a failed attempt tagged with its reason.
type callError struct {
	reason    string
	retryable bool
	err       error
}

// call performs a JSON-RPC call, retrying transport and HTTP-level failures
// with exponential backoff. JSON-RPC errors and undecodable results are final.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var last *callError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(time.Duration(float64(delay)*c.backoffMult), c.maxDelay)
		}

		raw, cerr := c.attempt(ctx, body)
		if cerr == nil {
			return c.decode(method, raw, result)
		}
		observability.RecordRPCFailure(method, cerr.reason)
		if !cerr.retryable || ctx.Err() != nil {
			return cerr.err
		}
		last = cerr
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, last.err)
}

// attempt sends one request and returns the raw result.
func (c *HTTPClient) attempt(ctx context.Context, body []byte) (json.RawMessage, *callError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &callError{reason: failTransport, err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &callError{reason: failTransport, retryable: true, err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &callError{reason: failTransport, retryable: true, err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &callError{reason: failRateLimited, retryable: true, err: errors.New("rate limited (429)")}
	case resp.StatusCode != http.StatusOK:
		return nil, &callError{reason: failStatus, retryable: true,
			err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, &callError{reason: failDecode, retryable: true, err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if rpcResp.Error != nil {
		return nil, &callError{reason: failRPC, err: rpcResp.Error}
	}
	return rpcResp.Result, nil
}

// decode unmarshals a successful result into out.
func (c *HTTPClient) decode(method string, raw json.RawMessage, out interface{}) error {
	if out == nil || raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(method, fmt.Errorf("unmarshal result: %w", err))
	}
	return nil
}

// fail records a result that arrived but could not be used.
func (c *HTTPClient) fail(method string, err error) error {
	observability.RecordRPCFailure(method, failDecode)
	return err
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string, opts *AccountInfoOpts) (*AccountInfo, error) {
	config := map[string]interface{}{
		"encoding": "base64",
	}
	if opts != nil && opts.Commitment != "" {
		config["commitment"] = opts.Commitment
	}
	params := []interface{}{pubkey, config}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
		Slot:       result.Context.Slot,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}
	if len(result.Value.Data) >= 2 && result.Value.Data[1] != "base64" {
		return nil, c.fail("getAccountInfo", fmt.Errorf("unexpected account data encoding %q", result.Value.Data[1]))
	}

	return info, nil
}

type getAccountInfoResult struct {
	Context getAccountInfoContext `json:"context"`
	Value   *getAccountInfoValue  `json:"value"`
}

type getAccountInfoContext struct {
	Slot uint64 `json:"slot"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)
