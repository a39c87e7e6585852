package stub

import (
	"context"
	"sync"

	"stakepool-monitor/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu       sync.Mutex
	Accounts map[string]*solana.AccountInfo
	Slot     int64

	// Err, when set, is returned by every call.
	Err error

	calls int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts: make(map[string]*solana.AccountInfo),
	}
}

// GetAccountInfo returns the stored account, or nil if it was never added.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string, _ *solana.AccountInfoOpts) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}
	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	infoCopy := *info
	return &infoCopy, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.Err != nil {
		return 0, c.Err
	}
	return c.Slot, nil
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}

// Calls returns the number of calls made so far.
func (c *RPCClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ solana.RPCClient = (*RPCClient)(nil)
