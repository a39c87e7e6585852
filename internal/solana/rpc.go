package solana

import "context"

// RPCClient defines the subset of the Solana RPC HTTP interface used by the monitor.
type RPCClient interface {
	// GetAccountInfo retrieves an account by public key.
	// Returns nil, nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string, opts *AccountInfoOpts) (*AccountInfo, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// Commitment levels accepted by the RPC node.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)
