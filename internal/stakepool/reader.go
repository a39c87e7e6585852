package stakepool

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"stakepool-monitor/internal/domain"
	solrpc "stakepool-monitor/internal/solana"
)

// ErrAccountNotFound is returned when the RPC node has no account at the address.
var ErrAccountNotFound = errors.New("account not found")

// Reader fetches stake pool accounts over RPC.
type Reader struct {
	rpc        solrpc.RPCClient
	commitment string
}

// ReaderOption configures Reader.
type ReaderOption func(*Reader)

// WithCommitment sets the commitment level used for account reads.
func WithCommitment(commitment string) ReaderOption {
	return func(r *Reader) {
		r.commitment = commitment
	}
}

// NewReader creates a Reader backed by the given RPC client.
func NewReader(rpc solrpc.RPCClient, opts ...ReaderOption) *Reader {
	r := &Reader{
		rpc:        rpc,
		commitment: solrpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch reads the account at pubkey and decodes its stake pool payload.
func (r *Reader) Fetch(ctx context.Context, pubkey solana.PublicKey) (*domain.RemoteSnapshot, error) {
	info, err := r.rpc.GetAccountInfo(ctx, pubkey.String(), &solrpc.AccountInfoOpts{Commitment: r.commitment})
	if err != nil {
		return nil, fmt.Errorf("get account info %s: %w", pubkey, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
	}

	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner %q: %w", info.Owner, err)
	}

	data, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}

	pool, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return &domain.RemoteSnapshot{
		Pubkey:   pubkey,
		Lamports: info.Lamports,
		Owner:    owner,
		Data:     pool,
		Slot:     info.Slot,
	}, nil
}
