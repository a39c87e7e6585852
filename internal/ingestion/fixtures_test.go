package ingestion

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"stakepool-monitor/internal/domain"
)

var (
	stakePoolProgram = solana.MustPublicKeyFromBase58("SPoo1Ku8WFXoNDMHPsrGSTSG1Y47rzgn41SLUNakuHy")
	poolAddress      = key(200)
)

// key derives a deterministic, distinct public key for fixtures.
func key(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed + byte(i)
	}
	return pk
}

func ptr[T any](v T) *T {
	return &v
}

func sampleSnapshot() *domain.RemoteSnapshot {
	return &domain.RemoteSnapshot{
		Pubkey:   poolAddress,
		Lamports: ^uint64(0),
		Owner:    stakePoolProgram,
		Slot:     250_000_000,
		Data: &domain.StakePool{
			AccountType:           domain.AccountTypeStakePool,
			Manager:               key(1),
			Staker:                key(2),
			StakeDepositAuthority: key(3),
			StakeWithdrawBumpSeed: 254,
			ValidatorList:         key(4),
			ReserveStake:          key(5),
			PoolMint:              key(6),
			ManagerFeeAccount:     key(7),
			TokenProgramID:        key(8),
			TotalLamports:         9_007_199_254_740_993, // 2^53 + 1
			PoolTokenSupply:       ^uint64(0) - 1,
			LastUpdateEpoch:       712,
			Lockup: domain.Lockup{
				UnixTimestamp: -1,
				Epoch:         3,
				Custodian:     key(11),
			},
			EpochFee:                             domain.Fee{Denominator: 100, Numerator: 5},
			NextEpochFee:                         ptr(domain.Fee{Denominator: 1000, Numerator: 45}),
			PreferredDepositValidatorVoteAddress: ptr(key(9)),
			StakeDepositFee:                      domain.Fee{},
			StakeWithdrawalFee:                   domain.Fee{Denominator: 1000, Numerator: 1},
			StakeReferralFee:                     50,
			SolDepositFee:                        domain.Fee{Denominator: 10000, Numerator: 3},
			SolReferralFee:                       100,
			SolWithdrawAuthority:                 ptr(key(10)),
			SolWithdrawalFee:                     domain.Fee{Denominator: 10000, Numerator: 10},
			LastEpochPoolTokenSupply:             123456789,
			LastEpochTotalLamports:               987654321,
		},
	}
}

// fakeSource returns a fixed snapshot or error and counts calls.
type fakeSource struct {
	mu    sync.Mutex
	snap  *domain.RemoteSnapshot
	err   error
	panic any
	calls int
	last  solana.PublicKey
}

func (f *fakeSource) Fetch(ctx context.Context, pubkey solana.PublicKey) (*domain.RemoteSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.last = pubkey
	f.mu.Unlock()

	if f.panic != nil {
		panic(f.panic)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.snap, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingStore rejects every insert.
type failingStore struct {
	err error
}

func (s failingStore) Insert(context.Context, *domain.SnapshotRow) error {
	return s.err
}
