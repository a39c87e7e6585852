package ingestion

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/guregu/null"

	"stakepool-monitor/internal/domain"
)

// Transform maps a fetched snapshot to a storable row stamped with now in UTC.
// It does not validate pool state beyond the account being an initialized stake pool.
func Transform(snap *domain.RemoteSnapshot, now time.Time) (*domain.SnapshotRow, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if snap.Pubkey.IsZero() {
		return nil, fmt.Errorf("%w: missing pubkey", ErrInvalidSnapshot)
	}
	if snap.Owner.IsZero() {
		return nil, fmt.Errorf("%w: missing owner", ErrInvalidSnapshot)
	}
	p := snap.Data
	if p == nil {
		return nil, fmt.Errorf("%w: missing stake pool data", ErrInvalidSnapshot)
	}
	if p.AccountType != domain.AccountTypeStakePool {
		return nil, fmt.Errorf("%w: account type %d is not a stake pool", ErrInvalidSnapshot, p.AccountType)
	}

	return &domain.SnapshotRow{
		Pubkey:                                snap.Pubkey.String(),
		Lamports:                              u64(snap.Lamports),
		Owner:                                 snap.Owner.String(),
		AccountType:                           int16(p.AccountType),
		Manager:                               p.Manager.String(),
		Staker:                                p.Staker.String(),
		StakeDepositAuthority:                 p.StakeDepositAuthority.String(),
		StakeWithdrawBumpSeed:                 u64(uint64(p.StakeWithdrawBumpSeed)),
		ValidatorList:                         p.ValidatorList.String(),
		ReserveStake:                          p.ReserveStake.String(),
		PoolMint:                              p.PoolMint.String(),
		ManagerFeeAccount:                     p.ManagerFeeAccount.String(),
		TokenProgramID:                        p.TokenProgramID.String(),
		TotalLamports:                         u64(p.TotalLamports),
		PoolTokenSupply:                       u64(p.PoolTokenSupply),
		LastUpdateEpoch:                       u64(p.LastUpdateEpoch),
		Lockup:                                lockupValue(p.Lockup),
		EpochFee:                              feeValue(p.EpochFee),
		NextEpochFee:                          optionalFee(p.NextEpochFee),
		PreferredDepositValidatorVoteAddress:  optionalKey(p.PreferredDepositValidatorVoteAddress),
		PreferredWithdrawValidatorVoteAddress: optionalKey(p.PreferredWithdrawValidatorVoteAddress),
		StakeDepositFee:                       feeValue(p.StakeDepositFee),
		StakeWithdrawalFee:                    feeValue(p.StakeWithdrawalFee),
		NextStakeWithdrawalFee:                optionalFee(p.NextStakeWithdrawalFee),
		StakeReferralFee:                      u64(uint64(p.StakeReferralFee)),
		SolDepositAuthority:                   optionalKey(p.SolDepositAuthority),
		SolDepositFee:                         feeValue(p.SolDepositFee),
		SolReferralFee:                        u64(uint64(p.SolReferralFee)),
		SolWithdrawAuthority:                  optionalKey(p.SolWithdrawAuthority),
		SolWithdrawalFee:                      feeValue(p.SolWithdrawalFee),
		NextSolWithdrawalFee:                  optionalFee(p.NextSolWithdrawalFee),
		LastEpochPoolTokenSupply:              u64(p.LastEpochPoolTokenSupply),
		LastEpochTotalLamports:                u64(p.LastEpochTotalLamports),
		CollectedTime:                         now.UTC(),
	}, nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func feeValue(f domain.Fee) domain.FeeValue {
	return domain.FeeValue{
		Denominator: u64(f.Denominator),
		Numerator:   u64(f.Numerator),
	}
}

func optionalFee(f *domain.Fee) *domain.FeeValue {
	if f == nil {
		return nil
	}
	v := feeValue(*f)
	return &v
}

func optionalKey(k *solana.PublicKey) null.String {
	if k == nil {
		return null.String{}
	}
	return null.StringFrom(k.String())
}

func lockupValue(l domain.Lockup) domain.LockupValue {
	return domain.LockupValue{
		UnixTimestamp: strconv.FormatInt(l.UnixTimestamp, 10),
		Epoch:         u64(l.Epoch),
		Custodian:     l.Custodian.String(),
	}
}
