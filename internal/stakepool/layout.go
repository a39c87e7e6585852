// Package stakepool reads and decodes SPL stake pool accounts.
package stakepool

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"stakepool-monitor/internal/domain"
)

// ErrInvalidOptionTag is returned when an Option or FutureEpoch tag is out of range.
var ErrInvalidOptionTag = errors.New("invalid option tag")

// Decode decodes stake pool account data (Borsh layout of the SPL stake pool program).
// Trailing bytes are ignored: accounts are allocated larger than the encoded state.
func Decode(data []byte) (*domain.StakePool, error) {
	var l accountLayout
	if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode stake pool: %w", err)
	}
	return &l.pool, nil
}

// accountLayout reads fields in on-chain order.
type accountLayout struct {
	pool domain.StakePool
}

func (l *accountLayout) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	p := &l.pool
	r := fieldReader{dec: dec}

	p.AccountType = r.u8("account_type")
	p.Manager = r.pubkey("manager")
	p.Staker = r.pubkey("staker")
	p.StakeDepositAuthority = r.pubkey("stake_deposit_authority")
	p.StakeWithdrawBumpSeed = r.u8("stake_withdraw_bump_seed")
	p.ValidatorList = r.pubkey("validator_list")
	p.ReserveStake = r.pubkey("reserve_stake")
	p.PoolMint = r.pubkey("pool_mint")
	p.ManagerFeeAccount = r.pubkey("manager_fee_account")
	p.TokenProgramID = r.pubkey("token_program_id")
	p.TotalLamports = r.u64("total_lamports")
	p.PoolTokenSupply = r.u64("pool_token_supply")
	p.LastUpdateEpoch = r.u64("last_update_epoch")
	p.Lockup = domain.Lockup{
		UnixTimestamp: r.i64("lockup.unix_timestamp"),
		Epoch:         r.u64("lockup.epoch"),
		Custodian:     r.pubkey("lockup.custodian"),
	}
	p.EpochFee = r.fee("epoch_fee")
	p.NextEpochFee = r.futureFee("next_epoch_fee")
	p.PreferredDepositValidatorVoteAddress = r.optionalPubkey("preferred_deposit_validator_vote_address")
	p.PreferredWithdrawValidatorVoteAddress = r.optionalPubkey("preferred_withdraw_validator_vote_address")
	p.StakeDepositFee = r.fee("stake_deposit_fee")
	p.StakeWithdrawalFee = r.fee("stake_withdrawal_fee")
	p.NextStakeWithdrawalFee = r.futureFee("next_stake_withdrawal_fee")
	p.StakeReferralFee = r.u8("stake_referral_fee")
	p.SolDepositAuthority = r.optionalPubkey("sol_deposit_authority")
	p.SolDepositFee = r.fee("sol_deposit_fee")
	p.SolReferralFee = r.u8("sol_referral_fee")
	p.SolWithdrawAuthority = r.optionalPubkey("sol_withdraw_authority")
	p.SolWithdrawalFee = r.fee("sol_withdrawal_fee")
	p.NextSolWithdrawalFee = r.futureFee("next_sol_withdrawal_fee")
	p.LastEpochPoolTokenSupply = r.u64("last_epoch_pool_token_supply")
	p.LastEpochTotalLamports = r.u64("last_epoch_total_lamports")

	return r.err
}

// fieldReader keeps the first error; reads after it are no-ops.
type fieldReader struct {
	dec *bin.Decoder
	err error
}

func (r *fieldReader) fail(field string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", field, err)
	}
}

func (r *fieldReader) u8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *fieldReader) u64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(bin.LE)
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *fieldReader) i64(field string) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(bin.LE)
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *fieldReader) pubkey(field string) solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.fail(field, err)
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *fieldReader) fee(field string) domain.Fee {
	return domain.Fee{
		Denominator: r.u64(field + ".denominator"),
		Numerator:   r.u64(field + ".numerator"),
	}
}

// optionalPubkey reads a Borsh Option<Pubkey>.
func (r *fieldReader) optionalPubkey(field string) *solana.PublicKey {
	switch tag := r.u8(field); {
	case r.err != nil:
		return nil
	case tag == 0:
		return nil
	case tag == 1:
		pk := r.pubkey(field)
		return &pk
	default:
		r.fail(field, fmt.Errorf("%w: %d", ErrInvalidOptionTag, tag))
		return nil
	}
}

// futureFee reads a FutureEpoch<Fee>: 0 = none, 1 = one epoch ahead, 2 = two epochs ahead.
func (r *fieldReader) futureFee(field string) *domain.Fee {
	switch tag := r.u8(field); {
	case r.err != nil:
		return nil
	case tag == 0:
		return nil
	case tag == 1, tag == 2:
		f := r.fee(field)
		return &f
	default:
		r.fail(field, fmt.Errorf("%w: %d", ErrInvalidOptionTag, tag))
		return nil
	}
}
