package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/guregu/null"
)

// AccountTypeStakePool is the discriminator of an initialized stake pool account.
const AccountTypeStakePool uint8 = 1

// Fee is a fee rate expressed as numerator/denominator.
// Field order follows the on-chain layout (denominator first).
type Fee struct {
	Denominator uint64
	Numerator   uint64
}

// Lockup is the stake lockup applied to pool-owned stake accounts.
type Lockup struct {
	UnixTimestamp int64
	Epoch         uint64
	Custodian     solana.PublicKey
}

// StakePool is the decoded payload of a stake pool account.
// Optional fields are nil when absent on chain.
type StakePool struct {
	AccountType           uint8
	Manager               solana.PublicKey
	Staker                solana.PublicKey
	StakeDepositAuthority solana.PublicKey
	StakeWithdrawBumpSeed uint8
	ValidatorList         solana.PublicKey
	ReserveStake          solana.PublicKey
	PoolMint              solana.PublicKey
	ManagerFeeAccount     solana.PublicKey
	TokenProgramID        solana.PublicKey
	TotalLamports         uint64
	PoolTokenSupply       uint64
	LastUpdateEpoch       uint64
	Lockup                Lockup
	EpochFee              Fee
	NextEpochFee          *Fee

	PreferredDepositValidatorVoteAddress  *solana.PublicKey
	PreferredWithdrawValidatorVoteAddress *solana.PublicKey

	StakeDepositFee        Fee
	StakeWithdrawalFee     Fee
	NextStakeWithdrawalFee *Fee
	StakeReferralFee       uint8

	SolDepositAuthority  *solana.PublicKey
	SolDepositFee        Fee
	SolReferralFee       uint8
	SolWithdrawAuthority *solana.PublicKey
	SolWithdrawalFee     Fee
	NextSolWithdrawalFee *Fee

	LastEpochPoolTokenSupply uint64
	LastEpochTotalLamports   uint64
}

// RemoteSnapshot is one fetched view of the monitored account.
type RemoteSnapshot struct {
	Pubkey   solana.PublicKey
	Lamports uint64
	Owner    solana.PublicKey
	Data     *StakePool

	// Slot is the context slot the account was read at. Not persisted.
	Slot uint64
}

// FeeValue is the persisted form of a Fee. Integers are exact decimal strings.
type FeeValue struct {
	Denominator string `json:"denominator"`
	Numerator   string `json:"numerator"`
}

// LockupValue is the persisted form of a Lockup.
type LockupValue struct {
	UnixTimestamp string `json:"unixTimestamp"`
	Epoch         string `json:"epoch"`
	Custodian     string `json:"custodian"`
}

// SnapshotRow is one appended row of the snapshot table.
// Field order matches SnapshotColumns.
type SnapshotRow struct {
	Pubkey                                string
	Lamports                              string
	Owner                                 string
	AccountType                           int16
	Manager                               string
	Staker                                string
	StakeDepositAuthority                 string
	StakeWithdrawBumpSeed                 string
	ValidatorList                         string
	ReserveStake                          string
	PoolMint                              string
	ManagerFeeAccount                     string
	TokenProgramID                        string
	TotalLamports                         string
	PoolTokenSupply                       string
	LastUpdateEpoch                       string
	Lockup                                LockupValue
	EpochFee                              FeeValue
	NextEpochFee                          *FeeValue
	PreferredDepositValidatorVoteAddress  null.String
	PreferredWithdrawValidatorVoteAddress null.String
	StakeDepositFee                       FeeValue
	StakeWithdrawalFee                    FeeValue
	NextStakeWithdrawalFee                *FeeValue
	StakeReferralFee                      string
	SolDepositAuthority                   null.String
	SolDepositFee                         FeeValue
	SolReferralFee                        string
	SolWithdrawAuthority                  null.String
	SolWithdrawalFee                      FeeValue
	NextSolWithdrawalFee                  *FeeValue
	LastEpochPoolTokenSupply              string
	LastEpochTotalLamports                string
	CollectedTime                         time.Time
}

// SnapshotColumns lists the snapshot table columns in insert order.
// Existing consumers depend on this order.
var SnapshotColumns = []string{
	"pubkey",
	"lamports",
	"owner",
	"accounttype",
	"manager",
	"staker",
	"stakedepositauthority",
	"stakewithdrawbumpseed",
	"validatorlist",
	"reservestake",
	"poolmint",
	"managerfeeaccount",
	"tokenprogramid",
	"totallamports",
	"pooltokensupply",
	"lastupdateepoch",
	"lockup",
	"epochfee",
	"nextepochfee",
	"preferreddepositvalidatorvoteaddress",
	"preferredwithdrawvalidatorvoteaddress",
	"stakedepositfee",
	"stakewithdrawalfee",
	"nextstakewithdrawalfee",
	"stakereferralfee",
	"soldepositauthority",
	"soldepositfee",
	"solreferralfee",
	"solwithdrawauthority",
	"solwithdrawalfee",
	"nextsolwithdrawalfee",
	"lastepochpooltokensupply",
	"lastepochtotallamports",
	"collected_time",
}

// Values returns the row's column values in SnapshotColumns order.
// Nullable fee columns are returned as untyped nil when absent.
func (r *SnapshotRow) Values() []any {
	return []any{
		r.Pubkey,
		r.Lamports,
		r.Owner,
		r.AccountType,
		r.Manager,
		r.Staker,
		r.StakeDepositAuthority,
		r.StakeWithdrawBumpSeed,
		r.ValidatorList,
		r.ReserveStake,
		r.PoolMint,
		r.ManagerFeeAccount,
		r.TokenProgramID,
		r.TotalLamports,
		r.PoolTokenSupply,
		r.LastUpdateEpoch,
		r.Lockup,
		r.EpochFee,
		optionalFee(r.NextEpochFee),
		r.PreferredDepositValidatorVoteAddress,
		r.PreferredWithdrawValidatorVoteAddress,
		r.StakeDepositFee,
		r.StakeWithdrawalFee,
		optionalFee(r.NextStakeWithdrawalFee),
		r.StakeReferralFee,
		r.SolDepositAuthority,
		r.SolDepositFee,
		r.SolReferralFee,
		r.SolWithdrawAuthority,
		r.SolWithdrawalFee,
		optionalFee(r.NextSolWithdrawalFee),
		r.LastEpochPoolTokenSupply,
		r.LastEpochTotalLamports,
		r.CollectedTime,
	}
}

// optionalFee avoids passing a typed nil pointer to drivers.
func optionalFee(f *FeeValue) any {
	if f == nil {
		return nil
	}
	return *f
}
