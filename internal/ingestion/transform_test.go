package ingestion

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakepool-monitor/internal/domain"
)

func TestTransform(t *testing.T) {
	snap := sampleSnapshot()
	now := time.Date(2024, 5, 1, 12, 0, 30, 123_000_000, time.UTC)

	row, err := Transform(snap, now)
	require.NoError(t, err)

	assert.Equal(t, poolAddress.String(), row.Pubkey)
	assert.Equal(t, "18446744073709551615", row.Lamports)
	assert.Equal(t, stakePoolProgram.String(), row.Owner)
	assert.Equal(t, int16(1), row.AccountType)
	assert.Equal(t, key(1).String(), row.Manager)
	assert.Equal(t, key(2).String(), row.Staker)
	assert.Equal(t, key(3).String(), row.StakeDepositAuthority)
	assert.Equal(t, "254", row.StakeWithdrawBumpSeed)
	assert.Equal(t, key(4).String(), row.ValidatorList)
	assert.Equal(t, key(5).String(), row.ReserveStake)
	assert.Equal(t, key(6).String(), row.PoolMint)
	assert.Equal(t, key(7).String(), row.ManagerFeeAccount)
	assert.Equal(t, key(8).String(), row.TokenProgramID)
	assert.Equal(t, "9007199254740993", row.TotalLamports)
	assert.Equal(t, "18446744073709551614", row.PoolTokenSupply)
	assert.Equal(t, "712", row.LastUpdateEpoch)
	assert.Equal(t, domain.LockupValue{UnixTimestamp: "-1", Epoch: "3", Custodian: key(11).String()}, row.Lockup)
	assert.Equal(t, domain.FeeValue{Denominator: "100", Numerator: "5"}, row.EpochFee)
	require.NotNil(t, row.NextEpochFee)
	assert.Equal(t, domain.FeeValue{Denominator: "1000", Numerator: "45"}, *row.NextEpochFee)
	assert.Equal(t, key(9).String(), row.PreferredDepositValidatorVoteAddress.String)
	assert.Equal(t, domain.FeeValue{Denominator: "0", Numerator: "0"}, row.StakeDepositFee)
	assert.Equal(t, domain.FeeValue{Denominator: "1000", Numerator: "1"}, row.StakeWithdrawalFee)
	assert.Equal(t, "50", row.StakeReferralFee)
	assert.Equal(t, domain.FeeValue{Denominator: "10000", Numerator: "3"}, row.SolDepositFee)
	assert.Equal(t, "100", row.SolReferralFee)
	assert.Equal(t, domain.FeeValue{Denominator: "10000", Numerator: "10"}, row.SolWithdrawalFee)
	assert.Equal(t, "123456789", row.LastEpochPoolTokenSupply)
	assert.Equal(t, "987654321", row.LastEpochTotalLamports)
	assert.True(t, now.Equal(row.CollectedTime))
}

func TestTransform_AbsentOptionalsAreNull(t *testing.T) {
	snap := sampleSnapshot()

	row, err := Transform(snap, time.Now())
	require.NoError(t, err)

	assert.False(t, row.PreferredWithdrawValidatorVoteAddress.Valid)
	assert.False(t, row.SolDepositAuthority.Valid)
	assert.Nil(t, row.NextStakeWithdrawalFee)
	assert.Nil(t, row.NextSolWithdrawalFee)

	values := row.Values()
	require.Len(t, values, len(domain.SnapshotColumns))
	assert.Nil(t, values[23], "nextstakewithdrawalfee")
	assert.Nil(t, values[30], "nextsolwithdrawalfee")
}

func TestTransform_SolWithdrawAuthority(t *testing.T) {
	snap := sampleSnapshot()

	row, err := Transform(snap, time.Now())
	require.NoError(t, err)
	require.True(t, row.SolWithdrawAuthority.Valid)
	assert.Equal(t, key(10).String(), row.SolWithdrawAuthority.String)

	snap.Data.SolWithdrawAuthority = nil
	row, err = Transform(snap, time.Now())
	require.NoError(t, err)
	assert.False(t, row.SolWithdrawAuthority.Valid)
}

func TestTransform_CollectedTimeIsUTC(t *testing.T) {
	zone := time.FixedZone("UTC-3", -3*3600)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, zone)

	row, err := Transform(sampleSnapshot(), now)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, row.CollectedTime.Location())
	assert.True(t, now.Equal(row.CollectedTime))
	assert.Equal(t, 12, row.CollectedTime.Hour())
}

func TestTransform_Deterministic(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := Transform(sampleSnapshot(), now)
	require.NoError(t, err)
	second, err := Transform(sampleSnapshot(), now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransform_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RemoteSnapshot) *domain.RemoteSnapshot
	}{
		{"nil snapshot", func(*domain.RemoteSnapshot) *domain.RemoteSnapshot { return nil }},
		{"zero pubkey", func(s *domain.RemoteSnapshot) *domain.RemoteSnapshot {
			s.Pubkey = solana.PublicKey{}
			return s
		}},
		{"zero owner", func(s *domain.RemoteSnapshot) *domain.RemoteSnapshot {
			s.Owner = solana.PublicKey{}
			return s
		}},
		{"nil data", func(s *domain.RemoteSnapshot) *domain.RemoteSnapshot {
			s.Data = nil
			return s
		}},
		{"uninitialized account", func(s *domain.RemoteSnapshot) *domain.RemoteSnapshot {
			s.Data.AccountType = 0
			return s
		}},
		{"validator list account", func(s *domain.RemoteSnapshot) *domain.RemoteSnapshot {
			s.Data.AccountType = 2
			return s
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := Transform(tt.mutate(sampleSnapshot()), time.Now())
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.Nil(t, row)
		})
	}
}
