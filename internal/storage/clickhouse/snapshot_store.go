package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null"

	"stakepool-monitor/internal/domain"
	"stakepool-monitor/internal/observability"
	"stakepool-monitor/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn  *Conn
	table string
}

// NewSnapshotStore creates a SnapshotStore writing to table ("db.table" or "table").
func NewSnapshotStore(conn *Conn, table string) *SnapshotStore {
	return &SnapshotStore{conn: conn, table: QuoteTable(table)}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends one row as a single-row batch.
func (s *SnapshotStore) Insert(ctx context.Context, row *domain.SnapshotRow) error {
	if row == nil {
		return storage.ErrInvalidInput
	}

	values, err := columnValues(row)
	if err != nil {
		return fmt.Errorf("convert snapshot: %w", err)
	}

	start := time.Now()
	err = s.send(ctx, values)
	observability.RecordDBQuery("clickhouse", "insert_snapshot", time.Since(start).Seconds(), err)
	return err
}

func (s *SnapshotStore) send(ctx context.Context, values []any) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)",
		s.table, strings.Join(domain.SnapshotColumns, ", ")))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	if err := batch.Append(values...); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// QuoteTable backtick-quotes a possibly database-qualified table name.
func QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "\\`") + "`"
	}
	return strings.Join(parts, ".")
}

// columnValues converts a row to native ClickHouse column types.
// Decimal strings become UInt64/UInt8, fee and lockup values become JSON text.
func columnValues(r *domain.SnapshotRow) ([]any, error) {
	c := converter{}

	values := []any{
		r.Pubkey,
		c.u64("lamports", r.Lamports),
		r.Owner,
		uint8(r.AccountType),
		r.Manager,
		r.Staker,
		r.StakeDepositAuthority,
		c.u8("stakewithdrawbumpseed", r.StakeWithdrawBumpSeed),
		r.ValidatorList,
		r.ReserveStake,
		r.PoolMint,
		r.ManagerFeeAccount,
		r.TokenProgramID,
		c.u64("totallamports", r.TotalLamports),
		c.u64("pooltokensupply", r.PoolTokenSupply),
		c.u64("lastupdateepoch", r.LastUpdateEpoch),
		c.json("lockup", r.Lockup),
		c.json("epochfee", r.EpochFee),
		c.optionalFee("nextepochfee", r.NextEpochFee),
		nullable(r.PreferredDepositValidatorVoteAddress),
		nullable(r.PreferredWithdrawValidatorVoteAddress),
		c.json("stakedepositfee", r.StakeDepositFee),
		c.json("stakewithdrawalfee", r.StakeWithdrawalFee),
		c.optionalFee("nextstakewithdrawalfee", r.NextStakeWithdrawalFee),
		c.u8("stakereferralfee", r.StakeReferralFee),
		nullable(r.SolDepositAuthority),
		c.json("soldepositfee", r.SolDepositFee),
		c.u8("solreferralfee", r.SolReferralFee),
		nullable(r.SolWithdrawAuthority),
		c.json("solwithdrawalfee", r.SolWithdrawalFee),
		c.optionalFee("nextsolwithdrawalfee", r.NextSolWithdrawalFee),
		c.u64("lastepochpooltokensupply", r.LastEpochPoolTokenSupply),
		c.u64("lastepochtotallamports", r.LastEpochTotalLamports),
		r.CollectedTime,
	}
	if c.err != nil {
		return nil, c.err
	}
	return values, nil
}

// converter keeps the first conversion error.
type converter struct {
	err error
}

func (c *converter) fail(column string, err error) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: %w", column, err)
	}
}

func (c *converter) u64(column, v string) uint64 {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.fail(column, err)
	}
	return n
}

func (c *converter) u8(column, v string) uint8 {
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		c.fail(column, err)
	}
	return uint8(n)
}

func (c *converter) json(column string, v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		c.fail(column, err)
	}
	return string(b)
}

func (c *converter) optionalFee(column string, f *domain.FeeValue) *string {
	if f == nil {
		return nil
	}
	s := c.json(column, f)
	return &s
}

func nullable(s null.String) *string {
	return s.Ptr()
}
