// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid config")

// Store backends.
const (
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendMemory     = "memory"
)

// Config is the full process configuration.
type Config struct {
	Postgres   PostgresConfig
	Clickhouse ClickhouseConfig
	Solana     SolanaConfig
	Schedule   ScheduleConfig
	Cycle      CycleConfig
	Log        LogConfig

	StakePool    solana.PublicKey `env:"STAKEPOOL,required"`
	Table        string           `env:"STAKEPOOL_TABLE" envDefault:"bbsol_stakepool"`
	StoreBackend string           `env:"STORE_BACKEND" envDefault:"postgres"`
	Migrate      bool             `env:"STORE_MIGRATE" envDefault:"false"`
	MetricsAddr  string           `env:"METRICS_ADDR" envDefault:":9090"`
}

// PostgresConfig holds connection settings for the Postgres store.
// Host, database and password are required when the Postgres backend is selected.
type PostgresConfig struct {
	Host     string `env:"PGSQL_HOST"`
	Database string `env:"DB"`
	User     string `env:"PGSQL_USER" envDefault:"postgres"`
	Password string `env:"PGSQL_PASSWD"`
	Port     int    `env:"PGSQL_PORT" envDefault:"5432"`
	SSLMode  string `env:"PGSQL_SSLMODE" envDefault:"prefer"`
	MaxConns int32  `env:"PGSQL_MAX_CONNS" envDefault:"1"`
}

// ClickhouseConfig holds connection settings for the ClickHouse store.
type ClickhouseConfig struct {
	DSN string `env:"CLICKHOUSE_DSN"`
}

// SolanaConfig holds RPC settings.
type SolanaConfig struct {
	Endpoint   string        `env:"SOLANA_ENDPOINT,required"`
	Commitment string        `env:"SOLANA_COMMITMENT" envDefault:"confirmed"`
	MaxRetries int           `env:"RPC_MAX_RETRIES" envDefault:"0"`
	RetryDelay time.Duration `env:"RPC_RETRY_DELAY" envDefault:"1s"`
	MaxDelay   time.Duration `env:"RPC_MAX_DELAY" envDefault:"10s"`
}

// ScheduleConfig controls tick timing.
type ScheduleConfig struct {
	Spec     string        `env:"SCHEDULE_SPEC" envDefault:"0,30 * * * * *"`
	Interval time.Duration `env:"SCHEDULE_INTERVAL" envDefault:"30s"`
}

// CycleConfig controls snapshot cycle execution.
type CycleConfig struct {
	Concurrency    int           `env:"CYCLE_CONCURRENCY" envDefault:"4"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"10s"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding   string `env:"LOG_ENCODING" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
}

// Load reads the given dotenv files (".env" when none are given) into the
// environment without overriding variables already set, then parses it.
// A missing default ".env" is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: load env file: %v", ErrInvalidConfig, err)
		}
	}
	return Parse()
}

// Parse reads and validates the configuration from the environment.
func Parse() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(solana.PublicKey{}): func(v string) (any, error) {
				return solana.PublicKeyFromBase58(strings.TrimSpace(v))
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendPostgres:
		if c.Postgres.Host == "" {
			errs = append(errs, errors.New("PGSQL_HOST is required"))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, errors.New("DB is required"))
		}
		if c.Postgres.Password == "" {
			errs = append(errs, errors.New("PGSQL_PASSWD is required"))
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Errorf("PGSQL_PORT %d out of range", c.Postgres.Port))
		}
		if c.Postgres.MaxConns < 1 {
			errs = append(errs, errors.New("PGSQL_MAX_CONNS must be at least 1"))
		}
	case BackendClickhouse:
		if c.Clickhouse.DSN == "" {
			errs = append(errs, errors.New("CLICKHOUSE_DSN is required for the clickhouse backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if u, err := url.Parse(c.Solana.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("SOLANA_ENDPOINT %q is not an http(s) URL", c.Solana.Endpoint))
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("unknown SOLANA_COMMITMENT %q", c.Solana.Commitment))
	}
	if c.Solana.MaxRetries < 0 {
		errs = append(errs, errors.New("RPC_MAX_RETRIES must not be negative"))
	}
	if c.Solana.RetryDelay <= 0 || c.Solana.MaxDelay < c.Solana.RetryDelay {
		errs = append(errs, errors.New("RPC_RETRY_DELAY must be positive and not exceed RPC_MAX_DELAY"))
	}

	if c.StakePool.IsZero() {
		errs = append(errs, errors.New("STAKEPOOL must not be the zero address"))
	}
	if c.Table == "" {
		errs = append(errs, errors.New("STAKEPOOL_TABLE must not be empty"))
	}

	if c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("SCHEDULE_INTERVAL must be positive"))
	}
	if c.Cycle.Concurrency < 1 {
		errs = append(errs, errors.New("CYCLE_CONCURRENCY must be at least 1"))
	}
	if c.Cycle.FetchTimeout <= 0 || c.Cycle.PersistTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT and PERSIST_TIMEOUT must be positive"))
	}
	if c.Cycle.ShutdownGrace < 0 {
		errs = append(errs, errors.New("SHUTDOWN_GRACE must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// PostgresDSN builds a pgx connection URL from the Postgres settings.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:     "/" + c.Postgres.Database,
		RawQuery: url.Values{"sslmode": []string{c.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}
