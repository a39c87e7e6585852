package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Conn wraps clickhouse driver.Conn for dependency injection.
type Conn struct {
	driver.Conn
}

// NewConn creates a new ClickHouse connection.
func NewConn(ctx context.Context, dsn string) (*Conn, error) {
	opts, err := connOptions(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	// Verify connection
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Conn{Conn: conn}, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.Conn.Close()
}

// DefaultNativePort is used when the DSN omits a port.
const DefaultNativePort = "9000"

// connOptions parses a clickhouse:// DSN, keeping its query settings
// (secure, dial_timeout, compress, ...). Hosts without a port get DefaultNativePort.
func connOptions(dsn string) (*clickhouse.Options, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if len(opts.Addr) == 0 {
		return nil, errors.New("no host in dsn")
	}
	for i, addr := range opts.Addr {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			opts.Addr[i] = net.JoinHostPort(addr, DefaultNativePort)
		}
	}
	return opts, nil
}
