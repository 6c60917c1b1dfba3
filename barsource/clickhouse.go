package barsource

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/evdnx/gosmc/types"
)

// ClickHouse reads candles from a table keyed by (symbol, interval,
// open_time_ms), the layout the candle ingester writes.
type ClickHouse struct {
	conn  driver.Conn
	table string
}

// NewClickHouse connects with a clickhouse:// DSN and pings the server.
// table may be qualified with its database.
func NewClickHouse(ctx context.Context, dsn, table string) (*ClickHouse, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: parse DSN: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse: ping: %w", err)
	}
	if table == "" {
		table = "data"
	}
	return &ClickHouse{conn: conn, table: table}, nil
}

// Load returns the bars of symbol at interval with open times in
// [from, to] unix seconds. A zero to means no upper bound.
func (c *ClickHouse) Load(ctx context.Context, symbol, interval string, from, to int64) ([]types.Bar, error) {
	if from < 0 {
		from = 0
	}
	if to == 0 {
		to = 1<<62 / 1000
	}
	q := fmt.Sprintf(`
		SELECT
			intDiv(open_time_ms, 1000) AS t,
			argMax(open, version), argMax(high, version), argMax(low, version),
			argMax(close, version), argMax(volume, version)
		FROM %s
		WHERE symbol = ? AND interval = ? AND open_time_ms BETWEEN ? AND ?
		GROUP BY t
		ORDER BY t`, c.table)
	rows, err := c.conn.Query(ctx, q, symbol, interval, uint64(from)*1000, uint64(to)*1000)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: query %s %s: %w", symbol, interval, err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var (
			t uint64
			b types.Bar
		)
		if err := rows.Scan(&t, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("clickhouse: scan: %w", err)
		}
		b.Time = int64(t)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse: rows: %w", err)
	}
	if err := types.ValidateBars(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// Close releases the connection.
func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
