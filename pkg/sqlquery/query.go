// SPDX-License-Identifier: GPL-3.0-or-later

package sqlquery

import (
	"context"
	"database/sql"
	"time"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RecordFunc receives one row as strings in column order, NULL as "".
// The values slice is reused between rows.
type RecordFunc func(columns, values []string) error

// QueryRecords runs query and calls fn once per row. An error from fn stops
// the iteration and is returned. The duration is the time the database took
// to answer, row reads excluded.
func QueryRecords(ctx context.Context, q Queryer, query string, fn RecordFunc, args ...any) (time.Duration, error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, query, args...)
	took := time.Since(start)
	if err != nil {
		return took, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return took, err
	}

	cells := make([]any, len(columns))
	for i := range cells {
		cells[i] = &sql.NullString{}
	}
	values := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(cells...); err != nil {
			return took, err
		}
		for i, c := range cells {
			values[i] = c.(*sql.NullString).String
		}
		if err := fn(columns, values); err != nil {
			return took, err
		}
	}
	return took, rows.Err()
}
