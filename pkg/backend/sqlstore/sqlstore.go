// SPDX-License-Identifier: GPL-3.0-or-later

// Package sqlstore reads macros, scopes and metric values from a SQL
// database with a Zabbix like schema. MySQL ("mysql"), PostgreSQL ("pgx")
// and SQLite ("sqlite") are supported; the caller registers the driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/confopt"
	"github.com/netdata/netdata/go/macros/pkg/sqlquery"
)

type Config struct {
	Driver  string           `yaml:"driver" json:"driver"`
	DSN     string           `yaml:"dsn" json:"dsn"`
	Timeout confopt.Duration `yaml:"timeout,omitempty" json:"timeout"`
}

type Store struct {
	*logger.Logger

	cfg   Config
	db    *sql.DB
	style sqlquery.PlaceholderStyle
}

// New returns a store that is not connected yet, see Open.
func New(cfg Config, log *logger.Logger) (*Store, error) {
	style, err := sqlquery.StyleForDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Store{Logger: log, cfg: cfg, style: style}, nil
}

// NewWithDB wraps an open database.
func NewWithDB(db *sql.DB, style sqlquery.PlaceholderStyle, timeout time.Duration, log *logger.Logger) *Store {
	return &Store{Logger: log, db: db, style: style, cfg: Config{Timeout: confopt.Duration(timeout)}}
}

// Open connects and pings the database.
func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open(s.cfg.Driver, s.cfg.DSN)
	if err != nil {
		return fmt.Errorf("open %s: %w (dsn=%s)", s.cfg.Driver, err, redactDSN(s.cfg.DSN))
	}

	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s: %w (dsn=%s)", s.cfg.Driver, err, redactDSN(s.cfg.DSN))
	}

	s.Debugf("connected to %s (dsn=%s)", s.cfg.Driver, redactDSN(s.cfg.DSN))
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := s.cfg.Timeout.Duration(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

func (s *Store) query(ctx context.Context, query string, fn sqlquery.RecordFunc, args ...any) error {
	if s.db == nil {
		return errors.New("sqlstore: not connected")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	took, err := sqlquery.QueryRecords(ctx, s.db, query, fn, args...)
	s.Debugf("query took %s: %s", took, query)
	return err
}

// in returns "col IN (...)" with placeholders numbered from first.
func (s *Store) in(col string, first, n int) string {
	return col + " IN (" + s.style.Placeholders(first, n) + ")"
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}

	authStart := 0
	if i := strings.Index(dsn, "://"); i != -1 {
		authStart = i + 3
	}

	rel := strings.LastIndex(dsn[authStart:], "@")
	if rel == -1 {
		return dsn
	}
	at := authStart + rel

	userinfo := dsn[authStart:at]
	if userinfo == "" {
		return dsn
	}

	if colon := strings.IndexByte(userinfo, ':'); colon >= 0 {
		return dsn[:authStart] + userinfo[:colon] + ":****" + dsn[at:]
	}
	return dsn[:authStart] + "****" + dsn[at:]
}
