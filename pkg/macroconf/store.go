// SPDX-License-Identifier: GPL-3.0-or-later

package macroconf

import (
	"context"
	"fmt"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/backend/filestore"
	"github.com/netdata/netdata/go/macros/pkg/backend/redisstore"
	"github.com/netdata/netdata/go/macros/pkg/backend/sqlstore"
)

// OpenStore builds and connects the configured store. SQL drivers must be
// registered by the caller. The file backend is watched until ctx is done
// when file.watch is set. The returned function releases connections.
func (c Config) OpenStore(ctx context.Context, log *logger.Logger) (backend.Store, func() error, error) {
	var (
		store   backend.Store
		closers []func() error
	)
	closeAll := func() error {
		var err error
		for i := len(closers) - 1; i >= 0; i-- {
			if e := closers[i](); e != nil && err == nil {
				err = e
			}
		}
		return err
	}

	switch c.Backend {
	case BackendFile:
		fs := filestore.New(c.File.Path, log.With("component", "filestore"))
		if err := fs.Load(); err != nil {
			return nil, nil, err
		}
		if c.File.Watch {
			go func() {
				if err := fs.Watch(ctx); err != nil {
					fs.Warningf("watch: %v", err)
				}
			}()
		}
		store = fs
	case BackendSQL:
		ss, err := sqlstore.New(c.SQL, log.With("component", "sqlstore"))
		if err != nil {
			return nil, nil, err
		}
		if err := ss.Open(ctx); err != nil {
			return nil, nil, err
		}
		closers = append(closers, ss.Close)
		store = ss
	default:
		return nil, nil, fmt.Errorf("unknown backend '%s'", c.Backend)
	}

	if c.Redis != nil {
		rs, err := redisstore.New(*c.Redis, store, log.With("component", "redisstore"))
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		if err := rs.Check(ctx); err != nil {
			_ = rs.Close()
			_ = closeAll()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, rs.Close)
		store = rs
	}

	return store, closeAll, nil
}
