// SPDX-License-Identifier: GPL-3.0-or-later

// Package redisstore serves metric values from Redis and delegates every
// other lookup, and values Redis does not have, to another store.
//
// Layout, with the default "macros" prefix:
//
//	macros:lastvalue          hash, field itemid, value last value
//	macros:history:<itemid>   sorted set, score clock, member "<clock>:<value>"
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/confopt"
)

type Config struct {
	Address   string           `yaml:"address" json:"address"`
	Timeout   confopt.Duration `yaml:"timeout,omitempty" json:"timeout"`
	Username  string           `yaml:"username,omitempty" json:"username"`
	Password  string           `yaml:"password,omitempty" json:"password"`
	KeyPrefix string           `yaml:"key_prefix,omitempty" json:"key_prefix"`
}

func DefaultConfig() Config {
	return Config{
		Address:   "redis://@localhost:6379",
		Timeout:   confopt.Duration(time.Second),
		KeyPrefix: "macros",
	}
}

type (
	Store struct {
		*logger.Logger
		backend.Store

		prefix string
		rdb    redisClient
	}
	redisClient interface {
		HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
		ZRevRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
		Ping(context.Context) *redis.StatusCmd
		Close() error
	}
)

func New(cfg Config, fallback backend.Store, log *logger.Logger) (*Store, error) {
	if fallback == nil {
		return nil, errors.New("redisstore: fallback store is required")
	}
	if cfg.Address == "" {
		return nil, errors.New("redisstore: 'address' not set")
	}

	opts, err := redis.ParseURL(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse address: %v", err)
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if d := cfg.Timeout.Duration(); d > 0 {
		opts.DialTimeout = d
		opts.ReadTimeout = d
		opts.WriteTimeout = d
	}

	return newStore(redis.NewClient(opts), cfg.KeyPrefix, fallback, log), nil
}

func newStore(rdb redisClient, prefix string, fallback backend.Store, log *logger.Logger) *Store {
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Store{Logger: log, Store: fallback, prefix: prefix, rdb: rdb}
}

// Check pings the server.
func (s *Store) Check(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) lastValueKey() string            { return s.prefix + ":lastvalue" }
func (s *Store) historyKey(itemID string) string { return s.prefix + ":history:" + itemID }

func (s *Store) FetchLatestMetricValues(ctx context.Context, itemIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	vals, err := s.rdb.HMGet(ctx, s.lastValueKey(), itemIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget '%s': %w", s.lastValueKey(), err)
	}

	var misses []string
	for i, id := range itemIDs {
		if i < len(vals) {
			if v, ok := vals[i].(string); ok {
				out[id] = v
				continue
			}
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	s.Debugf("%d of %d latest values not cached, asking fallback store", len(misses), len(itemIDs))

	rest, err := s.Store.FetchLatestMetricValues(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, v := range rest {
		out[id] = v
	}
	return out, nil
}

func (s *Store) FetchMetricValuesAt(ctx context.Context, lookups []backend.ItemAt) (map[backend.ItemAt]string, error) {
	out := make(map[backend.ItemAt]string, len(lookups))

	var misses []backend.ItemAt
	for _, l := range lookups {
		members, err := s.rdb.ZRevRangeByScore(ctx, s.historyKey(l.ItemID), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatInt(l.Time, 10),
			Count: 1,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("redis zrevrangebyscore '%s': %w", s.historyKey(l.ItemID), err)
		}
		if len(members) == 0 {
			misses = append(misses, l)
			continue
		}
		v, err := sampleValue(members[0])
		if err != nil {
			return nil, fmt.Errorf("item '%s': %w", l.ItemID, err)
		}
		out[l] = v
	}
	if len(misses) == 0 {
		return out, nil
	}

	rest, err := s.Store.FetchMetricValuesAt(ctx, misses)
	if err != nil {
		return nil, err
	}
	for l, v := range rest {
		out[l] = v
	}
	return out, nil
}

func sampleValue(member string) (string, error) {
	clock, value, ok := strings.Cut(member, ":")
	if !ok {
		return "", fmt.Errorf("malformed history member '%s'", member)
	}
	if _, err := strconv.ParseInt(clock, 10, 64); err != nil {
		return "", fmt.Errorf("malformed history member '%s': %v", member, err)
	}
	return value, nil
}
