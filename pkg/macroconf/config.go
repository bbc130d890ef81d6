// SPDX-License-Identifier: GPL-3.0-or-later

// Package macroconf is the configuration of the macro engine and of the
// store it reads from.
package macroconf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/netdata/netdata/go/macros/pkg/backend/redisstore"
	"github.com/netdata/netdata/go/macros/pkg/backend/sqlstore"
	"github.com/netdata/netdata/go/macros/pkg/confopt"
	"github.com/netdata/netdata/go/macros/pkg/macro/engine"
	"github.com/netdata/netdata/go/macros/pkg/macro/funcs"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/sqlquery"
)

const (
	BackendFile = "file"
	BackendSQL  = "sql"
)

type Config struct {
	Backend string          `yaml:"backend" json:"backend"`
	File    FileConfig      `yaml:"file,omitempty" json:"file"`
	SQL     sqlstore.Config `yaml:"sql,omitempty" json:"sql"`
	// Redis, when set, serves metric values in front of the backend.
	Redis *redisstore.Config `yaml:"redis,omitempty" json:"redis"`

	Sentinel             string `yaml:"sentinel,omitempty" json:"sentinel"`
	SecretMask           string `yaml:"secret_mask,omitempty" json:"secret_mask"`
	UnresolvedAsSentinel bool   `yaml:"unresolved_as_sentinel" json:"unresolved_as_sentinel"`
	Concurrency          int    `yaml:"concurrency,omitempty" json:"concurrency"`
	Timezone             string `yaml:"timezone,omitempty" json:"timezone"`

	Roles map[string]RoleConfig `yaml:"roles,omitempty" json:"roles"`
}

type FileConfig struct {
	Path  string `yaml:"path" json:"path"`
	Watch bool   `yaml:"watch" json:"watch"`
}

func Default() Config {
	return Config{
		Backend:     BackendFile,
		SQL:         sqlstore.Config{Timeout: confopt.Duration(5 * time.Second)},
		Sentinel:    funcs.UnresolvedSentinel,
		SecretMask:  scope.MaskString,
		Concurrency: 4,
	}
}

// Load reads a YAML (or JSON) config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("parse '%s': %v", path, err)
	}
	if cfg.File.Path, err = homedir.Expand(cfg.File.Path); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every problem of the config at once.
func (c Config) Validate() error {
	var errs *multierror.Error

	switch c.Backend {
	case BackendFile:
		if c.File.Path == "" {
			errs = multierror.Append(errs, errors.New("'file.path' not set"))
		}
	case BackendSQL:
		if _, err := sqlquery.StyleForDriver(c.SQL.Driver); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("'sql.driver': %v", err))
		}
		if c.SQL.DSN == "" {
			errs = multierror.Append(errs, errors.New("'sql.dsn' not set"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown backend '%s'", c.Backend))
	}

	if c.Redis != nil && c.Redis.Address == "" {
		errs = multierror.Append(errs, errors.New("'redis.address' not set"))
	}
	if c.Concurrency < 0 {
		errs = multierror.Append(errs, fmt.Errorf("'concurrency' must not be negative (%d)", c.Concurrency))
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("'timezone': %v", err))
		}
	}
	if _, err := c.roles(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}

// EngineConfig returns the engine part of the config.
func (c Config) EngineConfig() (engine.Config, error) {
	roles, err := c.roles()
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		Sentinel:             c.Sentinel,
		UnresolvedAsSentinel: c.UnresolvedAsSentinel,
		Mask:                 c.SecretMask,
		Concurrency:          c.Concurrency,
		Roles:                roles,
	}
	if c.Timezone != "" {
		if cfg.Location, err = time.LoadLocation(c.Timezone); err != nil {
			return engine.Config{}, err
		}
	}
	return cfg, nil
}
