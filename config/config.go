// /home/krylon/go/src/github.com/blicero/glping/config/config.go
// -*- mode: go; coding: utf-8; -*-
// Created on 07. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 15:09:33 krylon>

// Package config loads the application's settings. Everything can
// come from the environment (GITLAB_URL, GITLAB_TOKEN,
// CHECK_INTERVAL, ...) or from an optional YAML file in the base
// directory; the environment wins.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/store"
	"github.com/blicero/krylib"
	"github.com/spf13/viper"
)

// GitlabCfg identifies the GitLab instance we talk to.
type GitlabCfg struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// CheckCfg tunes the polling loop.
type CheckCfg struct {
	Interval   time.Duration `mapstructure:"interval"`
	Backlog    time.Duration `mapstructure:"backlog"`
	MaxWorkers int           `mapstructure:"max_workers"`
	LedgerCap  int           `mapstructure:"ledger_cap"`
}

// Config is the entire application configuration.
type Config struct {
	Gitlab    GitlabCfg `mapstructure:"gitlab"`
	Check     CheckCfg  `mapstructure:"check"`
	CacheFile string    `mapstructure:"cache_file"`
	WWWAddr   string    `mapstructure:"www_addr"`

	// ProjectID restricts the watcher to a single project. Zero
	// means "all projects I am a member of". Set from the command
	// line, not from the environment.
	ProjectID int64
}

// Load reads the configuration from the given file (if it exists)
// and the environment, applying defaults for everything left unset.
func Load(path string) (*Config, error) {
	var (
		err   error
		exist bool
		v     = viper.New()
		cfg   Config
	)

	v.SetConfigType("yaml")

	if path != "" {
		if exist, err = krylib.Fexists(path); err == nil && exist {
			v.SetConfigFile(path)
			if err = v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("Cannot read config file %s: %s",
					path,
					err.Error())
			}
		}
	}

	v.SetDefault("gitlab.url", "https://gitlab.com")
	v.SetDefault("gitlab.token", "")
	v.SetDefault("check.interval", "60s")
	v.SetDefault("check.backlog", "24h")
	v.SetDefault("check.max_workers", 10)
	v.SetDefault("check.ledger_cap", store.DefaultLedgerCap)
	v.SetDefault("cache_file", common.CachePath)
	v.SetDefault("www_addr", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
} // func Load(path string) (*Config, error)

// Validate checks the configuration for the mistakes people actually
// make. It returns nil if the configuration is usable.
func (c *Config) Validate() error {
	if c.Gitlab.Token == "" {
		return fmt.Errorf("GITLAB_TOKEN is required")
	} else if len(c.Gitlab.Token) < 10 {
		return fmt.Errorf("GITLAB_TOKEN is suspiciously short (%d characters)",
			len(c.Gitlab.Token))
	}

	if !strings.HasPrefix(c.Gitlab.URL, "http://") &&
		!strings.HasPrefix(c.Gitlab.URL, "https://") {
		return fmt.Errorf("GITLAB_URL must start with http:// or https:// (got %q)",
			c.Gitlab.URL)
	}

	c.Gitlab.URL = strings.TrimRight(c.Gitlab.URL, "/")

	if c.Check.Interval < time.Second {
		return fmt.Errorf("check interval %s is too short, must be at least 1s",
			c.Check.Interval)
	}

	if c.Check.Backlog <= 0 {
		c.Check.Backlog = store.DefaultBacklog
	}
	if c.Check.MaxWorkers < 1 {
		c.Check.MaxWorkers = 1
	}
	if c.Check.LedgerCap < 1 {
		c.Check.LedgerCap = store.DefaultLedgerCap
	}

	return nil
} // func (c *Config) Validate() error
