// /home/krylon/go/src/github.com/blicero/glping/config/01_config_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 17. 06. 2024 by Benjamin Walkenhorst
// (c) 2024 Benjamin Walkenhorst
// Time-stamp: <2024-08-30 23:01:10 krylon>

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blicero/glping/common"
	"github.com/blicero/glping/store"
)

var testDir string

func init() {
	var err error

	if testDir, err = os.MkdirTemp("", "glping_config_test"); err != nil {
		panic(err)
	} else if err = common.SetBaseDir(testDir); err != nil {
		panic(err)
	}
} // func init()

func TestDefaults(t *testing.T) {
	var (
		err error
		cfg *Config
	)

	if cfg, err = Load(""); err != nil {
		t.Fatalf("Cannot load default configuration: %s", err.Error())
	}

	if cfg.Gitlab.URL != "https://gitlab.com" {
		t.Errorf("Unexpected default URL %q", cfg.Gitlab.URL)
	} else if cfg.Check.Interval != time.Second*60 {
		t.Errorf("Unexpected default interval %s", cfg.Check.Interval)
	} else if cfg.Check.Backlog != time.Hour*24 {
		t.Errorf("Unexpected default backlog %s", cfg.Check.Backlog)
	} else if cfg.Check.LedgerCap != store.DefaultLedgerCap {
		t.Errorf("Unexpected default ledger cap %d", cfg.Check.LedgerCap)
	}
} // func TestDefaults(t *testing.T)

func TestEnvironment(t *testing.T) {
	t.Setenv("GITLAB_URL", "https://git.example.com/")
	t.Setenv("GITLAB_TOKEN", "glpat-0123456789abcdef")
	t.Setenv("CHECK_INTERVAL", "2m")

	var (
		err error
		cfg *Config
	)

	if cfg, err = Load(""); err != nil {
		t.Fatalf("Cannot load configuration from environment: %s", err.Error())
	} else if err = cfg.Validate(); err != nil {
		t.Fatalf("Valid configuration rejected: %s", err.Error())
	}

	// Validate strips the trailing slash.
	if cfg.Gitlab.URL != "https://git.example.com" {
		t.Errorf("Unexpected URL %q", cfg.Gitlab.URL)
	} else if cfg.Check.Interval != time.Minute*2 {
		t.Errorf("Unexpected interval %s", cfg.Check.Interval)
	}
} // func TestEnvironment(t *testing.T)

func TestConfigFile(t *testing.T) {
	var (
		err  error
		cfg  *Config
		path = filepath.Join(testDir, "config.yaml")
		body = `
gitlab:
  url: https://git.example.com
  token: glpat-0123456789abcdef
check:
  interval: 5m
  max_workers: 3
`
	)

	if err = os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("Cannot write config file: %s", err.Error())
	}

	if cfg, err = Load(path); err != nil {
		t.Fatalf("Cannot load config file %s: %s", path, err.Error())
	} else if err = cfg.Validate(); err != nil {
		t.Fatalf("Valid configuration rejected: %s", err.Error())
	}

	if cfg.Check.Interval != time.Minute*5 {
		t.Errorf("Unexpected interval %s", cfg.Check.Interval)
	} else if cfg.Check.MaxWorkers != 3 {
		t.Errorf("Unexpected worker count %d", cfg.Check.MaxWorkers)
	}
} // func TestConfigFile(t *testing.T)

func TestValidate(t *testing.T) {
	type testCase struct {
		cfg       Config
		expectErr bool
	}

	var base = CheckCfg{
		Interval:   time.Minute,
		Backlog:    time.Hour * 24,
		MaxWorkers: 10,
		LedgerCap:  store.DefaultLedgerCap,
	}

	var cases = []testCase{
		{
			cfg: Config{
				Gitlab: GitlabCfg{URL: "https://gitlab.com", Token: "glpat-0123456789abcdef"},
				Check:  base,
			},
		},
		{
			// Missing token
			cfg: Config{
				Gitlab: GitlabCfg{URL: "https://gitlab.com"},
				Check:  base,
			},
			expectErr: true,
		},
		{
			// Token too short to be real
			cfg: Config{
				Gitlab: GitlabCfg{URL: "https://gitlab.com", Token: "abc"},
				Check:  base,
			},
			expectErr: true,
		},
		{
			// URL without scheme
			cfg: Config{
				Gitlab: GitlabCfg{URL: "gitlab.com", Token: "glpat-0123456789abcdef"},
				Check:  base,
			},
			expectErr: true,
		},
		{
			// Interval too short
			cfg: Config{
				Gitlab: GitlabCfg{URL: "https://gitlab.com", Token: "glpat-0123456789abcdef"},
				Check: CheckCfg{
					Interval: time.Millisecond * 100,
				},
			},
			expectErr: true,
		},
	}

	for i, c := range cases {
		var err = c.cfg.Validate()

		if c.expectErr && err == nil {
			t.Errorf("Case %d: expected an error, got none", i)
		} else if !c.expectErr && err != nil {
			t.Errorf("Case %d: unexpected error: %s", i, err.Error())
		}
	}
} // func TestValidate(t *testing.T)

func TestValidateClamps(t *testing.T) {
	var cfg = Config{
		Gitlab: GitlabCfg{URL: "https://gitlab.com", Token: "glpat-0123456789abcdef"},
		Check: CheckCfg{
			Interval:   time.Minute,
			Backlog:    -time.Hour,
			MaxWorkers: 0,
			LedgerCap:  -5,
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Unexpected error: %s", err.Error())
	}

	if cfg.Check.Backlog != store.DefaultBacklog {
		t.Errorf("Backlog not clamped, got %s", cfg.Check.Backlog)
	} else if cfg.Check.MaxWorkers != 1 {
		t.Errorf("Worker count not clamped, got %d", cfg.Check.MaxWorkers)
	} else if cfg.Check.LedgerCap != store.DefaultLedgerCap {
		t.Errorf("Ledger cap not clamped, got %d", cfg.Check.LedgerCap)
	}
} // func TestValidateClamps(t *testing.T)
