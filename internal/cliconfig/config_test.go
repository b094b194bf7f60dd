package cliconfig

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/custodian/internal/domain"
)

const (
	testAuthority = "0x1111111111111111111111111111111111111111"
	testExecutor  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendFS {
		t.Errorf("Backend = %v, want %v", cfg.Backend, BackendFS)
	}
	if cfg.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %v, want %v", cfg.Namespace, DefaultNamespace)
	}
	if cfg.CommitFrequency != 30*time.Second {
		t.Errorf("CommitFrequency = %v, want 30s", cfg.CommitFrequency)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend:         BackendMemory,
			Namespace:       "test",
			CommitFrequency: time.Second,
			LogLevel:        "debug",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid minimal config", mutate: func(*Config) {}},
		{name: "valid identities", mutate: func(c *Config) {
			c.Authority = testAuthority
			c.Executor = testExecutor
		}},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "redis" }, wantErr: true},
		{name: "empty namespace", mutate: func(c *Config) { c.Namespace = "" }, wantErr: true},
		{name: "bad authority", mutate: func(c *Config) { c.Authority = "alice" }, wantErr: true},
		{name: "zero executor", mutate: func(c *Config) {
			c.Executor = "0x0000000000000000000000000000000000000000"
		}, wantErr: true},
		{name: "zero commit frequency", mutate: func(c *Config) { c.CommitFrequency = 0 }, wantErr: true},
		{name: "negative commit frequency", mutate: func(c *Config) { c.CommitFrequency = -time.Second }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "empty log level", mutate: func(c *Config) { c.LogLevel = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_ValidateDerivesPaths(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(cfg.DataDir, filepath.Join(".custodian", "records")) {
		t.Errorf("DataDir = %v, want it under .custodian", cfg.DataDir)
	}

	cfg = DefaultConfig()
	cfg.Backend = BackendSQLite
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join(".custodian", "custodian.db")) {
		t.Errorf("DBPath = %v, want it under .custodian", cfg.DBPath)
	}

	cfg = DefaultConfig()
	cfg.DataDir = "/srv/records"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.DataDir != "/srv/records" {
		t.Errorf("DataDir = %v, want /srv/records", cfg.DataDir)
	}
}

func TestConfig_Identities(t *testing.T) {
	cfg := Config{Authority: testAuthority}

	id, err := cfg.AuthorityID()
	if err != nil {
		t.Fatalf("AuthorityID() error = %v", err)
	}
	if !strings.EqualFold(id.Hex(), testAuthority) {
		t.Errorf("AuthorityID() = %v, want %v", id.Hex(), testAuthority)
	}

	if _, err := cfg.ExecutorID(); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("ExecutorID() error = %v, want ErrInvalidConfig", err)
	}

	cfg.Executor = "not-hex"
	if _, err := cfg.ExecutorID(); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("ExecutorID() error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigSetter(t *testing.T) {
	s := newConfigSetter(map[string]bool{"namespace": true, "commit-frequency": true})

	ns := "flag"
	s.setString("namespace", "file", &ns)
	if ns != "flag" {
		t.Errorf("setString overrode changed flag: %v", ns)
	}

	backend := BackendFS
	s.setString("backend", "", &backend)
	if backend != BackendFS {
		t.Errorf("setString applied empty value: %v", backend)
	}

	freq := time.Second
	if err := s.setDurationFromString("commit-frequency", "1m", &freq); err != nil {
		t.Fatalf("setDurationFromString() error = %v", err)
	}
	if freq != time.Second {
		t.Errorf("setDurationFromString overrode changed flag: %v", freq)
	}

	var other time.Duration
	if err := s.setDurationFromString("other", "bogus", &other); err == nil {
		t.Error("setDurationFromString() expected parse error")
	}
	s.setDuration("other", -time.Second, &other)
	if other != 0 {
		t.Errorf("setDuration applied negative value: %v", other)
	}
}
