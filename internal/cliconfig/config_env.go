package cliconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds the CUSTODIAN_* environment overrides.
type EnvConfig struct {
	Backend         string        `env:"CUSTODIAN_BACKEND"`
	DataDir         string        `env:"CUSTODIAN_DATA_DIR"`
	DBPath          string        `env:"CUSTODIAN_DB_PATH"`
	Namespace       string        `env:"CUSTODIAN_NAMESPACE"`
	Authority       string        `env:"CUSTODIAN_AUTHORITY"`
	Executor        string        `env:"CUSTODIAN_EXECUTOR"`
	CommitFrequency time.Duration `env:"CUSTODIAN_COMMIT_FREQUENCY"`
	LogLevel        string        `env:"CUSTODIAN_LOG_LEVEL"`
}

// LoadEnvConfig parses CUSTODIAN_* variables from the process environment.
func LoadEnvConfig() (EnvConfig, error) {
	var ec EnvConfig
	if err := env.Parse(&ec); err != nil {
		return ec, fmt.Errorf("parse env: %w", err)
	}
	return ec, nil
}

// ApplyEnvConfig applies environment overrides to cfg.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	ec, err := LoadEnvConfig()
	if err != nil {
		return err
	}

	s := newConfigSetter(changed)
	s.setString("backend", ec.Backend, &cfg.Backend)
	s.setString("data-dir", ec.DataDir, &cfg.DataDir)
	s.setString("db", ec.DBPath, &cfg.DBPath)
	s.setString("namespace", ec.Namespace, &cfg.Namespace)
	s.setString("authority", ec.Authority, &cfg.Authority)
	s.setString("executor", ec.Executor, &cfg.Executor)
	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)
	s.setDuration("commit-frequency", ec.CommitFrequency, &cfg.CommitFrequency)
	return nil
}
