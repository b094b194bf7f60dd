package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/custodian/internal/domain"
)

// Storage backends selectable with --backend.
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// DefaultNamespace is the address derivation namespace used by the CLI.
const DefaultNamespace = "custodian"

// Config holds CLI configuration for custodian.
type Config struct {
	Backend string
	DataDir string
	DBPath  string

	Namespace string

	// Authority and Executor are hex identities; the CLI acts as them.
	Authority string
	Executor  string

	CommitFrequency time.Duration
	LogLevel        string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendFS,
		Namespace:       DefaultNamespace,
		CommitFrequency: 30 * time.Second,
		LogLevel:        "info",
		DataDir:         "", // Derived from the home directory during Validate
		DBPath:          "",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFS:
		if c.DataDir == "" {
			c.DataDir = filepath.Join(homeDir(), "records")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			c.DBPath = filepath.Join(homeDir(), "custodian.db")
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidConfig, c.Backend)
	}

	if c.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidConfig)
	}
	if c.Authority != "" {
		if _, ok := domain.ParseIdentity(c.Authority); !ok {
			return fmt.Errorf("%w: invalid authority %q", domain.ErrInvalidConfig, c.Authority)
		}
	}
	if c.Executor != "" {
		if _, ok := domain.ParseIdentity(c.Executor); !ok {
			return fmt.Errorf("%w: invalid executor %q", domain.ErrInvalidConfig, c.Executor)
		}
	}
	if c.CommitFrequency <= 0 {
		return fmt.Errorf("%w: commit frequency must be positive", domain.ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("%w: invalid log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}

	return nil
}

// AuthorityID returns the configured authority identity.
func (c Config) AuthorityID() (domain.Identity, error) {
	return identity("authority", c.Authority)
}

// ExecutorID returns the configured executor identity.
func (c Config) ExecutorID() (domain.Identity, error) {
	return identity("executor", c.Executor)
}

func identity(name, s string) (domain.Identity, error) {
	if s == "" {
		return domain.Identity{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidConfig, name)
	}
	id, ok := domain.ParseIdentity(s)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidConfig, name, s)
	}
	return id, nil
}

// homeDir returns ~/.custodian, or .custodian when no home directory is known.
func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".custodian")
	}
	return ".custodian"
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration sets a duration if positive and flag not changed.
func (s *configSetter) setDuration(flag string, value time.Duration, dst *time.Duration) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDurationFromString parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDurationFromString(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}
