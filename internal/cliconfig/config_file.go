package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Backend         string `toml:"backend"`
	DataDir         string `toml:"data_dir"`
	DBPath          string `toml:"db_path"`
	Namespace       string `toml:"namespace"`
	Authority       string `toml:"authority"`
	Executor        string `toml:"executor"`
	CommitFrequency string `toml:"commit_frequency"`
	LogLevel        string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.custodian/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".custodian", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", fc.Backend, &cfg.Backend)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("db", fc.DBPath, &cfg.DBPath)
	s.setString("namespace", fc.Namespace, &cfg.Namespace)
	s.setString("authority", fc.Authority, &cfg.Authority)
	s.setString("executor", fc.Executor, &cfg.Executor)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	return s.setDurationFromString("commit-frequency", fc.CommitFrequency, &cfg.CommitFrequency)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
