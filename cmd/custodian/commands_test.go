package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/custodian"
)

const (
	testAuthority = "0x1111111111111111111111111111111111111111"
	testExecutor  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// run executes one CLI invocation against the record directory dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root, _ := newRootCmd(&out)
	root.SetOut(&out)
	root.SetErr(&out)

	base := []string{
		"--config", filepath.Join(dir, "missing.toml"),
		"--backend", "fs",
		"--data-dir", dir,
		"--namespace", "test",
		"--log-level", "error",
		"--authority", testAuthority,
		"--executor", testExecutor,
	}
	// Subcommand first, then defaults, then per-call flags so they win.
	full := append([]string{args[0]}, base...)
	root.SetArgs(append(full, args[1:]...))
	err := root.Execute()
	return out.String(), err
}

func TestCLI_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"init", "counter"}, "value:        0"},
		{[]string{"add", "counter", "20"}, "value:        20"},
		{[]string{"increment", "counter"}, "value:        21"},
		{[]string{"delegate", "counter", "--commit-frequency", "30s"}, "frequency:    30s"},
		{[]string{"commit", "counter", "--value", "40"}, "value:        40"},
		{[]string{"show", "counter"}, "overdue:      false"},
		{[]string{"undelegate", "counter", "--value", "42"}, "custody:      Local"},
		{[]string{"double", "counter"}, "value:        84"},
		{[]string{"halve", "counter"}, "value:        42"},
		{[]string{"subtract", "counter", "2"}, "value:        40"},
	}

	for _, s := range steps {
		out, err := run(t, dir, s.args...)
		if err != nil {
			t.Fatalf("%v: %v\n%s", s.args, err, out)
		}
		if !strings.Contains(out, s.want) {
			t.Fatalf("%v: output missing %q:\n%s", s.args, s.want, out)
		}
	}
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "init", "counter"); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := run(t, dir, "init", "counter"); !errors.Is(err, custodian.ErrAlreadyExists) {
		t.Errorf("second init error = %v, want ErrAlreadyExists", err)
	}
	if _, err := run(t, dir, "subtract", "counter", "1"); !errors.Is(err, custodian.ErrUnderflow) {
		t.Errorf("subtract error = %v, want ErrUnderflow", err)
	}
	if _, err := run(t, dir, "commit", "counter", "--value", "1"); !errors.Is(err, custodian.ErrNotDelegated) {
		t.Errorf("commit error = %v, want ErrNotDelegated", err)
	}
	if _, err := run(t, dir, "add", "counter", "-1"); err == nil {
		t.Error("add with negative amount should fail")
	}

	if _, err := run(t, dir, "delegate", "counter"); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := run(t, dir, "increment", "counter"); !errors.Is(err, custodian.ErrCustodyViolation) {
		t.Errorf("increment while delegated error = %v, want ErrCustodyViolation", err)
	}
	if _, err := run(t, dir, "delegate", "counter"); !errors.Is(err, custodian.ErrAlreadyDelegated) {
		t.Errorf("second delegate error = %v, want ErrAlreadyDelegated", err)
	}
}

func TestCLI_InvalidBackend(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "show", "counter", "--backend", "redis"); !errors.Is(err, custodian.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0", 0, false},
		{"42", 42, false},
		{"4294967295", 4294967295, false},
		{"4294967296", 0, true},
		{"-1", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
