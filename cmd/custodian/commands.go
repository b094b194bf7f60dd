package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/custodian"
	"github.com/bft-labs/custodian/internal/adapters/ephemeral"
	"github.com/bft-labs/custodian/internal/adapters/fs"
	logAdapter "github.com/bft-labs/custodian/internal/adapters/log"
	"github.com/bft-labs/custodian/internal/cliconfig"
)

// cli carries the resolved configuration shared by all subcommands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	out     io.Writer
	log     zerolog.Logger
}

func newRootCmd(out io.Writer) (*cobra.Command, *cli) {
	c := &cli{
		cfg: cliconfig.DefaultConfig(),
		out: out,
		log: logAdapter.NewConsoleLogger("info"),
	}

	root := &cobra.Command{
		Use:               "custodian",
		Short:             "Delegate state records to an ephemeral executor and commit them back",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		PersistentPreRunE: c.loadConfig,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.custodian/config.toml)")
	pf.StringVar(&c.cfg.Backend, "backend", c.cfg.Backend, "record store: memory, fs or sqlite")
	pf.StringVar(&c.cfg.DataDir, "data-dir", c.cfg.DataDir, "record directory for the fs backend (default: $HOME/.custodian/records)")
	pf.StringVar(&c.cfg.DBPath, "db", c.cfg.DBPath, "database file for the sqlite backend (default: $HOME/.custodian/custodian.db)")
	pf.StringVar(&c.cfg.Namespace, "namespace", c.cfg.Namespace, "namespace mixed into derived record addresses")
	pf.StringVar(&c.cfg.Authority, "authority", c.cfg.Authority, "hex identity acting as record authority")
	pf.StringVar(&c.cfg.Executor, "executor", c.cfg.Executor, "hex identity of the ephemeral executor")
	pf.DurationVar(&c.cfg.CommitFrequency, "commit-frequency", c.cfg.CommitFrequency, "maximum interval between commits while delegated")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(
		c.initCmd(),
		c.opCmd("increment", "Add one to a record", custodian.Increment),
		c.opCmd("double", "Multiply a record by two", custodian.Double),
		c.opCmd("halve", "Divide a record by two, rounding down", custodian.Halve),
		c.amountCmd("add", "Add an amount to a record", custodian.Add),
		c.amountCmd("subtract", "Subtract an amount from a record", custodian.Subtract),
		c.delegateCmd(),
		c.commitCmd(),
		c.undelegateCmd(),
		c.showCmd(),
		c.watchCmd(),
	)
	return root, c
}

// loadConfig applies file and env config under the changed flags, then validates.
func (c *cli) loadConfig(cmd *cobra.Command, _ []string) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// CUSTODIAN_* override the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.log = logAdapter.NewConsoleLogger(c.cfg.LogLevel)
	c.log.Debug().Interface("config", c.cfg).Msg("configuration")
	return nil
}

// openStore opens the configured backend. The returned func releases it.
func (c *cli) openStore() (custodian.StorageProvider, func(), error) {
	switch c.cfg.Backend {
	case cliconfig.BackendMemory:
		s := custodian.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	case cliconfig.BackendFS:
		return custodian.NewFileStore(c.cfg.DataDir), func() {}, nil
	case cliconfig.BackendSQLite:
		s, err := custodian.OpenSQLiteStore(c.cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				c.log.Warn().Err(err).Msg("close database")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", custodian.ErrInvalidConfig, c.cfg.Backend)
	}
}

// withManager opens the store, builds a manager, and runs fn with it.
func (c *cli) withManager(ch custodian.ExecutorChannel, fn func(*custodian.Manager) error) error {
	store, closeStore, err := c.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []custodian.Option{
		custodian.WithNamespace(c.cfg.Namespace),
		custodian.WithLogger(logAdapter.NewZerologAdapterWithLogger(c.log)),
	}
	if ch != nil {
		opts = append(opts, custodian.WithExecutorChannel(ch))
	}
	m, err := custodian.New(store, opts...)
	if err != nil {
		return err
	}
	return fn(m)
}

func (c *cli) address(seed string) (custodian.Address, error) {
	addr, _, err := custodian.DeriveAddress(c.cfg.Namespace, []byte(seed))
	return addr, err
}

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <seed>",
		Short: "Create a local record owned by --authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := c.cfg.AuthorityID()
			if err != nil {
				return err
			}
			return c.withManager(nil, func(m *custodian.Manager) error {
				rec, err := m.Initialize(cmd.Context(), []byte(args[0]), authority)
				if err != nil {
					return err
				}
				printRecord(c.out, rec)
				return nil
			})
		},
	}
}

func (c *cli) opCmd(name, short string, op func() custodian.Op) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <seed>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.apply(cmd.Context(), args[0], op())
		},
	}
}

func (c *cli) amountCmd(name, short string, op func(uint32) custodian.Op) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <seed> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return c.apply(cmd.Context(), args[0], op(amount))
		},
	}
}

func (c *cli) apply(ctx context.Context, seed string, op custodian.Op) error {
	caller, err := c.cfg.AuthorityID()
	if err != nil {
		return err
	}
	addr, err := c.address(seed)
	if err != nil {
		return err
	}
	return c.withManager(nil, func(m *custodian.Manager) error {
		rec, err := m.Apply(ctx, addr, caller, op)
		if err != nil {
			return err
		}
		printRecord(c.out, rec)
		return nil
	})
}

func (c *cli) delegateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delegate <seed>",
		Short: "Hand custody of a record to --executor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grantor, err := c.cfg.AuthorityID()
			if err != nil {
				return err
			}
			executor, err := c.cfg.ExecutorID()
			if err != nil {
				return err
			}
			addr, err := c.address(args[0])
			if err != nil {
				return err
			}
			return c.withManager(nil, func(m *custodian.Manager) error {
				rec, grant, err := m.Delegate(cmd.Context(), addr, grantor, executor, c.cfg.CommitFrequency)
				if err != nil {
					return err
				}
				printRecord(c.out, rec)
				printGrant(c.out, grant)
				return nil
			})
		},
	}
}

func (c *cli) commitCmd() *cobra.Command {
	var value uint32
	cmd := &cobra.Command{
		Use:   "commit <seed>",
		Short: "Copy the executor's value into the primary store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.commit(cmd.Context(), args[0], value, false)
		},
	}
	cmd.Flags().Uint32Var(&value, "value", 0, "executor-side value to commit")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (c *cli) undelegateCmd() *cobra.Command {
	var value uint32
	cmd := &cobra.Command{
		Use:   "undelegate <seed>",
		Short: "Commit the executor's value and return custody",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.commit(cmd.Context(), args[0], value, true)
		},
	}
	cmd.Flags().Uint32Var(&value, "value", 0, "executor-side value to commit")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (c *cli) commit(ctx context.Context, seed string, value uint32, undelegate bool) error {
	committer, err := c.cfg.ExecutorID()
	if err != nil {
		return err
	}
	addr, err := c.address(seed)
	if err != nil {
		return err
	}
	return c.withManager(ephemeral.StaticValue(value), func(m *custodian.Manager) error {
		var rec custodian.StateRecord
		if undelegate {
			rec, err = m.CommitAndUndelegate(ctx, addr, committer)
		} else {
			rec, err = m.Commit(ctx, addr, committer)
		}
		if err != nil {
			return err
		}
		printRecord(c.out, rec)
		return nil
	})
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <seed>",
		Short: "Print a record, its grant and commit staleness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := c.address(args[0])
			if err != nil {
				return err
			}
			return c.withManager(nil, func(m *custodian.Manager) error {
				rec, err := m.Get(cmd.Context(), addr)
				if err != nil {
					return err
				}
				printRecord(c.out, rec)

				grant, err := m.Grant(cmd.Context(), addr)
				if errors.Is(err, custodian.ErrNotDelegated) {
					return nil
				}
				if err != nil {
					return err
				}
				printGrant(c.out, grant)

				rep, err := m.Staleness(cmd.Context(), addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "last commit:  %s\n", rep.Since.Format("2006-01-02T15:04:05Z07:00"))
				fmt.Fprintf(c.out, "deadline:     %s\n", rep.Deadline.Format("2006-01-02T15:04:05Z07:00"))
				fmt.Fprintf(c.out, "overdue:      %t\n", rep.Overdue)
				return nil
			})
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print records as they change (fs backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Backend != cliconfig.BackendFS {
				return fmt.Errorf("%w: watch requires the fs backend", custodian.ErrInvalidConfig)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					c.log.Info().Msg("received signal, stopping...")
					cancel()
				case <-ctx.Done():
				}
			}()

			w := fs.NewWatcher(custodian.NewFileStore(c.cfg.DataDir), logAdapter.NewZerologAdapterWithLogger(c.log))
			return w.Run(ctx, func(rec custodian.StateRecord) {
				printRecord(c.out, rec)
			})
		},
	}
}

func parseAmount(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return uint32(n), nil
}

func printRecord(w io.Writer, rec custodian.StateRecord) {
	fmt.Fprintf(w, "address:      %s\n", rec.Address.Hex())
	fmt.Fprintf(w, "value:        %d\n", rec.Value)
	fmt.Fprintf(w, "custody:      %s\n", rec.Custody)
	fmt.Fprintf(w, "authority:    %s\n", rec.Authority.Hex())
	if rec.Custody.IsDelegated() {
		fmt.Fprintf(w, "commits:      %d\n", rec.Commits)
	}
}

func printGrant(w io.Writer, g custodian.DelegationGrant) {
	fmt.Fprintf(w, "grant:        %s\n", g.ID.Hex())
	fmt.Fprintf(w, "executor:     %s\n", g.TargetExecutor.Hex())
	fmt.Fprintf(w, "frequency:    %s\n", g.CommitFrequency)
}
