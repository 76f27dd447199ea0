package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/config"
	"github.com/dexnode/offerdb/internal/seed"
	"github.com/dexnode/offerdb/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides database.path from the config

	// Resolved by the root PersistentPreRunE before any subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the offerdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "offerdb",
		Short: "offerdb - local replica of the P2P offer book",
		Long: `offerdb inspects and maintains a node's offer store: the remote sell and
buy sets relayed by peers, the node's own offers, reference data
(countries, currencies, payment methods) and saved search filters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to offerdb.yaml")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database file (overrides database.path)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewOffersCommand(opts))
	cmd.AddCommand(NewManifestCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewRefdataCommand(opts))
	cmd.AddCommand(NewFiltersCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// resolve loads the config file, applies flag overrides and builds the logger.
func (o *RootOptions) resolve(stderr io.Writer) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	o.Config = cfg

	logger, err := newLogger(stderr, cfg.Log, o.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log config", err)
	}
	o.Logger = logger
	return nil
}

// newLogger builds the process logger. Logs always go to stderr so stdout
// carries only command output.
func newLogger(w io.Writer, cfg config.Log, verbose bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database, seeding from the configured
// catalog when one is set.
func (o *RootOptions) openStore(ctx context.Context) (*store.Store, error) {
	var provider seed.Provider
	if o.Config.Seed.Catalog != "" {
		catalog, err := seed.Load(o.Config.Seed.Catalog)
		if err != nil {
			return nil, err
		}
		provider = catalog
	}

	o.Logger.Debug("opening store", "path", o.Config.Database.Path)
	return store.Open(ctx, o.Config.Database.Path, store.Options{
		BusyTimeout: o.Config.Database.BusyTimeout,
		Logger:      o.Logger,
		Seed:        provider,
	})
}

// withStore opens the store, runs fn and closes the store. Open failures
// are reported through f.
func (o *RootOptions) withStore(cmd *cobra.Command, f *OutputFormatter, fn func(*store.Store) error) error {
	st, err := o.openStore(cmd.Context())
	if err != nil {
		return f.Fail(exitCodeFor(err), "failed to open database", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			o.Logger.Warn("close store", "error", cerr)
		}
	}()
	return fn(st)
}
