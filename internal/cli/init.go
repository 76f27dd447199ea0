package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the offer database",
		Long: `Open the configured database and bring it to the current schema.

An empty file is created and seeded with reference data. A database
written by an older (or newer) schema version is migrated in one
transaction, keeping every offer. A current database is only verified.

Examples:
  offerdb init --db offers.db
  offerdb init --config offerdb.yaml --format json

Exit codes:
  0 - database is ready
  1 - integrity, schema or migration failure
  2 - command error (bad flags, unreadable config or seed catalog)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	return cmd
}

// InitResult is the JSON payload of init.
type InitResult struct {
	Path        string `json:"path"`
	State       string `json:"state"`
	FromVersion int    `json:"from_version"`
	Version     int    `json:"version"`
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	return opts.withStore(cmd, f, func(st *store.Store) error {
		report := st.Report()
		result := InitResult{
			Path:        st.Path(),
			State:       report.State.String(),
			FromVersion: report.FromVersion,
			Version:     report.Version,
		}
		if f.JSON() {
			return f.Success(result)
		}

		fmt.Fprintf(f.Writer, "Database: %s\n", result.Path)
		switch report.State {
		case store.StateEmpty:
			fmt.Fprintf(f.Writer, "Created schema version %d\n", result.Version)
		case store.StateStale:
			fmt.Fprintf(f.Writer, "Migrated schema version %d -> %d\n", result.FromVersion, result.Version)
		default:
			fmt.Fprintf(f.Writer, "Schema version %d is current\n", result.Version)
		}
		return nil
	})
}
