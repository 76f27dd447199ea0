package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the integrity and schema checks",
		Long: `Run the structural integrity check and compare the on-disk schema with
the declared one.

Examples:
  offerdb check --db offers.db

Exit codes:
  0 - database is healthy
  1 - integrity or schema check failed
  2 - command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	return cmd
}

// CheckResult is the JSON payload of check.
type CheckResult struct {
	Path      string `json:"path"`
	Version   int    `json:"version"`
	Integrity string `json:"integrity"`
	Schema    string `json:"schema"`
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	return opts.withStore(cmd, f, func(st *store.Store) error {
		if err := st.CheckIntegrity(ctx); err != nil {
			return f.Fail(ExitFailure, "integrity check failed", err)
		}
		f.VerboseLog("integrity check: ok")

		if err := st.VerifySchema(ctx); err != nil {
			return f.Fail(ExitFailure, "schema check failed", err)
		}
		f.VerboseLog("schema check: ok")

		version, err := st.Version(ctx)
		if err != nil {
			return f.Fail(ExitFailure, "failed to read version", err)
		}

		result := CheckResult{Path: st.Path(), Version: version, Integrity: "ok", Schema: "ok"}
		if f.JSON() {
			return f.Success(result)
		}
		fmt.Fprintf(f.Writer, "%s: ok (schema version %d)\n", result.Path, result.Version)
		return nil
	})
}
