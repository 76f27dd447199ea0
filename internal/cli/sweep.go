package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Set string
	Now uint64
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired remote offers and flag expired local ones",
		Long: `Sweep expired offers. Remote offers whose expiration is at or before
--now are deleted. Local offers whose expiration is before --now are
marked expired and kept.

Examples:
  offerdb sweep
  offerdb sweep --set buy --now 1700000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "all", "offer set (sell|buy|mine|all)")
	cmd.Flags().Uint64Var(&opts.Now, "now", 0, "sweep time as unix seconds (default: current time)")

	return cmd
}

// SweepResult is one entry of the JSON payload of sweep.
type SweepResult struct {
	Set   string `json:"set"`
	Swept int    `json:"swept"`
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	sets := setNames
	if opts.Set != "all" {
		if err := checkSetName(opts.Set); err != nil {
			return err
		}
		sets = []string{opts.Set}
	}
	now := opts.Now
	if !cmd.Flags().Changed("now") {
		now = uint64(time.Now().Unix())
	}

	return opts.withStore(cmd, f, func(st *store.Store) error {
		results := make([]SweepResult, 0, len(sets))
		for _, name := range sets {
			n, err := selectSet(st, name).SweepExpired(cmd.Context(), now)
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to sweep "+name, err)
			}
			results = append(results, SweepResult{Set: name, Swept: n})
		}
		if f.JSON() {
			return f.Success(results)
		}
		for _, r := range results {
			fmt.Fprintf(f.Writer, "%s: %d\n", r.Set, r.Swept)
		}
		return nil
	})
}
