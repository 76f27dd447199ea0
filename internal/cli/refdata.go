package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// NewRefdataCommand creates the refdata command group.
func NewRefdataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "List reference data (countries, currencies, payment methods)",
		Long: `List reference data in display order.

Examples:
  offerdb refdata countries
  offerdb refdata currencies --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRefdataListCommand(rootOpts, "countries", "List countries",
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter) error {
			list, err := st.Countries().List(cmd.Context())
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to list countries", err)
			}
			if f.JSON() {
				return f.Success(list)
			}
			for _, c := range list {
				fmt.Fprintf(f.Writer, "%s  %-24s %s\n", c.ISO, c.Name, enabledMark(c.Enabled))
			}
			return nil
		}))

	cmd.AddCommand(newRefdataListCommand(rootOpts, "currencies", "List currencies",
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter) error {
			list, err := st.Currencies().List(cmd.Context())
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to list currencies", err)
			}
			if f.JSON() {
				return f.Success(list)
			}
			for _, c := range list {
				fmt.Fprintf(f.Writer, "%s  %-4s %-24s %s\n", c.ISO, c.Symbol, c.Name, enabledMark(c.Enabled))
			}
			return nil
		}))

	cmd.AddCommand(newRefdataListCommand(rootOpts, "payments", "List payment methods",
		func(st *store.Store, cmd *cobra.Command, f *OutputFormatter) error {
			list, err := st.PaymentMethods().List(cmd.Context())
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to list payment methods", err)
			}
			if f.JSON() {
				return f.Success(list)
			}
			for _, p := range list {
				fmt.Fprintf(f.Writer, "%3d  %-12s %s\n", p.Type, p.Name, p.Description)
			}
			return nil
		}))

	return cmd
}

func newRefdataListCommand(opts *RootOptions, use, short string,
	list func(*store.Store, *cobra.Command, *OutputFormatter) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			return opts.withStore(cmd, f, func(st *store.Store) error {
				return list(st, cmd, f)
			})
		},
	}
}

func enabledMark(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
