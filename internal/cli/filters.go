package cli

import (
	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// NewFiltersCommand creates the filters command group.
func NewFiltersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage saved search filters",
		Long: `Saved filters are short search strings kept for the UI.

Examples:
  offerdb filters add "USD cash"
  offerdb filters list
  offerdb filters delete "USD cash"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List saved filters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withStore(cmd, f, func(st *store.Store) error {
				list, err := st.Filters().List(cmd.Context())
				if err != nil {
					return f.Fail(exitCodeFor(err), "failed to list filters", err)
				}
				if f.JSON() {
					if list == nil {
						list = []string{}
					}
					return f.Success(list)
				}
				for _, filter := range list {
					if err := f.Success(filter); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "add <filter>",
		Short:         "Save a filter",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withStore(cmd, f, func(st *store.Store) error {
				if err := st.Filters().Add(cmd.Context(), args[0]); err != nil {
					return f.Fail(exitCodeFor(err), "failed to add filter", err)
				}
				if f.JSON() {
					return f.Success(map[string]string{"added": args[0]})
				}
				return f.Success("added " + args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <filter>",
		Short:         "Remove a saved filter",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return rootOpts.withStore(cmd, f, func(st *store.Store) error {
				if err := st.Filters().Delete(cmd.Context(), args[0]); err != nil {
					return f.Fail(exitCodeFor(err), "failed to delete filter", err)
				}
				if f.JSON() {
					return f.Success(map[string]string{"deleted": args[0]})
				}
				return f.Success("deleted " + args[0])
			})
		},
	})

	return cmd
}
