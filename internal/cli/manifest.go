package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// ManifestOptions holds flags for the manifest command.
type ManifestOptions struct {
	*RootOptions
	Set    string
	Before uint64
	After  uint64
	Diff   string
}

// NewManifestCommand creates the manifest command.
func NewManifestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManifestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the (hash, editing_version) manifest of an offer set",
		Long: `Print the sync manifest of an offer set, optionally restricted to a
modification-time window. --before is strict and --after inclusive, so
the two windows for the same time partition the set.

With --diff, read a peer's manifest (the JSON array printed by
"offerdb manifest --format json", data field only) and print the
entries this node should fetch.

Examples:
  offerdb manifest --set sell --after 1700000000
  offerdb manifest --set buy --diff peer.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", setSell, "offer set (sell|buy|mine)")
	cmd.Flags().Uint64Var(&opts.Before, "before", 0, "only offers modified before this unix time")
	cmd.Flags().Uint64Var(&opts.After, "after", 0, "only offers modified at or after this unix time")
	cmd.Flags().StringVar(&opts.Diff, "diff", "", "peer manifest to diff against (JSON)")
	cmd.MarkFlagsMutuallyExclusive("before", "after")

	return cmd
}

func (o *ManifestOptions) window(cmd *cobra.Command) store.Window {
	switch {
	case cmd.Flags().Changed("before"):
		return store.Before(o.Before)
	case cmd.Flags().Changed("after"):
		return store.After(o.After)
	}
	return store.All()
}

func runManifest(opts *ManifestOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if err := checkSetName(opts.Set); err != nil {
		return err
	}

	var remote []store.ManifestEntry
	if opts.Diff != "" {
		data, err := os.ReadFile(opts.Diff)
		if err != nil {
			return f.Fail(ExitCommandError, "failed to read peer manifest", err)
		}
		if err := json.Unmarshal(data, &remote); err != nil {
			return f.Fail(ExitCommandError, "failed to parse peer manifest", err)
		}
	}

	w := opts.window(cmd)
	return opts.withStore(cmd, f, func(st *store.Store) error {
		entries, err := selectSet(st, opts.Set).Manifest(cmd.Context(), w)
		if err != nil {
			return f.Fail(exitCodeFor(err), "failed to build manifest", err)
		}
		f.VerboseLog("%s manifest %s: %d entries", opts.Set, w, len(entries))

		if opts.Diff != "" {
			entries = store.Diff(entries, remote)
		}
		if entries == nil {
			entries = []store.ManifestEntry{}
		}
		if f.JSON() {
			return f.Success(entries)
		}
		for _, e := range entries {
			fmt.Fprintf(f.Writer, "%s %d\n", e.Hash, e.EditingVersion)
		}
		return nil
	})
}
