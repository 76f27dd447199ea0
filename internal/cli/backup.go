package cli

import (
	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/store"
)

// BackupOptions holds flags for the backup command.
type BackupOptions struct {
	*RootOptions
	Dir  string
	Keep int
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped snapshot of the database",
		Long: `Write a consistent snapshot of the database to
<dir>/<db file>.<YYYY-MM-DD-HH-MM> (UTC) and prune old snapshots.

--dir and --keep default to backup.dir and backup.keep from the config.
An empty dir means the database's own directory; keep 0 disables pruning.

Examples:
  offerdb backup
  offerdb backup --dir /var/backups/offerdb --keep 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "backup directory (default: backup.dir)")
	cmd.Flags().IntVar(&opts.Keep, "keep", 0, "snapshots to keep (default: backup.keep)")

	return cmd
}

func runBackup(opts *BackupOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	dir := opts.Config.Backup.Dir
	if cmd.Flags().Changed("dir") {
		dir = opts.Dir
	}
	keep := opts.Config.Backup.Keep
	if cmd.Flags().Changed("keep") {
		keep = opts.Keep
	}

	return opts.withStore(cmd, f, func(st *store.Store) error {
		path, err := st.Backup(cmd.Context(), dir, keep)
		if err != nil {
			return f.Fail(exitCodeFor(err), "backup failed", err)
		}
		if f.JSON() {
			return f.Success(map[string]string{"path": path})
		}
		return f.Success(path)
	})
}
