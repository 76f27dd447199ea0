package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupLayout is the timestamp suffix of backup file names.
const BackupLayout = "2006-01-02-15-04"

// Backup writes a consistent snapshot of the store to
// dir/<db file>.<timestamp> with VACUUM INTO and returns its path. An
// empty dir means the directory of the database file.
//
// When keep > 0, only the keep most recent snapshots of this database in
// dir are retained afterwards.
func (s *Store) Backup(ctx context.Context, dir string, keep int) (string, error) {
	if dir == "" {
		dir = filepath.Dir(s.path)
	}
	base := filepath.Base(s.path)
	target := filepath.Join(dir, base+"."+s.clock.Now().UTC().Format(BackupLayout))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newError(CodeEngine, "backup", "", fmt.Errorf("create backup dir: %w", err))
	}
	if _, err := os.Stat(target); err == nil {
		return "", newError(CodeInvalidArgument, "backup", "", fmt.Errorf("%s already exists", target))
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return "", wrapError("backup", "", err)
	}
	s.logger.Info("backup written", "path", target)

	if keep > 0 {
		removed, err := pruneBackups(dir, base, keep)
		if err != nil {
			return target, newError(CodeEngine, "prune backups", "", err)
		}
		for _, p := range removed {
			s.logger.Info("backup removed", "path", p)
		}
	}
	return target, nil
}

// listBackups returns the snapshots of base in dir, oldest first.
// Only names with a well-formed timestamp suffix count.
func listBackups(dir, base string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prefix := base + "."
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := time.Parse(BackupLayout, strings.TrimPrefix(name, prefix)); err != nil {
			continue
		}
		names = append(names, name)
	}
	// The layout sorts lexically in time order.
	sort.Strings(names)
	return names, nil
}

// pruneBackups deletes all but the keep newest snapshots of base.
func pruneBackups(dir, base string, keep int) ([]string, error) {
	names, err := listBackups(dir, base)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(names) <= keep {
		return nil, nil
	}

	var removed []string
	for _, name := range names[:len(names)-keep] {
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// Vacuum rebuilds the database file to reclaim free pages.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return wrapError("vacuum", "", err)
	}
	return nil
}
