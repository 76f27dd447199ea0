package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dexnode/offerdb/internal/notify"
)

// MaxFilterLen bounds a content filter in runes.
const MaxFilterLen = 100

// Filters is the local set of opaque content filters.
type Filters struct {
	s *Store
}

func newFilters(s *Store) *Filters {
	return &Filters{s: s}
}

func (f *Filters) done(op notify.Op, name string, err error) error {
	return f.s.finish(notify.FiltersList, op, name, err)
}

// Add stores filter. Fails with CodeDuplicateKey if it is already present.
func (f *Filters) Add(ctx context.Context, filter string) error {
	err := checkFilter(filter)
	if err == nil {
		_, err = f.s.db.ExecContext(ctx, "INSERT INTO filterList (filter) VALUES (?)", filter)
	}
	return f.done(notify.Add, "add filter", err)
}

func checkFilter(filter string) error {
	switch n := utf8.RuneCountInString(filter); {
	case n == 0:
		return newError(CodeInvalidArgument, "", "", fmt.Errorf("empty filter"))
	case n > MaxFilterLen:
		return newError(CodeInvalidArgument, "", "", fmt.Errorf("filter is %d runes, max %d", n, MaxFilterLen))
	}
	return nil
}

// Delete removes filter. Absent filters are a no-op.
func (f *Filters) Delete(ctx context.Context, filter string) error {
	_, err := f.s.db.ExecContext(ctx, "DELETE FROM filterList WHERE filter = ?", filter)
	return f.done(notify.Delete, "delete filter", err)
}

// List returns every filter in byte order.
func (f *Filters) List(ctx context.Context) ([]string, error) {
	filters, err := func() ([]string, error) {
		rows, err := f.s.db.QueryContext(ctx, "SELECT filter FROM filterList ORDER BY filter COLLATE BINARY")
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var filters []string
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return nil, err
			}
			filters = append(filters, s)
		}
		return filters, rows.Err()
	}()
	return filters, f.done(notify.Read, "list filters", err)
}
