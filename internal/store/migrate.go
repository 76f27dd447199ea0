package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dexnode/offerdb/internal/seed"
)

// migration upgrades a stale store to the catalog's schema.
//
// The whole sequence runs in one transaction on the caller's connection:
// drop indexes, rename every table aside, create the declared schema,
// copy rows through the column mapping, drop the renamed tables, rewrite
// the version row, reseed empty reference tables, verify. Any failure
// rolls back and leaves the prior schema in place.
type migration struct {
	catalog *Catalog
	seed    seed.Provider
}

// run executes the migration inside tx. The caller owns commit/rollback.
func (m *migration) run(ctx context.Context, tx querier) error {
	indexes, err := listObjects(ctx, tx, "index")
	if err != nil {
		return err
	}
	for _, name := range indexes {
		if _, err := tx.ExecContext(ctx, "DROP INDEX "+quoteIdent(name)); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}

	tables, err := listObjects(ctx, tx, "table")
	if err != nil {
		return err
	}
	for _, name := range tables {
		stmt := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(name), quoteIdent(name+legacyTableSuffix))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rename table %s: %w", name, err)
		}
	}

	if err := m.catalog.create(ctx, tx); err != nil {
		return err
	}

	for _, name := range tables {
		if name == tableVersion {
			continue
		}
		if _, declared := m.catalog.table(name); !declared {
			continue
		}
		if err := m.copyTable(ctx, tx, name); err != nil {
			return err
		}
	}

	for _, name := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+quoteIdent(name+legacyTableSuffix)); err != nil {
			return fmt.Errorf("drop legacy table %s: %w", name, err)
		}
	}

	if err := writeVersion(ctx, tx, m.catalog.Version); err != nil {
		return err
	}
	if err := seedReferenceData(ctx, tx, m.seed); err != nil {
		return err
	}
	return verifySchema(ctx, tx, m.catalog)
}

// copyTable moves rows from name_old into name using the column mapping.
func (m *migration) copyTable(ctx context.Context, tx querier, name string) error {
	target, err := tableColumns(ctx, tx, name)
	if err != nil {
		return err
	}
	legacy, err := tableColumns(ctx, tx, name+legacyTableSuffix)
	if err != nil {
		return err
	}
	stmt := copyStatement(name, target, legacy, m.catalog.Mappings[name])
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("copy table %s: %w", name, err)
	}
	return nil
}

// copyStatement builds INSERT INTO name (...) SELECT ... FROM name_old.
func copyStatement(name string, target, legacy []string, mapping Mapping) string {
	present := make(map[string]bool, len(legacy))
	for _, col := range legacy {
		present[col] = true
	}

	cols := make([]string, 0, len(target))
	exprs := make([]string, 0, len(target))
	for _, col := range target {
		cols = append(cols, quoteIdent(col))
		switch {
		case present[col]:
			exprs = append(exprs, quoteIdent(col))
		case mapping.Fill[col] != "":
			exprs = append(exprs, mapping.Fill[col])
		default:
			exprs = append(exprs, "NULL")
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		quoteIdent(name),
		strings.Join(cols, ", "),
		strings.Join(exprs, ", "),
		quoteIdent(name+legacyTableSuffix))
}

// listObjects returns user objects of a type that have sql text.
func listObjects(ctx context.Context, q querier, typ string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = ? AND sql IS NOT NULL AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name COLLATE BINARY ASC
	`, typ)
	if err != nil {
		return nil, fmt.Errorf("list %s objects: %w", typ, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s name: %w", typ, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s objects: %w", typ, err)
	}
	return names, nil
}

// tableColumns returns column names in declaration order.
func tableColumns(ctx context.Context, q querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("columns of %s: table not found", table)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
