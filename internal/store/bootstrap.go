package store

import (
	"context"
	"fmt"

	"github.com/dexnode/offerdb/internal/seed"
)

// bootstrap creates the declared schema in an empty database, writes the
// version row and seeds reference data.
func bootstrap(ctx context.Context, q querier, c *Catalog, p seed.Provider) error {
	if err := c.create(ctx, q); err != nil {
		return err
	}
	if err := writeVersion(ctx, q, c.Version); err != nil {
		return err
	}
	return seedReferenceData(ctx, q, p)
}

// seedReferenceData fills each empty reference table from p.
// Tables that already hold rows are left untouched.
// Currencies go first because countries resolve currencyId from them.
func seedReferenceData(ctx context.Context, q querier, p seed.Provider) error {
	if p == nil {
		return nil
	}

	empty, err := tableEmpty(ctx, q, tableCurrencies)
	if err != nil {
		return err
	}
	if empty {
		for _, c := range p.Currencies() {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO currencies (iso, name, symbol, enabled, sortOrder)
				VALUES (?, ?, ?, ?, ?)
			`, c.ISO, c.Name, c.Symbol, c.Enabled, c.SortOrder); err != nil {
				return fmt.Errorf("seed currency %s: %w", c.ISO, err)
			}
		}
	}

	empty, err = tableEmpty(ctx, q, tableCountries)
	if err != nil {
		return err
	}
	if empty {
		// Countries are always seeded enabled; sortOrder is the position
		// in the provider's ordering.
		for order, c := range p.Countries() {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO countries (iso, name, currencyId, enabled, sortOrder)
				SELECT ?, ?, currencies.id, 1, ? FROM currencies WHERE iso = ?
			`, c.ISO, c.Name, order, c.Currency); err != nil {
				return fmt.Errorf("seed country %s: %w", c.ISO, err)
			}
		}
	}

	empty, err = tableEmpty(ctx, q, tablePayments)
	if err != nil {
		return err
	}
	if empty {
		for _, pm := range p.PaymentMethods() {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO paymentMethods (type, name, description, sortOrder)
				VALUES (?, ?, ?, ?)
			`, pm.Type, pm.Name, pm.Description, pm.SortOrder); err != nil {
				return fmt.Errorf("seed payment method %d: %w", pm.Type, err)
			}
		}
	}
	return nil
}

// tableEmpty reports whether table has no rows.
// table is always one of the package's own table names.
func tableEmpty(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n == 0, nil
}
