package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/offer"
)

// refEntry is one cached reference row with its persisted sort order.
type refEntry[V any] struct {
	item  V
	order int
}

// refCache is a read-through, write-through cache over one reference table.
//
// The first read loads the whole table ordered by (sortOrder, key). Writes
// go to the table first and are applied to memory only on success; a
// failed write drops the cache so the next read reloads from the table.
// One mutex guards each instance, held across the table write so memory
// and table change together.
type refCache[K cmp.Ordered, V any] struct {
	mu      sync.Mutex
	loaded  bool
	entries []refEntry[V]
	keyOf   func(V) K
	load    func(ctx context.Context) ([]refEntry[V], error)
}

func (c *refCache[K, V]) ensure(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	entries, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.entries = entries
	c.loaded = true
	return nil
}

func (c *refCache[K, V]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
}

func (c *refCache[K, V]) drop() {
	c.loaded = false
	c.entries = nil
}

func (c *refCache[K, V]) list(ctx context.Context) ([]V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(ctx); err != nil {
		return nil, err
	}
	items := make([]V, len(c.entries))
	for i, e := range c.entries {
		items[i] = e.item
	}
	return items, nil
}

func (c *refCache[K, V]) get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	if err := c.ensure(ctx); err != nil {
		return zero, err
	}
	i := c.index(key)
	if i < 0 {
		return zero, newError(CodeNotFound, "", "", fmt.Errorf("key %v", key))
	}
	return c.entries[i].item, nil
}

func (c *refCache[K, V]) index(key K) int {
	return slices.IndexFunc(c.entries, func(e refEntry[V]) bool { return c.keyOf(e.item) == key })
}

func (c *refCache[K, V]) compare(a, b refEntry[V]) int {
	if n := cmp.Compare(a.order, b.order); n != 0 {
		return n
	}
	return cmp.Compare(c.keyOf(a.item), c.keyOf(b.item))
}

// mutate runs write against the table, then apply against memory.
func (c *refCache[K, V]) mutate(ctx context.Context, write func() error, apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(ctx); err != nil {
		return err
	}
	if err := write(); err != nil {
		c.drop()
		return err
	}
	apply()
	return nil
}

func (c *refCache[K, V]) add(ctx context.Context, item V, order int, write func() error) error {
	return c.mutate(ctx, write, func() {
		e := refEntry[V]{item: item, order: order}
		i, _ := slices.BinarySearchFunc(c.entries, e, c.compare)
		c.entries = slices.Insert(c.entries, i, e)
	})
}

// update replaces the cached item for key. The write must report whether
// a row matched.
func (c *refCache[K, V]) update(ctx context.Context, item V, write func() (bool, error)) error {
	key := c.keyOf(item)
	return c.mutate(ctx, func() error {
		ok, err := write()
		if err != nil {
			return err
		}
		if !ok {
			return newError(CodeNotFound, "", "", fmt.Errorf("key %v", key))
		}
		return nil
	}, func() {
		if i := c.index(key); i >= 0 {
			c.entries[i].item = item
		}
	})
}

func (c *refCache[K, V]) remove(ctx context.Context, key K, write func() error) error {
	return c.mutate(ctx, write, func() {
		if i := c.index(key); i >= 0 {
			c.entries = slices.Delete(c.entries, i, i+1)
		}
	})
}

// replaceAll rewrites the whole set in the order given. items must be a
// permutation of the cached keys; anything else is rejected before any
// write happens.
func (c *refCache[K, V]) replaceAll(ctx context.Context, items []V, write func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensure(ctx); err != nil {
		return err
	}
	if err := c.checkPermutation(items); err != nil {
		return err
	}
	if err := write(); err != nil {
		c.drop()
		return err
	}
	entries := make([]refEntry[V], len(items))
	for i, item := range items {
		entries[i] = refEntry[V]{item: item, order: i}
	}
	c.entries = entries
	return nil
}

func (c *refCache[K, V]) checkPermutation(items []V) error {
	if len(items) != len(c.entries) {
		return newError(CodeInvalidArgument, "", "",
			fmt.Errorf("replace all: got %d items, have %d", len(items), len(c.entries)))
	}
	want := make(map[K]bool, len(c.entries))
	for _, e := range c.entries {
		want[c.keyOf(e.item)] = true
	}
	for _, item := range items {
		key := c.keyOf(item)
		if !want[key] {
			return newError(CodeInvalidArgument, "", "",
				fmt.Errorf("replace all: key %v is unknown or repeated", key))
		}
		delete(want, key)
	}
	return nil
}

// Countries caches the countries table keyed by ISO code.
type Countries struct {
	s     *Store
	cache refCache[string, offer.CountryInfo]
}

func newCountries(s *Store) *Countries {
	c := &Countries{s: s}
	c.cache.keyOf = func(v offer.CountryInfo) string { return v.ISO }
	c.cache.load = c.load
	return c
}

func (c *Countries) load(ctx context.Context) ([]refEntry[offer.CountryInfo], error) {
	rows, err := c.s.db.QueryContext(ctx, `
		SELECT iso, COALESCE(name, ''), COALESCE(enabled, 0), COALESCE(sortOrder, 0)
		FROM countries
		ORDER BY sortOrder, iso
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []refEntry[offer.CountryInfo]
	for rows.Next() {
		var e refEntry[offer.CountryInfo]
		if err := rows.Scan(&e.item.ISO, &e.item.Name, &e.item.Enabled, &e.order); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *Countries) done(op notify.Op, name string, err error) error {
	return c.s.finish(notify.Countries, op, name, err)
}

// List returns every country in sort order.
func (c *Countries) List(ctx context.Context) ([]offer.CountryInfo, error) {
	items, err := c.cache.list(ctx)
	return items, c.done(notify.Read, "list countries", err)
}

// Get returns the country with iso.
func (c *Countries) Get(ctx context.Context, iso string) (offer.CountryInfo, error) {
	item, err := c.cache.get(ctx, iso)
	return item, c.done(notify.Read, "get country", err)
}

// Add inserts a country whose currency is the stored currency currencyISO.
// Fails with CodeNotFound if that currency does not exist.
func (c *Countries) Add(ctx context.Context, info offer.CountryInfo, currencyISO string, sortOrder int) error {
	err := c.cache.add(ctx, info, sortOrder, func() error {
		res, err := c.s.db.ExecContext(ctx, `
			INSERT INTO countries (iso, name, enabled, currencyId, sortOrder)
			SELECT ?, ?, ?, id, ? FROM currencies WHERE iso = ?
		`, info.ISO, info.Name, info.Enabled, sortOrder, currencyISO)
		if err != nil {
			return err
		}
		if affected(res, nil) == 0 {
			return newError(CodeNotFound, "", "", fmt.Errorf("currency %s", currencyISO))
		}
		return nil
	})
	return c.done(notify.Add, "add country", err)
}

// Update rewrites the name and enabled flag of info.ISO.
func (c *Countries) Update(ctx context.Context, info offer.CountryInfo) error {
	err := c.cache.update(ctx, info, func() (bool, error) {
		res, err := c.s.db.ExecContext(ctx,
			"UPDATE countries SET name = ?, enabled = ? WHERE iso = ?", info.Name, info.Enabled, info.ISO)
		return affected(res, err) > 0, err
	})
	return c.done(notify.Edit, "edit country", err)
}

// Delete removes the country with iso. Absent codes are a no-op.
func (c *Countries) Delete(ctx context.Context, iso string) error {
	err := c.cache.remove(ctx, iso, func() error {
		_, err := c.s.db.ExecContext(ctx, "DELETE FROM countries WHERE iso = ?", iso)
		return err
	})
	return c.done(notify.Delete, "delete country", err)
}

// ReplaceAll rewrites the enabled flag and sort order of every country
// from list, whose position becomes the sort order. list must name each
// stored country exactly once.
func (c *Countries) ReplaceAll(ctx context.Context, list []offer.CountryInfo) error {
	err := c.cache.replaceAll(ctx, list, func() error {
		return c.s.inTx(ctx, func(tx *sql.Tx) error {
			for i, info := range list {
				if _, err := tx.ExecContext(ctx,
					"UPDATE countries SET name = ?, enabled = ?, sortOrder = ? WHERE iso = ?",
					info.Name, info.Enabled, i, info.ISO); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return c.done(notify.Edit, "replace countries", err)
}

// Invalidate drops the cached rows; the next read reloads the table.
func (c *Countries) Invalidate() { c.cache.invalidate() }

// Currencies caches the currencies table keyed by ISO code.
type Currencies struct {
	s     *Store
	cache refCache[string, offer.CurrencyInfo]
}

func newCurrencies(s *Store) *Currencies {
	c := &Currencies{s: s}
	c.cache.keyOf = func(v offer.CurrencyInfo) string { return v.ISO }
	c.cache.load = c.load
	return c
}

func (c *Currencies) load(ctx context.Context) ([]refEntry[offer.CurrencyInfo], error) {
	rows, err := c.s.db.QueryContext(ctx, `
		SELECT iso, COALESCE(name, ''), COALESCE(symbol, ''), COALESCE(enabled, 0), COALESCE(sortOrder, 0)
		FROM currencies
		ORDER BY sortOrder, iso
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []refEntry[offer.CurrencyInfo]
	for rows.Next() {
		var e refEntry[offer.CurrencyInfo]
		if err := rows.Scan(&e.item.ISO, &e.item.Name, &e.item.Symbol, &e.item.Enabled, &e.order); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *Currencies) done(op notify.Op, name string, err error) error {
	return c.s.finish(notify.Currencies, op, name, err)
}

// List returns every currency in sort order.
func (c *Currencies) List(ctx context.Context) ([]offer.CurrencyInfo, error) {
	items, err := c.cache.list(ctx)
	return items, c.done(notify.Read, "list currencies", err)
}

// Get returns the currency with iso.
func (c *Currencies) Get(ctx context.Context, iso string) (offer.CurrencyInfo, error) {
	item, err := c.cache.get(ctx, iso)
	return item, c.done(notify.Read, "get currency", err)
}

// Add inserts a currency. Fails with CodeDuplicateKey if iso exists.
func (c *Currencies) Add(ctx context.Context, info offer.CurrencyInfo, sortOrder int) error {
	err := c.cache.add(ctx, info, sortOrder, func() error {
		_, err := c.s.db.ExecContext(ctx,
			"INSERT INTO currencies (iso, name, symbol, enabled, sortOrder) VALUES (?, ?, ?, ?, ?)",
			info.ISO, info.Name, info.Symbol, info.Enabled, sortOrder)
		return err
	})
	return c.done(notify.Add, "add currency", err)
}

// Update rewrites the name, symbol and enabled flag of info.ISO.
func (c *Currencies) Update(ctx context.Context, info offer.CurrencyInfo) error {
	err := c.cache.update(ctx, info, func() (bool, error) {
		res, err := c.s.db.ExecContext(ctx,
			"UPDATE currencies SET name = ?, symbol = ?, enabled = ? WHERE iso = ?",
			info.Name, info.Symbol, info.Enabled, info.ISO)
		return affected(res, err) > 0, err
	})
	return c.done(notify.Edit, "edit currency", err)
}

// Delete removes the currency with iso. Absent codes are a no-op.
func (c *Currencies) Delete(ctx context.Context, iso string) error {
	err := c.cache.remove(ctx, iso, func() error {
		_, err := c.s.db.ExecContext(ctx, "DELETE FROM currencies WHERE iso = ?", iso)
		return err
	})
	return c.done(notify.Delete, "delete currency", err)
}

// ReplaceAll rewrites every currency from list, whose position becomes
// the sort order. list must name each stored currency exactly once.
func (c *Currencies) ReplaceAll(ctx context.Context, list []offer.CurrencyInfo) error {
	err := c.cache.replaceAll(ctx, list, func() error {
		return c.s.inTx(ctx, func(tx *sql.Tx) error {
			for i, info := range list {
				if _, err := tx.ExecContext(ctx,
					"UPDATE currencies SET name = ?, symbol = ?, enabled = ?, sortOrder = ? WHERE iso = ?",
					info.Name, info.Symbol, info.Enabled, i, info.ISO); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return c.done(notify.Edit, "replace currencies", err)
}

// Invalidate drops the cached rows; the next read reloads the table.
func (c *Currencies) Invalidate() { c.cache.invalidate() }

// PaymentMethods caches the paymentMethods table keyed by type.
type PaymentMethods struct {
	s     *Store
	cache refCache[uint8, offer.PaymentMethodInfo]
}

func newPaymentMethods(s *Store) *PaymentMethods {
	p := &PaymentMethods{s: s}
	p.cache.keyOf = func(v offer.PaymentMethodInfo) uint8 { return v.Type }
	p.cache.load = p.load
	return p
}

func (p *PaymentMethods) load(ctx context.Context) ([]refEntry[offer.PaymentMethodInfo], error) {
	rows, err := p.s.db.QueryContext(ctx, `
		SELECT type, COALESCE(name, ''), COALESCE(description, ''), COALESCE(sortOrder, 0)
		FROM paymentMethods
		ORDER BY sortOrder, type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []refEntry[offer.PaymentMethodInfo]
	for rows.Next() {
		var e refEntry[offer.PaymentMethodInfo]
		var typ int64
		if err := rows.Scan(&typ, &e.item.Name, &e.item.Description, &e.order); err != nil {
			return nil, err
		}
		e.item.Type = uint8(typ)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PaymentMethods) done(op notify.Op, name string, err error) error {
	return p.s.finish(notify.PaymentMethods, op, name, err)
}

// List returns every payment method in sort order.
func (p *PaymentMethods) List(ctx context.Context) ([]offer.PaymentMethodInfo, error) {
	items, err := p.cache.list(ctx)
	return items, p.done(notify.Read, "list payment methods", err)
}

// Get returns the payment method with typ.
func (p *PaymentMethods) Get(ctx context.Context, typ uint8) (offer.PaymentMethodInfo, error) {
	item, err := p.cache.get(ctx, typ)
	return item, p.done(notify.Read, "get payment method", err)
}

// Add inserts a payment method. Type 0 is reserved as the filter wildcard.
func (p *PaymentMethods) Add(ctx context.Context, info offer.PaymentMethodInfo, sortOrder int) error {
	var err error
	if info.Type == 0 {
		err = newError(CodeInvalidArgument, "", "", fmt.Errorf("payment method type 0 is reserved"))
	} else {
		err = p.cache.add(ctx, info, sortOrder, func() error {
			_, err := p.s.db.ExecContext(ctx,
				"INSERT INTO paymentMethods (type, name, description, sortOrder) VALUES (?, ?, ?, ?)",
				int64(info.Type), info.Name, info.Description, sortOrder)
			return err
		})
	}
	return p.done(notify.Add, "add payment method", err)
}

// Update rewrites the name and description of info.Type.
func (p *PaymentMethods) Update(ctx context.Context, info offer.PaymentMethodInfo) error {
	err := p.cache.update(ctx, info, func() (bool, error) {
		res, err := p.s.db.ExecContext(ctx,
			"UPDATE paymentMethods SET name = ?, description = ? WHERE type = ?",
			info.Name, info.Description, int64(info.Type))
		return affected(res, err) > 0, err
	})
	return p.done(notify.Edit, "edit payment method", err)
}

// Delete removes the payment method typ. Absent types are a no-op.
func (p *PaymentMethods) Delete(ctx context.Context, typ uint8) error {
	err := p.cache.remove(ctx, typ, func() error {
		_, err := p.s.db.ExecContext(ctx, "DELETE FROM paymentMethods WHERE type = ?", int64(typ))
		return err
	})
	return p.done(notify.Delete, "delete payment method", err)
}

// ReplaceAll rewrites every payment method from list, whose position
// becomes the sort order. list must name each stored type exactly once.
func (p *PaymentMethods) ReplaceAll(ctx context.Context, list []offer.PaymentMethodInfo) error {
	err := p.cache.replaceAll(ctx, list, func() error {
		return p.s.inTx(ctx, func(tx *sql.Tx) error {
			for i, info := range list {
				if _, err := tx.ExecContext(ctx,
					"UPDATE paymentMethods SET name = ?, description = ?, sortOrder = ? WHERE type = ?",
					info.Name, info.Description, i, int64(info.Type)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return p.done(notify.Edit, "replace payment methods", err)
}

// Invalidate drops the cached rows; the next read reloads the table.
func (p *PaymentMethods) Invalidate() { p.cache.invalidate() }
