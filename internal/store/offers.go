package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/offer"
)

// recordColumns selects the shared offer shape.
// Columns copied as NULL by a migration read back as zero values.
const recordColumns = `idTransaction, hash, pubKey, COALESCE(countryIso, ''), COALESCE(currencyIso, ''),
	COALESCE(paymentMethod, 0), COALESCE(price, 0), COALESCE(minAmount, 0), COALESCE(timeCreate, 0),
	COALESCE(timeToExpiration, 0), COALESCE(timeModification, 0), COALESCE(shortInfo, ''),
	COALESCE(details, ''), COALESCE(editingVersion, 0), editsign`

const recordInsertColumns = `idTransaction, hash, pubKey, countryIso, currencyIso, paymentMethod, price,
	minAmount, timeCreate, timeToExpiration, timeModification, shortInfo, details, editingVersion, editsign`

const recordInsertParams = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

const recordUpdateSet = `idTransaction = ?, pubKey = ?, countryIso = ?, currencyIso = ?, paymentMethod = ?,
	price = ?, minAmount = ?, timeCreate = ?, timeToExpiration = ?, timeModification = ?, shortInfo = ?,
	details = ?, editingVersion = ?, editsign = ?`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// atMost maps an inclusive unsigned bound onto the stored range:
// "col <= atMost(v)" matches exactly the rows with col <= v.
// Stored values never exceed offer.MaxValue.
func atMost(v uint64) int64 {
	if v > offer.MaxValue {
		return int64(offer.MaxValue)
	}
	return int64(v)
}

// below is the inclusive bound equivalent to "< v".
func below(v uint64) int64 {
	if v == 0 {
		return -1
	}
	return atMost(v - 1)
}

// recordArgs returns the insert parameters for r in recordInsertColumns order.
// Validate keeps every unsigned value within int64.
func recordArgs(r offer.Record) []any {
	return []any{
		r.TxID, r.Hash, r.PubKey, r.CountryISO, r.CurrencyISO, int64(r.PaymentMethod),
		int64(r.Price), int64(r.MinAmount), int64(r.TimeCreate), int64(r.TimeToExpiration),
		int64(r.TimeModification), r.ShortInfo, r.Details, int64(r.EditingVersion), r.EditSign,
	}
}

// updateArgs returns the UPDATE parameters for r, ending with the hash key.
func updateArgs(r offer.Record) []any {
	return []any{
		r.TxID, r.PubKey, r.CountryISO, r.CurrencyISO, int64(r.PaymentMethod),
		int64(r.Price), int64(r.MinAmount), int64(r.TimeCreate), int64(r.TimeToExpiration),
		int64(r.TimeModification), r.ShortInfo, r.Details, int64(r.EditingVersion), r.EditSign,
		r.Hash,
	}
}

// scanRecord reads recordColumns, followed by any extra destinations.
func scanRecord(sc scanner, r *offer.Record, extra ...any) error {
	var payment, price, minAmount, created, expires, modified, version int64
	dest := []any{
		&r.TxID, &r.Hash, &r.PubKey, &r.CountryISO, &r.CurrencyISO,
		&payment, &price, &minAmount, &created, &expires, &modified,
		&r.ShortInfo, &r.Details, &version, &r.EditSign,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	r.PaymentMethod = uint8(payment)
	r.Price = uint64(price)
	r.MinAmount = uint64(minAmount)
	r.TimeCreate = uint64(created)
	r.TimeToExpiration = uint64(expires)
	r.TimeModification = uint64(modified)
	r.EditingVersion = uint32(version)
	if len(r.PubKey) == 0 {
		r.PubKey = nil
	}
	if len(r.EditSign) == 0 {
		r.EditSign = nil
	}
	return nil
}

// offerTable holds the operations shared by every offer set.
type offerTable struct {
	s     *Store
	name  string
	table notify.Table
	local bool
}

// Name returns the SQL table name.
func (t *offerTable) Name() string { return t.name }

func (t *offerTable) done(op notify.Op, name string, err error) error {
	return t.s.finish(t.table, op, name, err)
}

// checkEdit confirms hash exists and that version raises the stored one.
func (t *offerTable) checkEdit(ctx context.Context, tx *sql.Tx, hash offer.Hash, version uint32) error {
	var stored int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(editingVersion, 0) FROM "+t.name+" WHERE hash = ?", hash).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return newError(CodeNotFound, "", "", fmt.Errorf("hash %s", hash))
	}
	if err != nil {
		return err
	}
	if int64(version) <= stored {
		return newError(CodeStaleVersion, "", "",
			fmt.Errorf("hash %s: editing version %d does not exceed stored %d", hash, version, stored))
	}
	return nil
}

// requireTxID rejects the zero transaction id, which every unanchored
// offer shares.
func requireTxID(txid offer.Hash) error {
	if txid.IsZero() {
		return newError(CodeInvalidArgument, "", "", fmt.Errorf("zero transaction id"))
	}
	return nil
}

// DeleteByTxID removes the offers anchored at txid. Absent ids are a no-op.
func (t *offerTable) DeleteByTxID(ctx context.Context, txid offer.Hash) error {
	err := requireTxID(txid)
	if err == nil {
		_, err = t.s.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE idTransaction = ?", txid)
	}
	return t.done(notify.Delete, "delete offer", err)
}

// DeleteByHash removes the offer with hash. Absent hashes are a no-op.
func (t *offerTable) DeleteByHash(ctx context.Context, hash offer.Hash) error {
	_, err := t.s.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE hash = ?", hash)
	return t.done(notify.Delete, "delete offer", err)
}

func (t *offerTable) exists(ctx context.Context, column string, key offer.Hash) (bool, error) {
	var found int
	err := t.s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+t.name+" WHERE "+column+" = ?)", key).Scan(&found)
	return found == 1, err
}

// Exists reports whether an offer anchored at txid is stored.
func (t *offerTable) Exists(ctx context.Context, txid offer.Hash) (bool, error) {
	if err := requireTxID(txid); err != nil {
		return false, t.done(notify.Read, "exists offer", err)
	}
	ok, err := t.exists(ctx, "idTransaction", txid)
	return ok, t.done(notify.Read, "exists offer", err)
}

// ExistsByHash reports whether the offer with hash is stored.
func (t *offerTable) ExistsByHash(ctx context.Context, hash offer.Hash) (bool, error) {
	ok, err := t.exists(ctx, "hash", hash)
	return ok, t.done(notify.Read, "exists offer", err)
}

func (t *offerTable) count(ctx context.Context, f Filter) (int, error) {
	query, params, err := compileCount(t.name, f, t.local)
	if err != nil {
		return 0, err
	}
	var n int
	err = t.s.db.QueryRowContext(ctx, query, params...).Scan(&n)
	return n, err
}

// Count returns the number of offers matching f.
func (t *offerTable) Count(ctx context.Context, f Filter) (int, error) {
	n, err := t.count(ctx, f)
	return n, t.done(notify.Read, "count offers", err)
}

// CountAll returns the number of stored offers.
func (t *offerTable) CountAll(ctx context.Context) (int, error) {
	return t.Count(ctx, Filter{})
}

// CountModified returns the number of offers inside w.
func (t *offerTable) CountModified(ctx context.Context, w Window) (int, error) {
	n, err := func() (int, error) {
		where, params, err := w.where()
		if err != nil {
			return 0, err
		}
		var n int
		err = t.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name+where, params...).Scan(&n)
		return n, err
	}()
	return n, t.done(notify.Read, "count offers", err)
}

// LastModification returns the greatest timeModification, or 0 when the
// set is empty.
func (t *offerTable) LastModification(ctx context.Context) (uint64, error) {
	var last int64
	err := t.s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(timeModification), 0) FROM "+t.name).Scan(&last)
	return uint64(last), t.done(notify.Read, "last modification", err)
}

// Manifest returns the distinct (hash, editingVersion) pairs inside w,
// ordered by hash then version.
func (t *offerTable) Manifest(ctx context.Context, w Window) ([]ManifestEntry, error) {
	entries, err := func() ([]ManifestEntry, error) {
		where, params, err := w.where()
		if err != nil {
			return nil, err
		}
		rows, err := t.s.db.QueryContext(ctx,
			"SELECT DISTINCT hash, COALESCE(editingVersion, 0) FROM "+t.name+where+
				" ORDER BY hash COLLATE BINARY, editingVersion", params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var entries []ManifestEntry
		for rows.Next() {
			var e ManifestEntry
			var version int64
			if err := rows.Scan(&e.Hash, &version); err != nil {
				return nil, err
			}
			e.EditingVersion = uint32(version)
			entries = append(entries, e)
		}
		return entries, rows.Err()
	}()
	return entries, t.done(notify.Read, "manifest", err)
}

// Hashes returns every stored hash in order.
func (t *offerTable) Hashes(ctx context.Context) ([]offer.Hash, error) {
	hashes, err := func() ([]offer.Hash, error) {
		rows, err := t.s.db.QueryContext(ctx, "SELECT hash FROM "+t.name+" ORDER BY hash COLLATE BINARY")
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var hashes []offer.Hash
		for rows.Next() {
			var h offer.Hash
			if err := rows.Scan(&h); err != nil {
				return nil, err
			}
			hashes = append(hashes, h)
		}
		return hashes, rows.Err()
	}()
	return hashes, t.done(notify.Read, "list hashes", err)
}

// OfferSet is a remote offer set: sell or buy offers relayed by peers.
type OfferSet struct {
	offerTable
}

func newOfferSet(s *Store, name string, table notify.Table) *OfferSet {
	return &OfferSet{offerTable{s: s, name: name, table: table}}
}

// Add inserts r with its caller-supplied editingVersion.
// Fails with CodeDuplicateKey if r.Hash is already stored.
func (o *OfferSet) Add(ctx context.Context, r offer.Record) error {
	err := r.Validate()
	if err == nil {
		_, err = o.s.db.ExecContext(ctx,
			"INSERT INTO "+o.name+" ("+recordInsertColumns+") VALUES ("+recordInsertParams+")",
			recordArgs(r)...)
	}
	return o.done(notify.Add, "add offer", err)
}

// Edit replaces every mutable field of the offer with r.Hash.
//
// The caller raises EditingVersion and TimeModification; the store only
// checks that the new version exceeds the stored one.
func (o *OfferSet) Edit(ctx context.Context, r offer.Record) error {
	err := r.Validate()
	if err == nil {
		err = o.s.inTx(ctx, func(tx *sql.Tx) error {
			if err := o.checkEdit(ctx, tx, r.Hash, r.EditingVersion); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"UPDATE "+o.name+" SET "+recordUpdateSet+" WHERE hash = ?", updateArgs(r)...)
			return err
		})
	}
	return o.done(notify.Edit, "edit offer", err)
}

func (o *OfferSet) get(ctx context.Context, column string, key offer.Hash) (offer.Record, error) {
	var r offer.Record
	row := o.s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM "+o.name+" WHERE "+column+" = ? ORDER BY hash COLLATE BINARY LIMIT 1", key)
	if err := scanRecord(row, &r); err != nil {
		return offer.Record{}, err
	}
	return r, nil
}

// Get returns the offer anchored at txid.
func (o *OfferSet) Get(ctx context.Context, txid offer.Hash) (offer.Record, error) {
	if err := requireTxID(txid); err != nil {
		return offer.Record{}, o.done(notify.Read, "get offer", err)
	}
	r, err := o.get(ctx, "idTransaction", txid)
	return r, o.done(notify.Read, "get offer", err)
}

// GetByHash returns the offer with hash.
func (o *OfferSet) GetByHash(ctx context.Context, hash offer.Hash) (offer.Record, error) {
	r, err := o.get(ctx, "hash", hash)
	return r, o.done(notify.Read, "get offer", err)
}

// List returns the offers matching f, ordered by hash.
func (o *OfferSet) List(ctx context.Context, f Filter, page Page) ([]offer.Record, error) {
	records, err := func() ([]offer.Record, error) {
		query, params, err := compileList(o.name, recordColumns, f, page, false)
		if err != nil {
			return nil, err
		}
		rows, err := o.s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var records []offer.Record
		for rows.Next() {
			var r offer.Record
			if err := scanRecord(rows, &r); err != nil {
				return nil, err
			}
			records = append(records, r)
		}
		return records, rows.Err()
	}()
	return records, o.done(notify.Read, "list offers", err)
}

// SweepExpired deletes every offer with timeToExpiration <= now and
// returns how many were removed.
func (o *OfferSet) SweepExpired(ctx context.Context, now uint64) (int, error) {
	res, err := o.s.db.ExecContext(ctx, "DELETE FROM "+o.name+" WHERE timeToExpiration <= ?", atMost(now))
	n := affected(res, err)
	if err == nil && n > 0 {
		o.s.logger.Info("swept expired offers", "table", o.name, "deleted", n, "now", now)
	}
	return n, o.done(notify.Delete, "sweep expired", err)
}

// affected returns the row count of a successful exec.
func affected(res sql.Result, err error) int {
	if err != nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
