package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/offer"
)

const myOfferColumns = recordColumns + `, COALESCE(type, 0), COALESCE(status, 0)`

// MyOfferSet holds offers authored on this node. Unlike the remote sets,
// expired offers are flagged rather than deleted.
type MyOfferSet struct {
	offerTable
}

func newMyOfferSet(s *Store) *MyOfferSet {
	return &MyOfferSet{offerTable{s: s, name: tableMyOffers, table: notify.MyOffers, local: true}}
}

// Add inserts o with its caller-supplied editingVersion.
// Fails with CodeDuplicateKey if o.Hash is already stored.
func (m *MyOfferSet) Add(ctx context.Context, o offer.MyOffer) error {
	err := o.Validate()
	if err == nil {
		args := append(recordArgs(o.Record), int64(o.Type), int64(o.Status))
		_, err = m.s.db.ExecContext(ctx,
			"INSERT INTO "+m.name+" ("+recordInsertColumns+", type, status) VALUES ("+recordInsertParams+", ?, ?)",
			args...)
	}
	return m.done(notify.Add, "add offer", err)
}

// Edit replaces every mutable field of the offer with o.Hash, including
// type and status.
func (m *MyOfferSet) Edit(ctx context.Context, o offer.MyOffer) error {
	err := o.Validate()
	if err == nil {
		err = m.s.inTx(ctx, func(tx *sql.Tx) error {
			if err := m.checkEdit(ctx, tx, o.Hash, o.EditingVersion); err != nil {
				return err
			}
			args := updateArgs(o.Record)
			args = append(args[:len(args)-1], int64(o.Type), int64(o.Status), o.Hash)
			_, err := tx.ExecContext(ctx,
				"UPDATE "+m.name+" SET "+recordUpdateSet+", type = ?, status = ? WHERE hash = ?", args...)
			return err
		})
	}
	return m.done(notify.Edit, "edit offer", err)
}

// EditStatus sets the status of the offers anchored at txid.
func (m *MyOfferSet) EditStatus(ctx context.Context, txid offer.Hash, status offer.Status) error {
	err := requireTxID(txid)
	if err == nil {
		err = m.setStatus(ctx, "idTransaction", txid, status)
	}
	return m.done(notify.Edit, "edit status", err)
}

// EditStatusByHash sets the status of the offer with hash.
func (m *MyOfferSet) EditStatusByHash(ctx context.Context, hash offer.Hash, status offer.Status) error {
	return m.done(notify.Edit, "edit status", m.setStatus(ctx, "hash", hash, status))
}

// setStatus changes status only; editingVersion and timeModification are
// left alone because status is local bookkeeping peers never see.
func (m *MyOfferSet) setStatus(ctx context.Context, column string, key offer.Hash, status offer.Status) error {
	res, err := m.s.db.ExecContext(ctx,
		"UPDATE "+m.name+" SET status = ? WHERE "+column+" = ?", int64(status), key)
	if err != nil {
		return err
	}
	if affected(res, nil) == 0 {
		return newError(CodeNotFound, "", "", fmt.Errorf("%s %s", column, key))
	}
	return nil
}

func (m *MyOfferSet) get(ctx context.Context, column string, key offer.Hash) (offer.MyOffer, error) {
	var o offer.MyOffer
	row := m.s.db.QueryRowContext(ctx,
		"SELECT "+myOfferColumns+" FROM "+m.name+" WHERE "+column+" = ? ORDER BY hash COLLATE BINARY LIMIT 1", key)
	if err := scanMyOffer(row, &o); err != nil {
		return offer.MyOffer{}, err
	}
	return o, nil
}

func scanMyOffer(sc scanner, o *offer.MyOffer) error {
	var typ, status int64
	if err := scanRecord(sc, &o.Record, &typ, &status); err != nil {
		return err
	}
	o.Type = offer.Type(typ)
	o.Status = offer.Status(status)
	return nil
}

// Get returns the offer anchored at txid.
func (m *MyOfferSet) Get(ctx context.Context, txid offer.Hash) (offer.MyOffer, error) {
	if err := requireTxID(txid); err != nil {
		return offer.MyOffer{}, m.done(notify.Read, "get offer", err)
	}
	o, err := m.get(ctx, "idTransaction", txid)
	return o, m.done(notify.Read, "get offer", err)
}

// GetByHash returns the offer with hash.
func (m *MyOfferSet) GetByHash(ctx context.Context, hash offer.Hash) (offer.MyOffer, error) {
	o, err := m.get(ctx, "hash", hash)
	return o, m.done(notify.Read, "get offer", err)
}

// List returns the offers matching f, ordered by hash.
func (m *MyOfferSet) List(ctx context.Context, f Filter, page Page) ([]offer.MyOffer, error) {
	offers, err := func() ([]offer.MyOffer, error) {
		query, params, err := compileList(m.name, myOfferColumns, f, page, true)
		if err != nil {
			return nil, err
		}
		rows, err := m.s.db.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var offers []offer.MyOffer
		for rows.Next() {
			var o offer.MyOffer
			if err := scanMyOffer(rows, &o); err != nil {
				return nil, err
			}
			offers = append(offers, o)
		}
		return offers, rows.Err()
	}()
	return offers, m.done(notify.Read, "list offers", err)
}

// SweepExpired flags every offer with timeToExpiration < now as Expired
// and returns how many changed. Local offers are never deleted here.
func (m *MyOfferSet) SweepExpired(ctx context.Context, now uint64) (int, error) {
	res, err := m.s.db.ExecContext(ctx,
		"UPDATE "+m.name+" SET status = ? WHERE timeToExpiration <= ? AND COALESCE(status, 0) != ?",
		int64(offer.StatusExpired), below(now), int64(offer.StatusExpired))
	n := affected(res, err)
	if err == nil && n > 0 {
		m.s.logger.Info("flagged expired offers", "table", m.name, "expired", n, "now", now)
	}
	return n, m.done(notify.Edit, "sweep expired", err)
}
