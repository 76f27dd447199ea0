package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/offer"
	"github.com/dexnode/offerdb/internal/seed"
)

// createTestStore creates a new store in a temp dir with default options.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := createRecordedStore(t)
	return s
}

// createRecordedStore creates a new store whose bus feeds a recorder.
func createRecordedStore(t *testing.T) (*Store, *notify.Recorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	return openRecorded(t, path, Options{})
}

// openRecorded opens path and subscribes a recorder after open.
func openRecorded(t *testing.T, path string, opts Options) (*Store, *notify.Recorder) {
	t.Helper()
	s, err := Open(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rec := &notify.Recorder{}
	sub := s.Bus().Subscribe(rec)
	t.Cleanup(sub.Close)
	return s, rec
}

// legacyCatalog returns the version 2 schema: offer tables without
// timeModification and without the timeModification indexes.
func legacyCatalog() *Catalog {
	c := DefaultCatalog()
	c.Version = 2
	for i, tbl := range c.Tables {
		c.Tables[i].DDL = strings.Replace(tbl.DDL, " timeModification UNSIGNED BIG INT,", "", 1)
	}
	var indexes []IndexDef
	for _, idx := range c.Indexes {
		if !strings.HasSuffix(idx.Name, "_timemod") {
			indexes = append(indexes, idx)
		}
	}
	c.Indexes = indexes
	c.Mappings = nil
	return c
}

// createLegacyDB builds a database at path from c and returns a raw handle.
func createLegacyDB(t *testing.T, path string, c *Catalog, p seed.Provider) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := bootstrap(context.Background(), db, c, p); err != nil {
		t.Fatalf("bootstrap() failed: %v", err)
	}
	return db
}

// insertLegacyOffer writes r into a version 2 offer table.
// For myOffers, type and status are written as Sell / Active.
func insertLegacyOffer(t *testing.T, db *sql.DB, table string, r offer.Record) {
	t.Helper()
	cols := `idTransaction, hash, pubKey, countryIso, currencyIso, paymentMethod, price, minAmount,
		timeCreate, timeToExpiration, shortInfo, details, editingVersion, editsign`
	args := []any{
		r.TxID, r.Hash, r.PubKey, r.CountryISO, r.CurrencyISO, int64(r.PaymentMethod),
		int64(r.Price), int64(r.MinAmount), int64(r.TimeCreate), int64(r.TimeToExpiration),
		r.ShortInfo, r.Details, int64(r.EditingVersion), r.EditSign,
	}
	params := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"
	if table == tableMyOffers {
		cols += ", type, status"
		args = append(args, int64(offer.TypeSell), int64(offer.StatusActive))
		params += ", ?, ?"
	}
	if _, err := db.Exec("INSERT INTO "+table+" ("+cols+") VALUES ("+params+")", args...); err != nil {
		t.Fatalf("insert legacy %s: %v", table, err)
	}
}

// tableExists reports whether a table is present in sqlite_master.
func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}
