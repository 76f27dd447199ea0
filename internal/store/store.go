package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dexnode/offerdb/internal/notify"
	"github.com/dexnode/offerdb/internal/seed"
)

// DefaultBusyTimeout bounds how long a statement waits on a locked database
// before failing with CodeBusy.
const DefaultBusyTimeout = 5 * time.Second

// querier is the subset of *sql.DB, *sql.Tx and *sql.Conn the store uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options configures Open. The zero value is usable.
type Options struct {
	// BusyTimeout defaults to DefaultBusyTimeout.
	BusyTimeout time.Duration

	// Bus receives operation events. A new bus is created if nil.
	Bus *notify.Bus

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Seed fills empty reference tables. Defaults to seed.Default().
	Seed seed.Provider

	// Catalog defaults to DefaultCatalog().
	Catalog *Catalog

	// Clock stamps backup names. Defaults to the real clock.
	Clock clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = DefaultBusyTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Bus == nil {
		o.Bus = notify.New(o.Logger)
	}
	if o.Seed == nil {
		o.Seed = seed.Default()
	}
	if o.Catalog == nil {
		o.Catalog = DefaultCatalog()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// OpenReport describes what Open found and did.
type OpenReport struct {
	State       State // State found on disk before any change
	FromVersion int   // Version found on disk (0 when empty)
	Version     int   // Version after open
}

// Store is an open offer store handle.
type Store struct {
	db      *sql.DB
	path    string
	bus     *notify.Bus
	logger  *slog.Logger
	catalog *Catalog
	clock   clockwork.Clock
	report  OpenReport

	sell        *OfferSet
	buy         *OfferSet
	mine        *MyOfferSet
	countries   *Countries
	currencies  *Currencies
	payments    *PaymentMethods
	filterLists *Filters
}

// Open creates or opens the store at path and brings its schema to the
// catalog version.
//
// The database is configured with:
//   - shared cache and full mutex mode
//   - busy timeout (Options.BusyTimeout) for lock contention
//   - WAL mode, NORMAL synchronous mode
//   - a single pooled connection, so writers are serialized
//
// Open then runs the integrity check and the schema state machine:
// an empty file is bootstrapped, a stale one migrated, a current one
// verified against the catalog. Any failure closes the handle; the store
// never comes up half-initialized.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	db, err := sql.Open("sqlite3", dataSourceName(path, opts.BusyTimeout))
	if err != nil {
		return nil, newError(CodeEngine, "open", "", fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, wrapError("open", "", fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite supports one writer at a time; one connection avoids
	// self-inflicted SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, wrapError("open", "", fmt.Errorf("failed to apply pragmas: %w", err))
	}

	s := &Store{
		db:      db,
		path:    path,
		bus:     opts.Bus,
		logger:  opts.Logger.With("db", path),
		catalog: opts.Catalog,
		clock:   opts.Clock,
	}

	if err := s.initSchema(ctx, opts.Seed); err != nil {
		db.Close()
		return nil, err
	}

	s.sell = newOfferSet(s, tableOffersSell, notify.OffersSell)
	s.buy = newOfferSet(s, tableOffersBuy, notify.OffersBuy)
	s.mine = newMyOfferSet(s)
	s.countries = newCountries(s)
	s.currencies = newCurrencies(s)
	s.payments = newPaymentMethods(s)
	s.filterLists = newFilters(s)

	s.logger.Info("store ready",
		"state", s.report.State.String(),
		"from_version", s.report.FromVersion,
		"version", s.report.Version)
	return s, nil
}

// dataSourceName builds the mattn/go-sqlite3 DSN.
func dataSourceName(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Set("cache", "shared")
	params.Set("_mutex", "full")
	params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	return "file:" + escapePath(path) + "?" + params.Encode()
}

// escapePath keeps '?' and '#' in file names from being read as URI syntax.
func escapePath(path string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
}

// applyPragmas sets the remaining SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// initSchema runs the open-time state machine.
func (s *Store) initSchema(ctx context.Context, p seed.Provider) error {
	if err := s.CheckIntegrity(ctx); err != nil {
		return err
	}

	state, version, err := detectState(ctx, s.db, s.catalog)
	if err != nil {
		return wrapError("detect schema state", "", err)
	}
	s.report = OpenReport{State: state, FromVersion: version, Version: s.catalog.Version}

	switch state {
	case StateEmpty:
		s.logger.Info("creating schema", "version", s.catalog.Version)
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			return bootstrap(ctx, tx, s.catalog, p)
		}); err != nil {
			return wrapError("create schema", "", err)
		}
		return nil

	case StateStale:
		if version > s.catalog.Version {
			s.logger.Warn("on-disk schema is newer than this build, migrating down",
				"from_version", version, "to_version", s.catalog.Version)
		}
		s.logger.Info("migrating schema", "from_version", version, "to_version", s.catalog.Version)
		m := &migration{catalog: s.catalog, seed: p}
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			return m.run(ctx, tx)
		}); err != nil {
			s.logger.Error("migration rolled back", "error", err)
			return newError(CodeMigrationFailure, "migrate schema", "",
				fmt.Errorf("from version %d to %d: %w", version, s.catalog.Version, err))
		}
		s.logger.Info("migration complete", "version", s.catalog.Version)
		return nil

	default:
		return s.VerifySchema(ctx)
	}
}

// inTx runs fn in a transaction and commits when fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CheckIntegrity runs PRAGMA integrity_check.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return wrapError("integrity check", "", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return wrapError("integrity check", "", err)
		}
		results = append(results, line)
	}
	if err := rows.Err(); err != nil {
		return wrapError("integrity check", "", err)
	}
	return integrityResult(results)
}

// integrityResult turns integrity_check output into an error.
// Only a single "ok" row is clean.
func integrityResult(lines []string) error {
	if len(lines) == 1 && lines[0] == "ok" {
		return nil
	}
	return newError(CodeIntegrityFailure, "integrity check", "", fmt.Errorf("%s", strings.Join(lines, "; ")))
}

// VerifySchema compares the on-disk schema with the catalog.
func (s *Store) VerifySchema(ctx context.Context) error {
	if err := verifySchema(ctx, s.db, s.catalog); err != nil {
		return wrapError("verify schema", "", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Version reads the version row.
func (s *Store) Version(ctx context.Context) (int, error) {
	v, err := readVersion(ctx, s.db)
	if err != nil {
		return 0, wrapError("read version", "", err)
	}
	return v, nil
}

// Report returns what Open found and did.
func (s *Store) Report() OpenReport {
	return s.report
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Bus returns the notification bus events are published on.
func (s *Store) Bus() *notify.Bus {
	return s.bus
}

// Sell returns the remote sell offers set.
func (s *Store) Sell() *OfferSet { return s.sell }

// Buy returns the remote buy offers set.
func (s *Store) Buy() *OfferSet { return s.buy }

// Mine returns the locally authored offers set.
func (s *Store) Mine() *MyOfferSet { return s.mine }

// Countries returns the countries reference cache.
func (s *Store) Countries() *Countries { return s.countries }

// Currencies returns the currencies reference cache.
func (s *Store) Currencies() *Currencies { return s.currencies }

// PaymentMethods returns the payment methods reference cache.
func (s *Store) PaymentMethods() *PaymentMethods { return s.payments }

// Filters returns the local content filter set.
func (s *Store) Filters() *Filters { return s.filterLists }

// finish classifies err, publishes the event and returns err.
// The event is delivered before the caller sees the error.
func (s *Store) finish(table notify.Table, op notify.Op, name string, err error) error {
	err = wrapError(name, table.String(), err)
	e := notify.Event{Table: table, Op: op, Outcome: notify.Ok}
	if err != nil {
		e.Outcome = notify.Error
		e.Err = err
		s.logger.Debug("store operation failed",
			"table", table.String(), "op", op.String(), "error", err)
	}
	s.bus.Publish(e)
	return err
}
