package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// CurrentVersion is the schema version this code declares.
//
// Version history:
//
//	2 - offer tables without timeModification
//	3 - timeModification on every offer table, indexed on the remote sets
const CurrentVersion = 3

// TableDef declares one table.
type TableDef struct {
	Name string
	DDL  string
}

// IndexDef declares one index.
type IndexDef struct {
	Name string
	DDL  string
}

// Mapping tells the migration engine how to fill columns that a legacy
// table lacks. Keys are target column names; values are SQL expressions
// evaluated against the legacy row. Columns absent from both the legacy
// table and Fill are copied as NULL.
type Mapping struct {
	Fill map[string]string
}

// Catalog is the declared logical schema.
type Catalog struct {
	Version  int
	Tables   []TableDef
	Indexes  []IndexDef
	Mappings map[string]Mapping
}

const (
	tableVersion       = "dbversion"
	tableCountries     = "countries"
	tableCurrencies    = "currencies"
	tablePayments      = "paymentMethods"
	tableOffersSell    = "offersSell"
	tableOffersBuy     = "offersBuy"
	tableMyOffers      = "myOffers"
	tableFilterList    = "filterList"
	legacyTableSuffix  = "_old"
	internalNamePrefix = "sqlite_"
)

// DefaultCatalog returns the schema at CurrentVersion.
func DefaultCatalog() *Catalog {
	fillModification := Mapping{Fill: map[string]string{"timeModification": "timeCreate"}}
	return &Catalog{
		Version: CurrentVersion,
		Tables: []TableDef{
			{tableVersion, ddlVersion},
			{tableCountries, ddlCountries},
			{tableCurrencies, ddlCurrencies},
			{tablePayments, ddlPayments},
			{tableOffersSell, ddlOffersSell},
			{tableOffersBuy, ddlOffersBuy},
			{tableMyOffers, ddlMyOffers},
			{tableFilterList, ddlFilterList},
		},
		Indexes: []IndexDef{
			{"idx_offersSell_timeexp", ddlIdxSellTimeExp},
			{"idx_offersBuy_timeexp", ddlIdxBuyTimeExp},
			{"idx_offersMy_timeexp", ddlIdxMyTimeExp},
			{"hash_editing_version_buy", ddlIdxBuyHashVersion},
			{"hash_editing_version_sell", ddlIdxSellHashVersion},
			{"idx_offersSell_timemod", ddlIdxSellTimeMod},
			{"idx_offersBuy_timemod", ddlIdxBuyTimeMod},
		},
		Mappings: map[string]Mapping{
			tableOffersSell: fillModification,
			tableOffersBuy:  fillModification,
			tableMyOffers:   fillModification,
		},
	}
}

const (
	ddlVersion            = `CREATE TABLE IF NOT EXISTS dbversion (version BIG INT)`
	ddlCountries          = `CREATE TABLE IF NOT EXISTS countries (iso VARCHAR(2) NOT NULL PRIMARY KEY, name VARCHAR(100), enabled BOOLEAN, currencyId INT, sortOrder INT)`
	ddlCurrencies         = `CREATE TABLE IF NOT EXISTS currencies (id INTEGER PRIMARY KEY, iso VARCHAR(3) UNIQUE, name VARCHAR(100), symbol VARCHAR(10), enabled BOOLEAN, sortOrder INT)`
	ddlPayments           = `CREATE TABLE IF NOT EXISTS paymentMethods (type TINYINT NOT NULL PRIMARY KEY, name VARCHAR(100), description BLOB, sortOrder INT)`
	ddlOffersSell         = `CREATE TABLE IF NOT EXISTS offersSell (idTransaction TEXT NOT NULL, hash TEXT NOT NULL PRIMARY KEY, pubKey BLOB, countryIso VARCHAR(2), currencyIso VARCHAR(3), paymentMethod TINYINT, price UNSIGNED BIG INT, minAmount UNSIGNED BIG INT, timeCreate UNSIGNED BIG INT, timeToExpiration UNSIGNED BIG INT, timeModification UNSIGNED BIG INT, shortInfo VARCHAR(140), details TEXT, editingVersion UNSIGNED INT, editsign BLOB)`
	ddlOffersBuy          = `CREATE TABLE IF NOT EXISTS offersBuy (idTransaction TEXT NOT NULL, hash TEXT NOT NULL PRIMARY KEY, pubKey BLOB, countryIso VARCHAR(2), currencyIso VARCHAR(3), paymentMethod TINYINT, price UNSIGNED BIG INT, minAmount UNSIGNED BIG INT, timeCreate UNSIGNED BIG INT, timeToExpiration UNSIGNED BIG INT, timeModification UNSIGNED BIG INT, shortInfo VARCHAR(140), details TEXT, editingVersion UNSIGNED INT, editsign BLOB)`
	ddlMyOffers           = `CREATE TABLE IF NOT EXISTS myOffers (hash TEXT NOT NULL PRIMARY KEY, idTransaction TEXT, pubKey BLOB, countryIso VARCHAR(2), currencyIso VARCHAR(3), paymentMethod TINYINT, price UNSIGNED BIG INT, minAmount UNSIGNED BIG INT, timeCreate UNSIGNED BIG INT, timeToExpiration UNSIGNED BIG INT, timeModification UNSIGNED BIG INT, shortInfo VARCHAR(140), details TEXT, type INT, status INT, editingVersion UNSIGNED INT, editsign BLOB)`
	ddlFilterList         = `CREATE TABLE IF NOT EXISTS filterList (filter VARCHAR(100) NOT NULL PRIMARY KEY)`
	ddlIdxSellTimeExp     = `CREATE INDEX IF NOT EXISTS idx_offersSell_timeexp ON offersSell(timeToExpiration)`
	ddlIdxBuyTimeExp      = `CREATE INDEX IF NOT EXISTS idx_offersBuy_timeexp ON offersBuy(timeToExpiration)`
	ddlIdxMyTimeExp       = `CREATE INDEX IF NOT EXISTS idx_offersMy_timeexp ON myOffers(timeToExpiration)`
	ddlIdxBuyHashVersion  = `CREATE UNIQUE INDEX IF NOT EXISTS hash_editing_version_buy ON offersBuy(hash, editingVersion)`
	ddlIdxSellHashVersion = `CREATE UNIQUE INDEX IF NOT EXISTS hash_editing_version_sell ON offersSell(hash, editingVersion)`
	ddlIdxSellTimeMod     = `CREATE INDEX IF NOT EXISTS idx_offersSell_timemod ON offersSell(timeModification)`
	ddlIdxBuyTimeMod      = `CREATE INDEX IF NOT EXISTS idx_offersBuy_timemod ON offersBuy(timeModification)`
)

// Statements returns the DDL in execution order: tables, then indexes.
func (c *Catalog) Statements() []string {
	stmts := make([]string, 0, len(c.Tables)+len(c.Indexes))
	for _, t := range c.Tables {
		stmts = append(stmts, t.DDL)
	}
	for _, idx := range c.Indexes {
		stmts = append(stmts, idx.DDL)
	}
	return stmts
}

// Script renders the DDL as one SQL script.
func (c *Catalog) Script() string {
	var b strings.Builder
	for _, stmt := range c.Statements() {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}

// table returns the declared table by name.
func (c *Catalog) table(name string) (TableDef, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDef{}, false
}

// create executes every declared statement.
func (c *Catalog) create(ctx context.Context, q querier) error {
	for _, stmt := range c.Statements() {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// State is the schema state found on disk at open time.
type State int

const (
	StateEmpty State = iota
	StateStale
	StateCurrent
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStale:
		return "stale"
	case StateCurrent:
		return "current"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// detectState reads sqlite_master and dbversion. A non-empty database
// without a version row reports version 0, which is always stale.
func detectState(ctx context.Context, q querier, c *Catalog) (State, int, error) {
	var objects int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE name NOT LIKE 'sqlite\_%' ESCAPE '\'
	`).Scan(&objects)
	if err != nil {
		return 0, 0, fmt.Errorf("count schema objects: %w", err)
	}
	if objects == 0 {
		return StateEmpty, 0, nil
	}

	version, err := readVersion(ctx, q)
	if err != nil {
		return 0, 0, err
	}
	if version != c.Version {
		return StateStale, version, nil
	}
	return StateCurrent, version, nil
}

func readVersion(ctx context.Context, q querier) (int, error) {
	var exists int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?
	`, tableVersion).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = q.QueryRowContext(ctx, `SELECT version FROM dbversion LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// writeVersion replaces the single version row.
func writeVersion(ctx context.Context, q querier, version int) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM dbversion`); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO dbversion (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// schemaObjects returns name -> normalized sql for every user object.
// Objects without sql (automatic indexes) are skipped.
func schemaObjects(ctx context.Context, q querier) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}
	defer rows.Close()

	objects := make(map[string]string)
	for rows.Next() {
		var name, ddl string
		if err := rows.Scan(&name, &ddl); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		objects[name] = ddl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema: %w", err)
	}
	return objects, nil
}

// declaredObjects materializes the catalog in a scratch in-memory database
// so SQLite applies the same normalization it applies on disk.
func (c *Catalog) declaredObjects(ctx context.Context) (map[string]string, error) {
	scratch, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	defer scratch.Close()
	scratch.SetMaxOpenConns(1)

	if err := c.create(ctx, scratch); err != nil {
		return nil, err
	}
	return schemaObjects(ctx, scratch)
}

// verifySchema compares the on-disk objects against the catalog.
func verifySchema(ctx context.Context, q querier, c *Catalog) error {
	declared, err := c.declaredObjects(ctx)
	if err != nil {
		return err
	}
	actual, err := schemaObjects(ctx, q)
	if err != nil {
		return err
	}
	if diff := diffSchema(declared, actual); diff != "" {
		return newError(CodeSchemaMismatch, "verify schema", "", fmt.Errorf("%s", diff))
	}
	return nil
}

// diffSchema describes the differences between two schemas, or returns "".
func diffSchema(declared, actual map[string]string) string {
	names := make(map[string]struct{}, len(declared)+len(actual))
	for name := range declared {
		names[name] = struct{}{}
	}
	for name := range actual {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	var problems []string
	for _, name := range sorted {
		want, inDeclared := declared[name]
		got, inActual := actual[name]
		switch {
		case !inActual:
			problems = append(problems, "missing "+name)
		case !inDeclared:
			problems = append(problems, "unexpected "+name)
		case want != got:
			problems = append(problems, "changed "+name)
		}
	}
	return strings.Join(problems, ", ")
}
