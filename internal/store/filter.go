package store

import (
	"fmt"
	"strings"

	"github.com/dexnode/offerdb/internal/offer"
)

// Filter is a conjunction of optional constraints on an offer set.
// The zero value matches every record.
//
// "" and 0 mean "no constraint" for the reference-code fields. Payment
// method type 0 is reserved and never seeded, so it is safe as a wildcard.
// Type and Status are pointers because their zero values are real states;
// they apply only to the local set.
type Filter struct {
	CountryISO    string
	CurrencyISO   string
	PaymentMethod uint8
	Type          *offer.Type
	Status        *offer.Status
}

// IsZero reports whether f matches everything.
func (f Filter) IsZero() bool {
	return f.CountryISO == "" && f.CurrencyISO == "" && f.PaymentMethod == 0 &&
		f.Type == nil && f.Status == nil
}

// Page bounds a listing. Limit <= 0 is unbounded; Offset <= 0 starts at
// the first row.
type Page struct {
	Limit  int
	Offset int
}

// predicate is one compiled equality constraint.
type predicate struct {
	column string
	value  any
}

// predicates resolves f into equality constraints in a fixed column order.
// local reports whether the target set carries type and status columns.
func (f Filter) predicates(local bool) ([]predicate, error) {
	if !local && (f.Type != nil || f.Status != nil) {
		return nil, newError(CodeInvalidArgument, "", "",
			fmt.Errorf("type and status filters apply only to local offers"))
	}

	var preds []predicate
	if f.CountryISO != "" {
		preds = append(preds, predicate{"countryIso", f.CountryISO})
	}
	if f.CurrencyISO != "" {
		preds = append(preds, predicate{"currencyIso", f.CurrencyISO})
	}
	if f.PaymentMethod != 0 {
		preds = append(preds, predicate{"paymentMethod", int64(f.PaymentMethod)})
	}
	if f.Type != nil {
		preds = append(preds, predicate{"type", int64(*f.Type)})
	}
	if f.Status != nil {
		preds = append(preds, predicate{"status", int64(*f.Status)})
	}
	return preds, nil
}

// compileWhere renders f as a WHERE clause with positional parameters.
// Returns "" when f has no constraints.
func compileWhere(f Filter, local bool) (string, []any, error) {
	preds, err := f.predicates(local)
	if err != nil {
		return "", nil, err
	}
	if len(preds) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, len(preds))
	params := make([]any, len(preds))
	for i, p := range preds {
		clauses[i] = p.column + " = ?"
		params[i] = p.value
	}
	return " WHERE " + strings.Join(clauses, " AND "), params, nil
}

// compileList renders a filtered, paged SELECT over table.
// Rows are always ordered by hash so paging is stable.
func compileList(table, columns string, f Filter, page Page, local bool) (string, []any, error) {
	where, params, err := compileWhere(f, local)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s ORDER BY hash COLLATE BINARY", columns, table, where)

	switch {
	case page.Limit > 0:
		b.WriteString(" LIMIT ?")
		params = append(params, page.Limit)
	case page.Offset > 0:
		// SQLite requires a LIMIT before OFFSET; -1 is unbounded.
		b.WriteString(" LIMIT -1")
	}
	if page.Offset > 0 {
		b.WriteString(" OFFSET ?")
		params = append(params, page.Offset)
	}
	return b.String(), params, nil
}

// compileCount renders a filtered COUNT over table.
func compileCount(table string, f Filter, local bool) (string, []any, error) {
	where, params, err := compileWhere(f, local)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + table + where, params, nil
}
