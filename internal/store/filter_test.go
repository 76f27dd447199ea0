package store

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/offerdb/internal/offer"
)

func TestCompile_Golden(t *testing.T) {
	sell := offer.TypeSell
	expired := offer.StatusExpired

	cases := []struct {
		name  string
		build func() (string, []any, error)
	}{
		{"list all", func() (string, []any, error) {
			return compileList(tableOffersSell, "hash", Filter{}, Page{}, false)
		}},
		{"list conjunction paged", func() (string, []any, error) {
			f := Filter{CountryISO: "US", CurrencyISO: "USD", PaymentMethod: 1}
			return compileList(tableOffersSell, "hash", f, Page{Limit: 10, Offset: 20}, false)
		}},
		{"list local offset only", func() (string, []any, error) {
			f := Filter{Type: &sell, Status: &expired}
			return compileList(tableMyOffers, "hash", f, Page{Offset: 5}, true)
		}},
		{"count currency", func() (string, []any, error) {
			return compileCount(tableOffersBuy, Filter{CurrencyISO: "EUR"}, false)
		}},
	}

	var b strings.Builder
	for _, c := range cases {
		query, args, err := c.build()
		require.NoError(t, err, c.name)
		fmt.Fprintf(&b, "-- %s\n%s\n-- args: %v\n", c.name, query, args)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "filters", []byte(b.String()))
}

func TestCompile_CallerValuesAreParameters(t *testing.T) {
	hostile := "US' OR '1'='1"
	query, args, err := compileList(tableOffersSell, "hash", Filter{CountryISO: hostile}, Page{}, false)
	require.NoError(t, err)

	assert.NotContains(t, query, hostile)
	assert.Equal(t, []any{hostile}, args)
}

func TestFilter_IsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{PaymentMethod: 1}.IsZero())

	draft := offer.StatusDraft
	assert.False(t, Filter{Status: &draft}.IsZero(), "a zero-valued status is still a constraint")
}

func TestFilter_LocalFieldsOnRemoteSet(t *testing.T) {
	buy := offer.TypeBuy
	_, _, err := compileWhere(Filter{Type: &buy}, false)
	require.ErrorIs(t, err, ErrInvalidArgument)

	where, args, err := compileWhere(Filter{Type: &buy}, true)
	require.NoError(t, err)
	assert.Equal(t, " WHERE type = ?", where)
	assert.Equal(t, []any{int64(offer.TypeBuy)}, args)
}
