package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Len(t, c.Currencies(), 4)
	assert.Len(t, c.Countries(), 5)
	assert.Len(t, c.PaymentMethods(), 2)
}

func TestCountriesOrderedBySortOrderThenName(t *testing.T) {
	var names []string
	for _, country := range Default().Countries() {
		names = append(names, country.Name)
	}
	assert.Equal(t, []string{"Russia", "United States", "France", "Germany", "United Kingdom"}, names)
}

func TestCurrenciesOrderedBySortOrder(t *testing.T) {
	c, err := Parse([]byte(`
currencies:
  - {iso: B, name: b, sort_order: 2}
  - {iso: A, name: a, sort_order: 1}
`))
	require.NoError(t, err)
	cur := c.Currencies()
	require.Len(t, cur, 2)
	assert.Equal(t, "A", cur[0].ISO)
	assert.Equal(t, "B", c.CurrencyList[0].ISO, "catalog itself is not reordered")
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := map[string]string{
		"unknown field":     "currencies:\n  - {iso: USD, colour: green}\n",
		"duplicate country": "currencies:\n  - {iso: USD}\ncountries:\n  - {iso: US, currency: USD}\n  - {iso: US, currency: USD}\n",
		"unknown currency":  "countries:\n  - {iso: US, currency: USD}\n",
		"reserved type":     "payment_methods:\n  - {type: 0, name: none}\n",
		"duplicate method":  "payment_methods:\n  - {type: 1, name: a}\n  - {type: 1, name: b}\n",
		"empty iso":         "currencies:\n  - {name: nothing}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currencies:\n  - {iso: CHF, name: Franc}\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CHF", c.Currencies()[0].ISO)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
