// Package seed supplies the reference data written into an empty store.
//
// A Catalog is loaded from YAML. The embedded default catalog is a small
// sample; production deployments point the config at a full catalog file.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Currency is a seed currency entry.
type Currency struct {
	ISO       string `yaml:"iso"`
	Name      string `yaml:"name"`
	Symbol    string `yaml:"symbol"`
	Enabled   bool   `yaml:"enabled"`
	SortOrder int    `yaml:"sort_order"`
}

// Country is a seed country entry. Currency is the ISO code of its currency.
type Country struct {
	ISO       string `yaml:"iso"`
	Name      string `yaml:"name"`
	Currency  string `yaml:"currency"`
	SortOrder int    `yaml:"sort_order"`
}

// PaymentMethod is a seed payment method entry.
type PaymentMethod struct {
	Type        uint8  `yaml:"type"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	SortOrder   int    `yaml:"sort_order"`
}

// Provider supplies seed data to the store.
type Provider interface {
	Currencies() []Currency
	Countries() []Country
	PaymentMethods() []PaymentMethod
}

// Catalog is a Provider backed by a parsed YAML document.
type Catalog struct {
	CurrencyList      []Currency      `yaml:"currencies"`
	CountryList       []Country       `yaml:"countries"`
	PaymentMethodList []PaymentMethod `yaml:"payment_methods"`
}

// Default returns the embedded sample catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded seed catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	currencies := make(map[string]bool, len(c.CurrencyList))
	for _, cur := range c.CurrencyList {
		if cur.ISO == "" {
			return fmt.Errorf("currency with empty iso")
		}
		if currencies[cur.ISO] {
			return fmt.Errorf("duplicate currency %q", cur.ISO)
		}
		currencies[cur.ISO] = true
	}

	countries := make(map[string]bool, len(c.CountryList))
	for _, country := range c.CountryList {
		if country.ISO == "" {
			return fmt.Errorf("country with empty iso")
		}
		if countries[country.ISO] {
			return fmt.Errorf("duplicate country %q", country.ISO)
		}
		if !currencies[country.Currency] {
			return fmt.Errorf("country %q references unknown currency %q", country.ISO, country.Currency)
		}
		countries[country.ISO] = true
	}

	// Payment type 0 is the list wildcard, so it can never be a real method.
	methods := make(map[uint8]bool, len(c.PaymentMethodList))
	for _, pm := range c.PaymentMethodList {
		if pm.Type == 0 {
			return fmt.Errorf("payment method %q uses reserved type 0", pm.Name)
		}
		if methods[pm.Type] {
			return fmt.Errorf("duplicate payment method type %d", pm.Type)
		}
		methods[pm.Type] = true
	}
	return nil
}

// Currencies returns currencies ordered by sort order.
func (c *Catalog) Currencies() []Currency {
	out := append([]Currency(nil), c.CurrencyList...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// Countries returns countries ordered by sort order, then name.
func (c *Catalog) Countries() []Country {
	out := append([]Country(nil), c.CountryList...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PaymentMethods returns payment methods in catalog order.
func (c *Catalog) PaymentMethods() []PaymentMethod {
	return append([]PaymentMethod(nil), c.PaymentMethodList...)
}
