package testutil

import (
	"crypto/sha256"
	"fmt"

	"github.com/dexnode/offerdb/internal/offer"
)

// Hash derives a stable, distinct hash from label.
func Hash(label string) offer.Hash {
	return offer.Hash(sha256.Sum256([]byte(label)))
}

// Record returns a valid remote offer identified by label.
//
// Defaults:
//   - anchored at transaction Hash("tx/"+label)
//   - US / USD / payment method 1
//   - created at 100, modified at 100, expires at 1000
//   - editingVersion 0
func Record(label string) offer.Record {
	return offer.Record{
		TxID:             Hash("tx/" + label),
		Hash:             Hash(label),
		PubKey:           []byte("pub/" + label),
		CountryISO:       "US",
		CurrencyISO:      "USD",
		PaymentMethod:    1,
		Price:            150_000_000,
		MinAmount:        10_000_000,
		TimeCreate:       100,
		TimeToExpiration: 1000,
		TimeModification: 100,
		ShortInfo:        fmt.Sprintf("offer %s", label),
		Details:          "details for " + label,
		EditingVersion:   0,
		EditSign:         []byte("sig/" + label),
	}
}

// MyOffer returns a valid active local offer identified by label.
func MyOffer(label string, typ offer.Type) offer.MyOffer {
	return offer.MyOffer{
		Record: Record(label),
		Type:   typ,
		Status: offer.StatusActive,
	}
}

// Edited returns r with editingVersion raised by one and timeModification
// set to modified.
func Edited(r offer.Record, modified uint64) offer.Record {
	r.EditingVersion++
	r.TimeModification = modified
	return r
}
