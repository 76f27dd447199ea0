package offer

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxShortInfoLen bounds Record.ShortInfo, counted in runes.
const MaxShortInfoLen = 140

// MaxValue bounds the amount and time fields. The store keeps them in
// signed 64-bit columns, so larger values would compare out of order.
const MaxValue uint64 = math.MaxInt64

// Record is an offer relayed by a peer (remote sell or buy set).
//
// TxID is zero until the offer is anchored on-chain. Price and MinAmount
// are fixed-point magnitudes (see FormatAmount). PubKey and EditSign are
// opaque here; signatures are verified outside the store.
type Record struct {
	TxID             Hash   `json:"id_transaction"`
	Hash             Hash   `json:"hash"`
	PubKey           []byte `json:"pub_key"`
	CountryISO       string `json:"country_iso"`
	CurrencyISO      string `json:"currency_iso"`
	PaymentMethod    uint8  `json:"payment_method"`
	Price            uint64 `json:"price"`
	MinAmount        uint64 `json:"min_amount"`
	TimeCreate       uint64 `json:"time_create"`
	TimeToExpiration uint64 `json:"time_to_expiration"`
	TimeModification uint64 `json:"time_modification"`
	ShortInfo        string `json:"short_info"`
	Details          string `json:"details"`
	EditingVersion   uint32 `json:"editing_version"`
	EditSign         []byte `json:"edit_sign"`
}

// ErrInvalidRecord is returned by Validate.
var ErrInvalidRecord = errors.New("invalid offer record")

// Validate checks the invariants a record must satisfy before it is stored.
func (r Record) Validate() error {
	if r.Hash.IsZero() {
		return fmt.Errorf("%w: hash is required", ErrInvalidRecord)
	}
	if r.TimeModification < r.TimeCreate {
		return fmt.Errorf("%w: time_modification %d before time_create %d",
			ErrInvalidRecord, r.TimeModification, r.TimeCreate)
	}
	for _, f := range []struct {
		name  string
		value uint64
	}{
		{"price", r.Price},
		{"min_amount", r.MinAmount},
		{"time_create", r.TimeCreate},
		{"time_to_expiration", r.TimeToExpiration},
		{"time_modification", r.TimeModification},
	} {
		if f.value > MaxValue {
			return fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidRecord, f.name, f.value, MaxValue)
		}
	}
	if n := utf8.RuneCountInString(r.ShortInfo); n > MaxShortInfoLen {
		return fmt.Errorf("%w: short_info has %d runes, max %d", ErrInvalidRecord, n, MaxShortInfoLen)
	}
	return nil
}

// Expired reports whether the record is past its expiration at now.
// Remote sets treat timeToExpiration == now as expired.
func (r Record) Expired(now uint64) bool {
	return r.TimeToExpiration <= now
}

// Type is the side of a locally authored offer.
type Type int

const (
	TypeSell Type = iota
	TypeBuy
)

func (t Type) String() string {
	switch t {
	case TypeSell:
		return "sell"
	case TypeBuy:
		return "buy"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType parses "sell" or "buy".
func ParseType(s string) (Type, error) {
	switch s {
	case "sell":
		return TypeSell, nil
	case "buy":
		return TypeBuy, nil
	}
	return 0, fmt.Errorf("unknown offer type %q", s)
}

// Status is the lifecycle state of a locally authored offer.
type Status int

const (
	StatusDraft Status = iota
	StatusActive
	StatusExpired
	StatusCancelled
	StatusSold
	StatusUnconfirmed
)

var statusNames = map[Status]string{
	StatusDraft:       "draft",
	StatusActive:      "active",
	StatusExpired:     "expired",
	StatusCancelled:   "cancelled",
	StatusSold:        "sold",
	StatusUnconfirmed: "unconfirmed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus parses a status name as printed by String.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown offer status %q", s)
}

// MyOffer is an offer authored by the local node.
type MyOffer struct {
	Record
	Type   Type   `json:"type"`
	Status Status `json:"status"`
}

// CountryInfo is a country reference entry.
type CountryInfo struct {
	ISO     string `json:"iso"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// CurrencyInfo is a currency reference entry.
type CurrencyInfo struct {
	ISO     string `json:"iso"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Enabled bool   `json:"enabled"`
}

// PaymentMethodInfo is a payment method reference entry.
type PaymentMethodInfo struct {
	Type        uint8  `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
