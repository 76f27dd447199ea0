package offer

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// HashSize is the length of a Hash in bytes.
const HashSize = 32

// DomainOffer prefixes the content hash of an offer.
// The version suffix leaves room for a future algorithm change.
const DomainOffer = "offerdb/offer/v1"

// Hash is a 256-bit identifier (offer hash or transaction id).
// Its text form is 64 lowercase hex characters, which is also how it is
// stored in the database.
type Hash [HashSize]byte

// ZeroHash is the unset value.
var ZeroHash Hash

// ParseHash decodes the hex text form of a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, fmt.Errorf("parse hash: want %d hex chars, got %d", hex.EncodedLen(HashSize), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	return h, nil
}

// MustParseHash is like ParseHash but panics on error.
// Use only in tests or with constant inputs.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the unset value.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Value implements driver.Valuer.
func (h Hash) Value() (driver.Value, error) {
	return h.String(), nil
}

// Scan implements sql.Scanner. NULL and empty text scan to ZeroHash.
func (h *Hash) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*h = ZeroHash
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan hash: unsupported type %T", src)
	}
	if s == "" {
		*h = ZeroHash
		return nil
	}
	return h.UnmarshalText([]byte(s))
}

// ContentHash computes the content-addressed identity of an offer from the
// fields fixed at creation time. Mutable bookkeeping (TxID, versions,
// modification time, signature) is excluded so the hash survives edits.
//
// Format: SHA256(DomainOffer + 0x00 + fields), where text fields are NFC
// normalized and every field is length-prefixed.
func ContentHash(r Record) Hash {
	h := sha256.New()
	h.Write([]byte(DomainOffer))
	h.Write([]byte{0x00})

	writeBytes := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	writeUint := func(v uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		h.Write(b[:])
	}

	writeBytes(r.PubKey)
	writeBytes([]byte(norm.NFC.String(r.CountryISO)))
	writeBytes([]byte(norm.NFC.String(r.CurrencyISO)))
	writeUint(uint64(r.PaymentMethod))
	writeUint(r.Price)
	writeUint(r.MinAmount)
	writeUint(r.TimeCreate)
	writeUint(r.TimeToExpiration)
	writeBytes([]byte(norm.NFC.String(r.ShortInfo)))
	writeBytes([]byte(norm.NFC.String(r.Details)))

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
