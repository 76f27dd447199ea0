package cli

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dexnode/offerdb/internal/offer"
)

// OfferInput is the YAML form of an offer accepted by "offers add".
//
// Amounts are decimal strings ("1.5"), keys and signatures hex. An empty
// hash is computed from the content fields; an empty time_modification
// defaults to time_create. Type and Status apply only to local offers.
type OfferInput struct {
	TxID             string `yaml:"id_transaction"`
	Hash             string `yaml:"hash"`
	PubKey           string `yaml:"pub_key"`
	CountryISO       string `yaml:"country_iso"`
	CurrencyISO      string `yaml:"currency_iso"`
	PaymentMethod    uint8  `yaml:"payment_method"`
	Price            string `yaml:"price"`
	MinAmount        string `yaml:"min_amount"`
	TimeCreate       uint64 `yaml:"time_create"`
	TimeToExpiration uint64 `yaml:"time_to_expiration"`
	TimeModification uint64 `yaml:"time_modification"`
	ShortInfo        string `yaml:"short_info"`
	Details          string `yaml:"details"`
	EditingVersion   uint32 `yaml:"editing_version"`
	EditSign         string `yaml:"edit_sign"`
	Type             string `yaml:"type"`
	Status           string `yaml:"status"`
}

// decodeOfferInputs reads one or more YAML documents from r.
func decodeOfferInputs(r io.Reader) ([]OfferInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var inputs []OfferInput
	for {
		var in OfferInput
		err := decoder.Decode(&in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML document %d: %w", len(inputs)+1, err)
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no offers in input")
	}
	return inputs, nil
}

// Record converts the input into a validated offer record.
func (in OfferInput) Record() (offer.Record, error) {
	var r offer.Record
	var err error

	if in.TxID != "" {
		if r.TxID, err = offer.ParseHash(in.TxID); err != nil {
			return r, fmt.Errorf("id_transaction: %w", err)
		}
	}
	if r.PubKey, err = decodeHex(in.PubKey); err != nil {
		return r, fmt.Errorf("pub_key: %w", err)
	}
	if r.EditSign, err = decodeHex(in.EditSign); err != nil {
		return r, fmt.Errorf("edit_sign: %w", err)
	}
	if r.Price, err = parseOptionalAmount(in.Price); err != nil {
		return r, fmt.Errorf("price: %w", err)
	}
	if r.MinAmount, err = parseOptionalAmount(in.MinAmount); err != nil {
		return r, fmt.Errorf("min_amount: %w", err)
	}

	r.CountryISO = in.CountryISO
	r.CurrencyISO = in.CurrencyISO
	r.PaymentMethod = in.PaymentMethod
	r.TimeCreate = in.TimeCreate
	r.TimeToExpiration = in.TimeToExpiration
	r.TimeModification = in.TimeModification
	if r.TimeModification == 0 {
		r.TimeModification = r.TimeCreate
	}
	r.ShortInfo = in.ShortInfo
	r.Details = in.Details
	r.EditingVersion = in.EditingVersion

	if in.Hash != "" {
		if r.Hash, err = offer.ParseHash(in.Hash); err != nil {
			return r, fmt.Errorf("hash: %w", err)
		}
	} else {
		r.Hash = offer.ContentHash(r)
	}

	return r, r.Validate()
}

// MyOffer converts the input into a local offer. Type is required;
// Status defaults to active.
func (in OfferInput) MyOffer() (offer.MyOffer, error) {
	r, err := in.Record()
	if err != nil {
		return offer.MyOffer{}, err
	}
	if in.Type == "" {
		return offer.MyOffer{}, errors.New("type is required for local offers")
	}
	typ, err := offer.ParseType(in.Type)
	if err != nil {
		return offer.MyOffer{}, err
	}
	status := offer.StatusActive
	if in.Status != "" {
		if status, err = offer.ParseStatus(in.Status); err != nil {
			return offer.MyOffer{}, err
		}
	}
	return offer.MyOffer{Record: r, Type: typ, Status: status}, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

func parseOptionalAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return offer.ParseAmount(s)
}
