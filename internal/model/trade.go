package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The wire contract expects prices as bare JSON numbers, matching what the
	// journal backend and the extraction schema use.
	decimal.MarshalJSONWithoutQuotes = true
}

// TradeRecord is a fully-formed trade extracted from free text. A record is
// either valid in its entirety or absent — extraction never surfaces a
// partial record to the caller.
type TradeRecord struct {
	Ticker     string           `json:"ticker"`
	EntryDate  Date             `json:"entry_date"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	Quantity   float64          `json:"quantity"`
	ExitDate   *Date            `json:"exit_date,omitempty"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
}

// ApplyDefaults fills fields the model is allowed to omit.
// Quantity defaults to 1 when the utterance doesn't mention one.
func (t *TradeRecord) ApplyDefaults() {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	if t.Quantity == 0 {
		t.Quantity = 1
	}
}

// Validate reports whether the record is well-formed enough to hand to the
// caller. Call ApplyDefaults first.
func (t *TradeRecord) Validate() error {
	if t.Ticker == "" {
		return errors.New("trade record missing ticker")
	}
	if t.EntryDate.IsZero() {
		return errors.New("trade record missing entry date")
	}
	if !t.EntryPrice.IsPositive() {
		return errors.New("trade record entry price must be positive")
	}
	if t.Quantity <= 0 {
		return errors.New("trade record quantity must be positive")
	}
	if t.ExitPrice != nil && !t.ExitPrice.IsPositive() {
		return errors.New("trade record exit price must be positive")
	}
	return nil
}
