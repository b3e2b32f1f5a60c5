package core

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Older records were written by a browser client: ids are JSON numbers such
// as 1717171717171.4242 and qty may be fractional, negative or missing. The
// decoders below accept that layout and bring it in line with what Validate
// produces. Records are always written back with string ids.

func (s *Sale) UnmarshalJSON(b []byte) error {
	type plain Sale
	aux := struct {
		*plain
		ID       json.RawMessage `json:"id"`
		Quantity json.RawMessage `json:"qty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	id, err := scalarText(aux.ID)
	if err != nil {
		return err
	}
	qty, err := scalarText(aux.Quantity)
	if err != nil {
		return err
	}

	s.ID = id
	s.Quantity = parseQuantity(qty)
	s.SellPrice = bounded(s.SellPrice)
	s.BuyPrice = bounded(s.BuyPrice)
	if s.BuyPrice.IsNegative() {
		s.BuyPrice = decimal.Zero
	}
	return nil
}

func (e *Expense) UnmarshalJSON(b []byte) error {
	type plain Expense
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	id, err := scalarText(aux.ID)
	if err != nil {
		return err
	}
	e.ID = id
	e.Amount = bounded(e.Amount)
	return nil
}

// scalarText returns a JSON string as is and a JSON number as its literal
// text, so a numeric id still matches the string a client sends back.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
