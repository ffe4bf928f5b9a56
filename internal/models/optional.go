package models

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// OptionalDecimal is a JSON field that remembers whether it appeared in the payload.
// Absent, explicit null and a concrete value are three different states.
type OptionalDecimal struct {
	Set   bool
	Null  bool
	Value decimal.Decimal
}

// UnmarshalJSON is only invoked for keys present in the document.
func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return o.Value.UnmarshalJSON(data)
}

// Present reports whether a non-null value was supplied.
func (o OptionalDecimal) Present() bool {
	return o.Set && !o.Null
}

// SomeDecimal builds a present OptionalDecimal.
func SomeDecimal(d decimal.Decimal) OptionalDecimal {
	return OptionalDecimal{Set: true, Value: d}
}

// ThresholdUpdate is a partial update of a threshold's bounds. Omitted bounds are kept.
type ThresholdUpdate struct {
	MinValue OptionalDecimal `json:"minValue"`
	MaxValue OptionalDecimal `json:"maxValue"`
}
