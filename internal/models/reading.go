package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Calculating is the wire form of a Reading that has no value yet.
const Calculating = "calculating"

// Reading is a signal value that may be unavailable, for example an HRV
// estimate still in its warm-up period. An unavailable Reading is never
// treated as zero.
type Reading struct {
	Value float64
	Valid bool
}

// Unavailable is the zero Reading.
var Unavailable = Reading{}

// Available wraps v as a present Reading. NaN and infinities are unavailable.
func Available(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable
	}
	return Reading{Value: v, Valid: true}
}

// Get returns the value and whether it is present.
func (r Reading) Get() (float64, bool) {
	return r.Value, r.Valid
}

// Or returns the value, or fallback when unavailable.
func (r Reading) Or(fallback float64) float64 {
	if !r.Valid {
		return fallback
	}
	return r.Value
}

func (r Reading) String() string {
	if !r.Valid {
		return Calculating
	}
	return fmt.Sprintf("%.2f", r.Value)
}

// MarshalJSON writes a number, or the "calculating" sentinel.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(Calculating)
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number, null, or any string sentinel.
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || (len(data) > 0 && data[0] == '"') {
		*r = Unavailable
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	*r = Available(v)
	return nil
}
