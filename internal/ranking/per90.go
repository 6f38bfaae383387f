package ranking

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Per90 is a per-match metric held as a fixed two-decimal value (hundredths).
type Per90 int64

// NewPer90 rounds v to two decimals, halves to even.
func NewPer90(v float64) Per90 {
	return Per90(math.RoundToEven(v * 100))
}

// Float64 returns the metric as a float.
func (p Per90) Float64() float64 {
	return float64(p) / 100
}

// String renders the metric with exactly two decimals, e.g. "1.50".
func (p Per90) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the metric as a JSON number with two decimals.
func (p Per90) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (p *Per90) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decoding per-90 value %q: %w", data, err)
	}
	*p = NewPer90(f)
	return nil
}
