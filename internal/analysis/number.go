package analysis

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Float is a lenient optional number. Models return numbers as JSON numbers,
// numeric strings ("18", "4,5 mg/dL") or null; all decode without error.
type Float struct {
	Value float64
	Valid bool
}

// Some returns a valid Float.
func Some(v float64) Float {
	return Float{Value: v, Valid: true}
}

// Ptr returns nil for an invalid Float.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = Float{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, ok := LeadingNumber(s)
		*f = Float{Value: v, Valid: ok}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

var leadingNumber = regexp.MustCompile(`^[<>≤≥~≈]?\s*(-?\d+(?:[.,]\d+)?)`)

// LeadingNumber parses the number at the start of s, accepting a comparison
// prefix and a decimal comma.
func LeadingNumber(s string) (float64, bool) {
	m := leadingNumber.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
