package common

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FloatDefault parses value as a float, falling back to def when it is empty,
// malformed or not finite.
func FloatDefault(value string, def float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return def
	}
	return parsed
}

// Number is a JSON numeric input that also accepts numeric strings. Missing,
// null, empty or non-numeric values decode to zero rather than failing.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*n = 0
			return nil
		}
		raw = []byte(s)
	}
	*n = Number(FloatDefault(string(raw), 0))
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }
