package consequence

import (
	"encoding/json"
	"math"
	"strings"
)

// Params is the untyped parameter bag of an effect. Values are scalars:
// json.Number, int, int64, float64, string or bool.
//
// Every accessor takes a default that is returned when the key is missing or
// holds a value of the wrong type. Accessors never fail.
type Params map[string]any

// Int returns an integer parameter. Whole floats are accepted; fractional
// ones are truncated toward zero.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) {
			return def
		}
		return saturate(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil || math.IsInf(f, 0) {
			return saturate(f)
		}
	}
	return def
}

// saturate converts f to int, pinning values outside the int range to its ends.
func saturate(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// Float returns a numeric parameter.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		if math.IsNaN(v) {
			return def
		}
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

// String returns a non-blank string parameter.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool returns a boolean parameter.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
