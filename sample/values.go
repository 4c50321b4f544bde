package sample

import (
	"fmt"
	"math"
)

// Values holds the sampled parameter values of one leaf evaluation, keyed by
// parameter name. Values survive a JSON round trip through a decision trace,
// so the typed getters coerce the numeric forms JSON decoding produces.
type Values map[string]any

// Has reports whether a parameter was sampled.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Any returns the raw sampled value.
func (v Values) Any(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

// Float64 returns a numeric parameter as float64.
func (v Values) Float64(name string) (float64, error) {
	val, ok := v[name]
	if !ok {
		return 0, fmt.Errorf("param %q not sampled", name)
	}
	switch n := val.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("param %q is %T, not numeric", name, val)
	}
}

// Int returns an integral parameter as int. A float value is accepted only
// when it carries no fractional part, which covers trace round trips.
func (v Values) Int(name string) (int, error) {
	val, ok := v[name]
	if !ok {
		return 0, fmt.Errorf("param %q not sampled", name)
	}
	switch n := val.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("param %q is fractional (%v), not an int", name, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("param %q is %T, not an int", name, val)
	}
}

// Bool returns a boolean parameter.
func (v Values) Bool(name string) (bool, error) {
	val, ok := v[name]
	if !ok {
		return false, fmt.Errorf("param %q not sampled", name)
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("param %q is %T, not a bool", name, val)
	}
	return b, nil
}

// String returns a string parameter.
func (v Values) String(name string) (string, error) {
	val, ok := v[name]
	if !ok {
		return "", fmt.Errorf("param %q not sampled", name)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("param %q is %T, not a string", name, val)
	}
	return s, nil
}
