package costing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidOverride is returned for non-numeric, negative or non-finite
// override input. The override map is left unchanged.
var ErrInvalidOverride = errors.New("invalid override")

// OverrideState summarizes how many monetary metrics the user replaced.
type OverrideState int

const (
	NoOverrides OverrideState = iota
	PartiallyOverridden
	FullyOverridden
)

func (s OverrideState) String() string {
	switch s {
	case NoOverrides:
		return "market-estimate"
	case PartiallyOverridden:
		return "hybrid"
	case FullyOverridden:
		return "fully-custom"
	default:
		return "unknown"
	}
}

// Overrides maps monetary metric keys to user values in the selected
// currency. Methods never mutate the receiver.
type Overrides map[MetricKey]float64

func validOverride(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value returns the override for key when one is set and valid.
func (o Overrides) Value(key MetricKey) (float64, bool) {
	if !key.Overridable() {
		return 0, false
	}
	v, ok := o[key]
	if !ok || !validOverride(v) {
		return 0, false
	}
	return v, true
}

// Clone returns a copy holding only valid overrides.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for _, k := range OverridableMetrics {
		if v, ok := o.Value(k); ok {
			out[k] = v
		}
	}
	return out
}

// Set parses raw and returns a new map with key set. Empty input clears
// the override.
func (o Overrides) Set(key MetricKey, raw string) (Overrides, error) {
	if !key.Overridable() {
		return o, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return o.Clear(key), nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return o, fmt.Errorf("%w: %s must be numeric", ErrInvalidOverride, key)
	}
	if !validOverride(v) {
		return o, fmt.Errorf("%w: %s must be a finite value greater than or equal to 0", ErrInvalidOverride, key)
	}

	out := o.Clone()
	out[key] = v
	return out, nil
}

// Clear returns a new map without key.
func (o Overrides) Clear(key MetricKey) Overrides {
	out := o.Clone()
	delete(out, key)
	return out
}

// Count is the number of valid overrides.
func (o Overrides) Count() int {
	n := 0
	for _, k := range OverridableMetrics {
		if _, ok := o.Value(k); ok {
			n++
		}
	}
	return n
}

// State derives the override state from the number of valid overrides.
func (o Overrides) State() OverrideState {
	switch n := o.Count(); {
	case n == 0:
		return NoOverrides
	case n < len(OverridableMetrics):
		return PartiallyOverridden
	default:
		return FullyOverridden
	}
}
