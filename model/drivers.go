/*
Package model holds the value types shared by every stage of the engine.

KEY CONCEPTS IN THIS FILE (drivers.go):
  - Drivers: the normalized, immutable input set for one generation request
  - Fingerprint: stable hash of a driver set, so schedule/statement results
    are cacheable by (template id, fingerprint)

DESIGN PRINCIPLES:
  1. Immutability: Drivers expose accessors only; With returns a copy
  2. Determinism: iteration order never leaks into results (sorted keys)
  3. Request scope: a Drivers value is never shared across requests

USAGE:
  d := model.NewDrivers(map[string]float64{"tax_rate": 0.25}, nil)
  rate := d.Float("tax_rate")
  optimistic := d.With(map[string]float64{"revenue_growth_rate": 0.06})

SEE ALSO:
  - errors.go: validation and anomaly errors
  - normalize/normalize.go: produces Drivers from raw inputs
*/
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// DefaultPeriods is the planning horizon when a template does not override it.
const DefaultPeriods = 60

// PeriodsKey is the driver id carrying the planning horizon.
const PeriodsKey = "periods"

// =============================================================================
// DRIVERS - Normalized inputs for one request
// =============================================================================

// Drivers maps input ids to resolved values.
type Drivers struct {
	nums  map[string]float64
	texts map[string]string
}

// NewDrivers copies the given maps into an immutable driver set.
func NewDrivers(nums map[string]float64, texts map[string]string) Drivers {
	d := Drivers{
		nums:  make(map[string]float64, len(nums)),
		texts: make(map[string]string, len(texts)),
	}
	for k, v := range nums {
		d.nums[k] = v
	}
	for k, v := range texts {
		d.texts[k] = v
	}
	return d
}

// Float returns the numeric driver, or 0 when absent.
func (d Drivers) Float(id string) float64 {
	return d.nums[id]
}

// Lookup returns the numeric driver and whether it is present.
func (d Drivers) Lookup(id string) (float64, bool) {
	v, ok := d.nums[id]
	return v, ok
}

// Text returns the text/enum driver, or "" when absent.
func (d Drivers) Text(id string) string {
	return d.texts[id]
}

// Has reports whether id resolved to any value.
func (d Drivers) Has(id string) bool {
	if _, ok := d.nums[id]; ok {
		return true
	}
	_, ok := d.texts[id]
	return ok
}

// Bool treats a numeric driver as a flag (non-zero is true).
func (d Drivers) Bool(id string) bool {
	return d.nums[id] != 0
}

// Periods returns the planning horizon, DefaultPeriods when unset.
func (d Drivers) Periods() int {
	p, ok := d.nums[PeriodsKey]
	if !ok || p < 1 {
		return DefaultPeriods
	}
	return int(p)
}

// With returns a copy of d with the numeric overrides applied.
func (d Drivers) With(overrides map[string]float64) Drivers {
	out := NewDrivers(d.nums, d.texts)
	for k, v := range overrides {
		out.nums[k] = v
	}
	return out
}

// Numbers returns a copy of the numeric drivers.
func (d Drivers) Numbers() map[string]float64 {
	out := make(map[string]float64, len(d.nums))
	for k, v := range d.nums {
		out[k] = v
	}
	return out
}

// Texts returns a copy of the text drivers.
func (d Drivers) Texts() map[string]string {
	out := make(map[string]string, len(d.texts))
	for k, v := range d.texts {
		out[k] = v
	}
	return out
}

// Fingerprint returns a stable SHA-256 over the sorted driver set.
func (d Drivers) Fingerprint() string {
	keys := make([]string, 0, len(d.nums)+len(d.texts))
	for k := range d.nums {
		keys = append(keys, "n:"+k)
	}
	for k := range d.texts {
		keys = append(keys, "t:"+k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		var v string
		if k[0] == 'n' {
			v = strconv.FormatFloat(d.nums[k[2:]], 'g', -1, 64)
		} else {
			v = d.texts[k[2:]]
		}
		fmt.Fprintf(h, "%s=%s\n", k, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// =============================================================================
// SERIES HELPERS
// =============================================================================

// FirstNonFinite returns the index of the first NaN/Inf in xs, or -1.
func FirstNonFinite(xs []float64) int {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}

// CheckSeries returns a ComputationAnomaly for the first non-finite value
// among the named series. Names are checked in sorted order.
func CheckSeries(stage string, series map[string][]float64) error {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if i := FirstNonFinite(series[name]); i >= 0 {
			return &ComputationAnomaly{
				Stage:  stage,
				Field:  name,
				Period: i,
				Value:  series[name][i],
				Reason: "non-finite value",
			}
		}
	}
	return nil
}
