// Package stats computes robust price summaries: linear-interpolation
// percentiles, a soft clamp with a revert-to-raw fallback, and IQR outlier
// trimming.
package stats

import (
	"math"
	"slices"
)

const (
	// MinIQRSamples is the smallest sample the IQR filter will trim.
	MinIQRSamples = 6

	// minClampKeep is the floor on how many values a clamp must keep.
	minClampKeep = 6

	iqrFactor = 1.5
)

// Options configures Compute.
type Options struct {
	ClampMin      float64
	ClampMax      float64
	OutlierFilter bool
}

// Summary is the outcome of Compute. Median, P25 and P75 are nil when no
// values survive filtering.
type Summary struct {
	Median        *float64
	P25           *float64
	P75           *float64
	UsedCount     int
	RawCount      int
	ClampDropped  int
	ClampReverted bool
	IQRDropped    int
	Prices        []float64
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. p is clamped to [0, 100]. It returns
// false for empty input or a NaN p.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 || math.IsNaN(p) {
		return 0, false
	}
	p = max(0, min(p, 100))

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	k := float64(len(sorted)-1) * (p / 100)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)], true
	}

	d0 := sorted[int(f)] * (c - k)
	d1 := sorted[int(c)] * (k - f)
	return d0 + d1, true
}

// Median is Percentile at p=50.
func Median(values []float64) (float64, bool) {
	return Percentile(values, 50)
}

// Clamp keeps values within [lo, hi]. When clamping drops values and fewer
// than max(6, len/3) survive, it returns the input unchanged and reports
// reverted=true.
func Clamp(values []float64, lo, hi float64) (kept []float64, reverted bool) {
	clamped := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			clamped = append(clamped, v)
		}
	}

	if len(clamped) == len(values) {
		return clamped, false
	}
	if len(clamped) >= max(minClampKeep, len(values)/3) {
		return clamped, false
	}
	return values, true
}

// IQRFilter keeps values within [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Inputs with
// fewer than MinIQRSamples values are returned unchanged.
func IQRFilter(values []float64) []float64 {
	if len(values) < MinIQRSamples {
		return values
	}

	q1, ok1 := Percentile(values, 25)
	q3, ok3 := Percentile(values, 75)
	if !ok1 || !ok3 {
		return values
	}

	iqr := q3 - q1
	lo := q1 - iqrFactor*iqr
	hi := q3 + iqrFactor*iqr

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	return kept
}

// Compute runs clamp (with fallback), then the optional IQR filter, then
// median/p25/p75 rounded to two decimals.
func Compute(prices []float64, opts Options) Summary {
	s := Summary{RawCount: len(prices)}

	values, reverted := Clamp(prices, opts.ClampMin, opts.ClampMax)
	s.ClampReverted = reverted
	s.ClampDropped = len(prices) - len(values)

	if opts.OutlierFilter {
		before := len(values)
		values = IQRFilter(values)
		s.IQRDropped = before - len(values)
	}

	s.UsedCount = len(values)
	s.Prices = values
	if len(values) == 0 {
		return s
	}

	s.Median = rounded(Median(values))
	s.P25 = rounded(Percentile(values, 25))
	s.P75 = rounded(Percentile(values, 75))
	return s
}

func rounded(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	r := math.Round(v*100) / 100
	return &r
}
