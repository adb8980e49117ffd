// Package metrics reads Prometheus text exposition,
// as served by app pods on /metrics and by kubelets on /proxy/metrics/resource.
package metrics

import (
	"bytes"
	"math"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Families is a parsed exposition, keyed by metric family name.
//
// Histogram families are keyed by their base name
// (so "http_request_duration_seconds_bucket" lines land under
// "http_request_duration_seconds").
type Families map[string]*dto.MetricFamily

func Parse(text []byte) (Families, error) {
	var p expfmt.TextParser
	mfs, err := p.TextToMetricFamilies(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}
	return Families(mfs), nil
}

// Matcher selects series of a family by their labels.
type Matcher func(*dto.Metric) bool

// Label matches series carrying the label with exactly this value.
func Label(name string, value string) Matcher {
	return func(m *dto.Metric) bool {
		for _, l := range m.Label {
			if l.GetName() == name && l.GetValue() == value {
				return true
			}
		}
		return false
	}
}

// LabelPrefix matches series whose label value starts with prefix.
//
// Status classes are matched this way: LabelPrefix("status", "5")
// covers 500, 502, 503...
func LabelPrefix(name string, prefix string) Matcher {
	return func(m *dto.Metric) bool {
		for _, l := range m.Label {
			if l.GetName() == name && len(prefix) <= len(l.GetValue()) &&
				l.GetValue()[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}
}

func matchesAll(m *dto.Metric, ms []Matcher) bool {
	for _, match := range ms {
		if !match(m) {
			return false
		}
	}
	return true
}

// Sum adds up the values of all matching series of the family.
//
// Counters, gauges and untyped series are summed; for histograms the
// sample count is taken. A family that does not exist sums to zero.
func (fs Families) Sum(family string, ms ...Matcher) float64 {
	mf, ok := fs[family]
	if !ok {
		return 0
	}

	total := 0.0
	for _, m := range mf.Metric {
		if !matchesAll(m, ms) {
			continue
		}
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Histogram != nil:
			total += float64(m.Histogram.GetSampleCount())
		}
	}
	return total
}

// Quantile estimates a quantile of a histogram family, merging the
// buckets of all matching series, with the linear interpolation
// Prometheus' histogram_quantile applies.
//
// NaN is returned when the family has no observations.
func (fs Families) Quantile(family string, q float64, ms ...Matcher) float64 {
	mf, ok := fs[family]
	if !ok {
		return math.NaN()
	}

	cumulative := map[float64]uint64{}
	var count uint64
	for _, m := range mf.Metric {
		if m.Histogram == nil || !matchesAll(m, ms) {
			continue
		}
		for _, b := range m.Histogram.Bucket {
			cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
		}
		count += m.Histogram.GetSampleCount()
	}
	if count == 0 {
		return math.NaN()
	}

	bounds := make([]float64, 0, len(cumulative))
	for le := range cumulative {
		bounds = append(bounds, le)
	}
	sort.Float64s(bounds)

	rank := q * float64(count)
	var prevBound float64
	var prevCount uint64
	for _, le := range bounds {
		c := cumulative[le]
		if rank <= float64(c) {
			if math.IsInf(le, +1) {
				// cannot interpolate into the overflow bucket.
				return prevBound
			}
			if c == prevCount {
				return le
			}
			return prevBound + (le-prevBound)*
				(rank-float64(prevCount))/float64(c-prevCount)
		}
		prevBound, prevCount = le, c
	}
	return prevBound
}
