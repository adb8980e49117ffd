package metrics_test

import (
	"math"
	"testing"

	"github.com/taskflow-dev/tugboat/pkg/domain/validation/metrics"
)

const exposition = `# HELP http_requests_total requests served, by method and status.
# TYPE http_requests_total counter
http_requests_total{method="GET",status="200"} 900
http_requests_total{method="POST",status="201"} 40
http_requests_total{method="GET",status="500"} 50
http_requests_total{method="GET",status="503"} 10
# HELP http_request_duration_seconds response time of requests served.
# TYPE http_request_duration_seconds histogram
http_request_duration_seconds_bucket{le="0.1"} 600
http_request_duration_seconds_bucket{le="0.25"} 800
http_request_duration_seconds_bucket{le="0.5"} 950
http_request_duration_seconds_bucket{le="+Inf"} 1000
http_request_duration_seconds_sum 123.4
http_request_duration_seconds_count 1000
# HELP node_memory_working_set_bytes current working set of the node.
# TYPE node_memory_working_set_bytes gauge
node_memory_working_set_bytes 1.5e+09
`

func parse(t *testing.T) metrics.Families {
	t.Helper()
	fams, err := metrics.Parse([]byte(exposition))
	if err != nil {
		t.Fatalf("exposition does not parse: %s", err)
	}
	return fams
}

func TestParse(t *testing.T) {
	t.Run("when the exposition is broken, it errors", func(t *testing.T) {
		if _, err := metrics.Parse([]byte("http_requests_total{oops 1\n")); err == nil {
			t.Error("no error for a broken exposition")
		}
	})

	t.Run("histogram lines land under the base family name", func(t *testing.T) {
		fams := parse(t)
		if _, ok := fams["http_request_duration_seconds"]; !ok {
			t.Error("histogram family is not keyed by its base name")
		}
		if _, ok := fams["http_request_duration_seconds_bucket"]; ok {
			t.Error("bucket lines leaked into a family of their own")
		}
	})
}

func TestSum(t *testing.T) {
	fams := parse(t)

	for name, testcase := range map[string]struct {
		family   string
		matchers []metrics.Matcher
		want     float64
	}{
		"the whole counter family": {
			family: "http_requests_total", want: 1000,
		},
		"series matched by label value prefix": {
			family:   "http_requests_total",
			matchers: []metrics.Matcher{metrics.LabelPrefix("status", "5")},
			want:     60,
		},
		"series matched by exact label": {
			family:   "http_requests_total",
			matchers: []metrics.Matcher{metrics.Label("status", "500")},
			want:     50,
		},
		"all matchers must hold at once": {
			family: "http_requests_total",
			matchers: []metrics.Matcher{
				metrics.Label("method", "POST"), metrics.LabelPrefix("status", "5"),
			},
			want: 0,
		},
		"histograms sum to their sample count": {
			family: "http_request_duration_seconds", want: 1000,
		},
		"gauges": {
			family: "node_memory_working_set_bytes", want: 1.5e+09,
		},
		"a family not exposed": {
			family: "tcp_connections_total", want: 0,
		},
	} {
		t.Run(name, func(t *testing.T) {
			if got := fams.Sum(testcase.family, testcase.matchers...); got != testcase.want {
				t.Errorf("Sum(%s) = %f (want %f)", testcase.family, got, testcase.want)
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	fams := parse(t)

	t.Run("it interpolates within a bucket", func(t *testing.T) {
		// rank 500 of 1000 falls into the first bucket (600 at le=0.1).
		got := fams.Quantile("http_request_duration_seconds", 0.5)
		want := 0.1 * 500 / 600
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("P50 = %f (want %f)", got, want)
		}
	})

	t.Run("it reaches the exact bucket bound", func(t *testing.T) {
		// rank 950 of 1000 is the cumulative count at le=0.5.
		got := fams.Quantile("http_request_duration_seconds", 0.95)
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("P95 = %f (want 0.5)", got)
		}
	})

	t.Run("it does not interpolate into the overflow bucket", func(t *testing.T) {
		// rank 990 of 1000 exceeds every finite bound.
		got := fams.Quantile("http_request_duration_seconds", 0.99)
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("P99 = %f (want the last finite bound, 0.5)", got)
		}
	})

	t.Run("when there is no observation, it is NaN", func(t *testing.T) {
		if got := fams.Quantile("tcp_connections_total", 0.95); !math.IsNaN(got) {
			t.Errorf("quantile of an absent family = %f (want NaN)", got)
		}
	})

	t.Run("matchers narrow the merged series", func(t *testing.T) {
		if got := fams.Quantile(
			"http_request_duration_seconds", 0.95, metrics.Label("status", "500"),
		); !math.IsNaN(got) {
			t.Errorf("quantile over zero matching series = %f (want NaN)", got)
		}
	})
}
