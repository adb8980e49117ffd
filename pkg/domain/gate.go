package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
)

// GateKind names a validation gate.
type GateKind string

const (
	// all nodes Ready, control plane reachable.
	GateClusterHealth GateKind = "cluster-health"

	// target deployment fully available, pods running without restart churn.
	GateAppReadiness GateKind = "app-readiness"

	// service has ready endpoint addresses for the slot.
	GateEndpoints GateKind = "endpoints"

	// HTTP response time of the slot within threshold.
	GatePerformance GateKind = "performance"

	// cluster has allocatable headroom for the slot.
	GateResources GateKind = "resources"

	// deployment spec satisfies the security/resource policy.
	GateCompliance GateKind = "compliance"

	// container image scan reports no blocking findings.
	GateImageScan GateKind = "image-scan"

	// canary metrics (error rate, latency) within thresholds.
	GateMetricsDelta GateKind = "metrics-delta"
)

func (gk GateKind) String() string {
	return string(gk)
}

func (gk GateKind) IsKnown() bool {
	switch gk {
	case GateClusterHealth, GateAppReadiness, GateEndpoints, GatePerformance,
		GateResources, GateCompliance, GateImageScan, GateMetricsDelta:
		return true
	default:
		return false
	}
}

var ErrUnknownGateKind = errors.New("unknown gate kind")

func AsGateKind(s string) (GateKind, error) {
	gk := GateKind(s)
	if gk.IsKnown() {
		return gk, nil
	}
	return gk, fmt.Errorf(`%w: "%s"`, ErrUnknownGateKind, s)
}

// gates run when a release does not choose its own.
func DefaultGates() []GateKind {
	return []GateKind{
		GateClusterHealth, GateAppReadiness, GateEndpoints, GatePerformance,
	}
}

// GateOutcome is the verdict of one gate run.
type GateOutcome string

const (
	GatePassed GateOutcome = "passed"
	GateFailed GateOutcome = "failed"

	// the gate could not run (e.g. scanner binary absent). Counts as passed.
	GateSkipped GateOutcome = "skipped"
)

// GateReport is the recorded result of one gate run.
type GateReport struct {
	Kind    GateKind
	Outcome GateOutcome

	// human-readable result, e.g. "avg response time 42ms".
	Summary string

	// raw numeric observations, meaning depends on Kind.
	Samples []float64

	// threshold which applied to Samples, 0 when not applicable.
	Threshold float64

	ObservedAt time.Time
}

// Ok is true when the gate does not block the rollout.
func (r GateReport) Ok() bool {
	return r.Outcome != GateFailed
}

func (r GateReport) Equal(o GateReport) bool {
	return r.Kind == o.Kind &&
		r.Outcome == o.Outcome &&
		r.Summary == o.Summary &&
		cmp.SliceEq(r.Samples, o.Samples) &&
		r.Threshold == o.Threshold
}

// Thresholds bound what validation gates accept.
type Thresholds struct {
	ResponseTimeMillis float64
	CPUPercent         float64
	MemoryPercent      float64
	ErrorRatePercent   float64
	P95LatencyMillis   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ResponseTimeMillis: 500,
		CPUPercent:         80,
		MemoryPercent:      80,
		ErrorRatePercent:   5,
		P95LatencyMillis:   500,
	}
}
