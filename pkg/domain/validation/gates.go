package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation/metrics"
	kubecore "k8s.io/api/core/v1"
)

// a fresh slot starting over and over is not ready, whatever its phase says.
const restartLimit = 3

// how many response time samples the performance gate takes.
const performanceSamples = 3

// metric names of the managed app contract and of kubelet resource metrics.
const (
	metricRequests   = "http_requests_total"
	metricDurations  = "http_request_duration_seconds"
	metricNodeMemory = "node_memory_working_set_bytes"
)

// StandardGates are all gates a release can ask for,
// probing the cluster the slot runs in.
func StandardGates(client cluster.K8sClient, conf *bconf.TugClusterConfig) []Gate {
	return []Gate{
		ClusterHealth(client),
		AppReadiness(client),
		Endpoints(client),
		Performance(client, conf),
		Resources(client, conf),
		Compliance(client),
		ImageScan(conf, nil),
		MetricsDelta(client, conf),
	}
}

func slotSelector(t Target) cluster.LabelSelector {
	return cluster.LabelsToSelector(slot.TrafficSelector(t.App.Name, t.Color))
}

func nodeReady(n kubecore.Node) bool {
	for _, cond := range n.Status.Conditions {
		if cond.Type == kubecore.NodeReady {
			return cond.Status == kubecore.ConditionTrue
		}
	}
	return false
}

type clusterHealth struct {
	client cluster.K8sClient
}

// ClusterHealth requires every node Ready.
// Listing nodes proves the control plane answers, too.
func ClusterHealth(client cluster.K8sClient) Gate {
	return clusterHealth{client: client}
}

func (clusterHealth) Kind() domain.GateKind { return domain.GateClusterHealth }

func (g clusterHealth) Check(ctx context.Context, t Target) domain.GateReport {
	nodes, err := g.client.ListNodes(ctx)
	if err != nil {
		return failedf("cannot list nodes: %v", err)
	}
	if len(nodes) == 0 {
		return failed("cluster has no node")
	}

	ready := 0
	var notReady []string
	for _, n := range nodes {
		if nodeReady(n) {
			ready++
		} else {
			notReady = append(notReady, n.ObjectMeta.Name)
		}
	}

	r := passed(fmt.Sprintf("%d/%d nodes ready", ready, len(nodes)))
	if 0 < len(notReady) {
		r = failedf("nodes not ready: %s", strings.Join(notReady, ", "))
	}
	r.Samples = []float64{float64(ready), float64(len(nodes))}
	return r
}

type appReadiness struct {
	client cluster.K8sClient
}

// AppReadiness requires the slot Deployment fully rolled out and its pods
// running without restart churn.
func AppReadiness(client cluster.K8sClient) Gate {
	return appReadiness{client: client}
}

func (appReadiness) Kind() domain.GateKind { return domain.GateAppReadiness }

func (g appReadiness) Check(ctx context.Context, t Target) domain.GateReport {
	name := slot.DeploymentName(t.App.Name, t.Color)
	d, err := g.client.GetDeployment(ctx, t.App.Namespace, name)
	if err != nil {
		return failedf("deployment %s: %v", name, err)
	}

	desired := int32(1)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	st := d.Status
	if st.UpdatedReplicas != desired || st.AvailableReplicas != desired || st.ReadyReplicas != desired {
		return failedf(
			"deployment %s: desired=%d updated=%d available=%d ready=%d",
			name, desired, st.UpdatedReplicas, st.AvailableReplicas, st.ReadyReplicas,
		)
	}

	pods, err := g.client.FindPods(ctx, t.App.Namespace, slotSelector(t))
	if err != nil {
		return failedf("cannot list pods of %s: %v", name, err)
	}
	for _, pod := range pods {
		if pod.Status.Phase != kubecore.PodRunning {
			return failedf("pod %s is %s", pod.ObjectMeta.Name, pod.Status.Phase)
		}
		for _, cs := range pod.Status.ContainerStatuses {
			// slot pods are freshly provisioned; their counters start at zero.
			if restartLimit <= cs.RestartCount {
				return failedf("pod %s restarted %d times", pod.ObjectMeta.Name, cs.RestartCount)
			}
		}
	}

	return passed(fmt.Sprintf("%d/%d replicas serving", desired, desired))
}

type endpointsGate struct {
	client cluster.K8sClient
}

// Endpoints requires the app Service to have ready endpoint addresses.
// When the target slot should be in rotation already (canary, rolling),
// at least one of its pods must stand behind the Service.
func Endpoints(client cluster.K8sClient) Gate {
	return endpointsGate{client: client}
}

func (endpointsGate) Kind() domain.GateKind { return domain.GateEndpoints }

func (g endpointsGate) Check(ctx context.Context, t Target) domain.GateReport {
	name := slot.ServiceName(t.App.Name)
	eps, err := g.client.GetEndpoints(ctx, t.App.Namespace, name)
	if err != nil {
		return failedf("endpoints of service %s: %v", name, err)
	}

	addrs := map[string]bool{}
	for _, sub := range eps.Subsets {
		for _, a := range sub.Addresses {
			addrs[a.IP] = true
		}
	}
	if len(addrs) == 0 {
		return failedf("service %s has no ready endpoint address", name)
	}

	pods, err := g.client.FindPods(ctx, t.App.Namespace, slotSelector(t))
	if err != nil {
		return failedf("cannot list pods of the %s slot: %v", t.Color, err)
	}
	inRotation := 0
	for _, pod := range pods {
		if addrs[pod.Status.PodIP] {
			inRotation++
		}
	}
	if t.InRotation && inRotation == 0 {
		return failedf("no pod of the %s slot stands behind service %s", t.Color, name)
	}

	r := passed(fmt.Sprintf(
		"%d addresses ready, %d of the %s slot", len(addrs), inRotation, t.Color,
	))
	r.Samples = []float64{float64(len(addrs)), float64(inRotation)}
	return r
}

type performance struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
}

// Performance probes the slot pods over HTTP and requires the average
// response time under the configured threshold. Any failing request
// fails the gate.
func Performance(client cluster.K8sClient, conf *bconf.TugClusterConfig) Gate {
	return performance{client: client, conf: conf}
}

func (performance) Kind() domain.GateKind { return domain.GatePerformance }

func (g performance) Check(ctx context.Context, t Target) domain.GateReport {
	threshold := float64(g.conf.Gates().LatencyThreshold().Milliseconds())

	pods, err := g.client.FindPods(ctx, t.App.Namespace, slotSelector(t))
	if err != nil {
		return failedf("cannot list pods of the %s slot: %v", t.Color, err)
	}
	serving := []kubecore.Pod{}
	for _, pod := range pods {
		if pod.Status.Phase == kubecore.PodRunning {
			serving = append(serving, pod)
		}
	}
	if len(serving) == 0 {
		return failedf("no running pod of the %s slot to probe", t.Color)
	}

	port := strconv.Itoa(slot.AppPort)
	times := []float64{}
	for n := 0; n < performanceSamples; n++ {
		pod := serving[n%len(serving)]
		begin := time.Now()
		_, err := g.client.PodProxyGet(ctx, t.App.Namespace, pod.ObjectMeta.Name, port, slot.HealthPath)
		if err != nil {
			r := failedf("sample %d against pod %s: %v", n+1, pod.ObjectMeta.Name, err)
			r.Samples, r.Threshold = times, threshold
			return r
		}
		times = append(times, float64(time.Since(begin).Microseconds())/1000.0)
	}

	avg := 0.0
	for _, ms := range times {
		avg += ms
	}
	avg /= float64(len(times))

	r := passed(fmt.Sprintf("avg response time %.0fms", avg))
	if threshold < avg {
		r = failedf("avg response time %.0fms over %.0fms", avg, threshold)
	}
	r.Samples, r.Threshold = times, threshold
	return r
}

type resourcesGate struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
}

// Resources requires the requests of all pods in the app namespace,
// the freshly provisioned slot included, to stay within the configured
// share of what ready nodes can allocate.
func Resources(client cluster.K8sClient, conf *bconf.TugClusterConfig) Gate {
	return resourcesGate{client: client, conf: conf}
}

func (resourcesGate) Kind() domain.GateKind { return domain.GateResources }

func (g resourcesGate) Check(ctx context.Context, t Target) domain.GateReport {
	nodes, err := g.client.ListNodes(ctx)
	if err != nil {
		return failedf("cannot list nodes: %v", err)
	}

	var allocCPU, allocMemory int64 // millicores, bytes
	for _, n := range nodes {
		if !nodeReady(n) {
			continue
		}
		allocCPU += n.Status.Allocatable.Cpu().MilliValue()
		allocMemory += n.Status.Allocatable.Memory().Value()
	}
	if allocCPU == 0 || allocMemory == 0 {
		return failed("no ready node allocates resources")
	}

	pods, err := g.client.FindPods(ctx, t.App.Namespace, cluster.LabelSelector{})
	if err != nil {
		return failedf("cannot list pods in %s: %v", t.App.Namespace, err)
	}
	var usedCPU, usedMemory int64
	for _, pod := range pods {
		switch pod.Status.Phase {
		case kubecore.PodSucceeded, kubecore.PodFailed:
			continue
		}
		for _, c := range pod.Spec.Containers {
			usedCPU += c.Resources.Requests.Cpu().MilliValue()
			usedMemory += c.Resources.Requests.Memory().Value()
		}
	}

	cpuPct := 100 * float64(usedCPU) / float64(allocCPU)
	memoryPct := 100 * float64(usedMemory) / float64(allocMemory)
	cpuMax := float64(g.conf.Gates().CPUPercent())
	memoryMax := float64(g.conf.Gates().MemoryPercent())

	r := passed(fmt.Sprintf(
		"requests claim cpu %.0f%%, memory %.0f%% of allocatable", cpuPct, memoryPct,
	))
	if cpuMax < cpuPct || memoryMax < memoryPct {
		r = failedf(
			"requests claim cpu %.0f%% (max %.0f%%), memory %.0f%% (max %.0f%%)",
			cpuPct, cpuMax, memoryPct, memoryMax,
		)
	}
	r.Samples, r.Threshold = []float64{cpuPct, memoryPct}, cpuMax
	return r
}

type compliance struct {
	client cluster.K8sClient
}

// Compliance checks the slot Deployment against the baseline policy:
// non-root, unprivileged, capabilities dropped, limits and probes set,
// and a NetworkPolicy fencing the app's pods.
func Compliance(client cluster.K8sClient) Gate {
	return compliance{client: client}
}

func (compliance) Kind() domain.GateKind { return domain.GateCompliance }

func (g compliance) Check(ctx context.Context, t Target) domain.GateReport {
	name := slot.DeploymentName(t.App.Name, t.Color)
	d, err := g.client.GetDeployment(ctx, t.App.Namespace, name)
	if err != nil {
		return failedf("deployment %s: %v", name, err)
	}

	var misses []string
	tpl := d.Spec.Template.Spec
	if tpl.SecurityContext == nil || tpl.SecurityContext.RunAsNonRoot == nil || !*tpl.SecurityContext.RunAsNonRoot {
		misses = append(misses, "pods may run as root")
	}
	for _, c := range tpl.Containers {
		sc := c.SecurityContext
		if sc != nil && sc.Privileged != nil && *sc.Privileged {
			misses = append(misses, fmt.Sprintf("container %s is privileged", c.Name))
		}
		if sc == nil || sc.Capabilities == nil || len(sc.Capabilities.Drop) == 0 {
			misses = append(misses, fmt.Sprintf("container %s drops no capability", c.Name))
		}
		if c.Resources.Limits.Cpu().IsZero() || c.Resources.Limits.Memory().IsZero() {
			misses = append(misses, fmt.Sprintf("container %s has no resource limits", c.Name))
		}
		if c.LivenessProbe == nil || c.ReadinessProbe == nil {
			misses = append(misses, fmt.Sprintf("container %s lacks probes", c.Name))
		}
	}

	fence := slot.NetworkPolicyName(t.App.Name)
	npol, err := g.client.GetNetworkPolicy(ctx, t.App.Namespace, fence)
	if err != nil {
		misses = append(misses, fmt.Sprintf("no networkpolicy %s fences the app", fence))
	} else if npol.Spec.PodSelector.MatchLabels[slot.LabelApp] != t.App.Name {
		misses = append(misses, fmt.Sprintf("networkpolicy %s does not select the app pods", fence))
	}

	if 0 < len(misses) {
		return failed(strings.Join(misses, "; "))
	}
	return passed("policy satisfied")
}

// CommandRunner executes an external command and returns its stdout.
// Swappable so tests need no scanner binary.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type imageScan struct {
	conf *bconf.TugClusterConfig
	run  CommandRunner
}

// ImageScan runs the configured scanner against the release image and
// fails on critical findings. A missing scanner skips the gate.
//
// run may be nil; the scanner subprocess is used then.
func ImageScan(conf *bconf.TugClusterConfig, run CommandRunner) Gate {
	if run == nil {
		run = runCommand
	}
	return imageScan{conf: conf, run: run}
}

func (imageScan) Kind() domain.GateKind { return domain.GateImageScan }

// the slice of trivy's report this gate reads.
type scanReport struct {
	Results []struct {
		Vulnerabilities []struct {
			Severity string `json:"Severity"`
		} `json:"Vulnerabilities"`
	} `json:"Results"`
}

func (g imageScan) Check(ctx context.Context, t Target) domain.GateReport {
	scanner := g.conf.Gates().TrivyPath()
	if scanner == "" {
		return skipped("image scanner not configured")
	}

	out, err := g.run(ctx, scanner, "image", "--format", "json", "--quiet", t.Release.Image)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return skipped(fmt.Sprintf("image scanner not installed at %s", scanner))
		}
		return failedf("scanning %s: %v", t.Release.Image, err)
	}

	var scan scanReport
	if err := json.Unmarshal(out, &scan); err != nil {
		return failedf("cannot read scanner output: %v", err)
	}

	counts := map[string]int{}
	for _, res := range scan.Results {
		for _, v := range res.Vulnerabilities {
			counts[v.Severity]++
		}
	}

	r := passed(fmt.Sprintf(
		"no critical vulnerability (high %d, medium %d, low %d)",
		counts["HIGH"], counts["MEDIUM"], counts["LOW"],
	))
	if 0 < counts["CRITICAL"] {
		r = failedf("%d critical vulnerabilities in %s", counts["CRITICAL"], t.Release.Image)
	}
	r.Samples = []float64{
		float64(counts["CRITICAL"]), float64(counts["HIGH"]),
		float64(counts["MEDIUM"]), float64(counts["LOW"]),
	}
	return r
}

type metricsDelta struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
}

// MetricsDelta reads the slot pods' own metrics: 5xx share of requests
// and P95 latency must stay under the canary thresholds, and the nodes
// the pods run on must not be under memory pressure.
//
// An unreachable metrics endpoint fails the gate; a slot not telling
// how it is doing cannot take traffic.
func MetricsDelta(client cluster.K8sClient, conf *bconf.TugClusterConfig) Gate {
	return metricsDelta{client: client, conf: conf}
}

func (metricsDelta) Kind() domain.GateKind { return domain.GateMetricsDelta }

func (g metricsDelta) Check(ctx context.Context, t Target) domain.GateReport {
	pods, err := g.client.FindPods(ctx, t.App.Namespace, slotSelector(t))
	if err != nil {
		return failedf("cannot list pods of the %s slot: %v", t.Color, err)
	}

	port := strconv.Itoa(slot.AppPort)
	var errors5xx, total, worstP95 float64
	hosts := map[string]bool{}
	sampled := 0
	for _, pod := range pods {
		if pod.Status.Phase != kubecore.PodRunning {
			continue
		}
		text, err := g.client.PodProxyGet(ctx, t.App.Namespace, pod.ObjectMeta.Name, port, "/metrics")
		if err != nil {
			return failedf("metrics of pod %s unreachable: %v", pod.ObjectMeta.Name, err)
		}
		fams, err := metrics.Parse(text)
		if err != nil {
			return failedf("metrics of pod %s: %v", pod.ObjectMeta.Name, err)
		}

		errors5xx += fams.Sum(metricRequests, metrics.LabelPrefix("status", "5"))
		total += fams.Sum(metricRequests)
		if p95 := fams.Quantile(metricDurations, 0.95); !math.IsNaN(p95) && worstP95 < p95 {
			worstP95 = p95
		}
		if pod.Spec.NodeName != "" {
			hosts[pod.Spec.NodeName] = true
		}
		sampled++
	}
	if sampled == 0 {
		return failedf("no running pod of the %s slot to sample", t.Color)
	}

	memoryMax := float64(g.conf.Gates().MemoryPercent())
	if 0 < len(hosts) {
		nodes, err := g.client.ListNodes(ctx)
		if err != nil {
			return failedf("cannot list nodes: %v", err)
		}
		allocatable := map[string]int64{}
		for _, n := range nodes {
			allocatable[n.ObjectMeta.Name] = n.Status.Allocatable.Memory().Value()
		}
		for host := range hosts {
			raw, err := g.client.NodeMetrics(ctx, host)
			if err != nil {
				return failedf("metrics of node %s unreachable: %v", host, err)
			}
			fams, err := metrics.Parse(raw)
			if err != nil {
				return failedf("metrics of node %s: %v", host, err)
			}
			workingSet := fams.Sum(metricNodeMemory)
			if alloc := allocatable[host]; 0 < alloc {
				if pct := 100 * workingSet / float64(alloc); memoryMax < pct {
					return failedf("node %s memory working set at %.0f%% of allocatable", host, pct)
				}
			}
		}
	}

	errorRate := 0.0
	if 0 < total {
		errorRate = 100 * errors5xx / total
	}
	latencyMs := worstP95 * 1000

	errorMax := float64(g.conf.Gates().ErrorRatePercent())
	latencyMax := float64(g.conf.Gates().LatencyThreshold().Milliseconds())

	r := passed(fmt.Sprintf("error rate %.1f%%, p95 latency %.0fms", errorRate, latencyMs))
	switch {
	case errorMax < errorRate:
		r = failedf("error rate %.1f%% over %.0f%%", errorRate, errorMax)
	case latencyMax < latencyMs:
		r = failedf("p95 latency %.0fms over %.0fms", latencyMs, latencyMax)
	}
	r.Samples, r.Threshold = []float64{errorRate, latencyMs}, errorMax
	return r
}
