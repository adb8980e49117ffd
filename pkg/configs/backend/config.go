package backend

import (
	"time"
)

type BackendConfig struct {
	port    int32
	cluster *TugClusterConfig
}

func (c *BackendConfig) Port() int32 {
	return c.port
}

func (c *BackendConfig) Cluster() *TugClusterConfig {
	return c.cluster
}

// Configuration for the cluster Tugboat orchestrates in.
//
// to get `TugClusterConfig` instance, use `TugClusterConfigMarshall.TrySeal()` .
type TugClusterConfig struct {
	namespace           string
	domain              string
	database            string
	monitoringNamespace string
	rollout             *RolloutConfig
	canary              *CanaryConfig
	gates               *GatesConfig
	keychains           *KeychainsConfig
}

// k8s namespace where managed apps are deployed.
func (k *TugClusterConfig) Namespace() string {
	return k.namespace
}

// k8s domain of the cluster. default = "cluster.local"
func (k *TugClusterConfig) Domain() string {
	return k.domain
}

// Connection string for database.
func (k *TugClusterConfig) Database() string {
	return k.database
}

// k8s namespace where the monitoring stack lives. default = "monitoring"
func (k *TugClusterConfig) MonitoringNamespace() string {
	return k.monitoringNamespace
}

// Configuration for rollout pacing
func (k *TugClusterConfig) Rollout() *RolloutConfig {
	return k.rollout
}

// Configuration for canary pacing
func (k *TugClusterConfig) Canary() *CanaryConfig {
	return k.canary
}

// Configuration for validation gates
func (k *TugClusterConfig) Gates() *GatesConfig {
	return k.gates
}

func (k *TugClusterConfig) Keychains() *KeychainsConfig {
	return k.keychains
}

// Pacing of slot provisioning, traffic shift and drain.
type RolloutConfig struct {
	readyPoll        time.Duration
	readyTimeout     time.Duration
	drainGrace       time.Duration
	ingressNamespace string
}

// Interval between polls while waiting an idle slot to become ready.
func (r *RolloutConfig) ReadyPoll() time.Duration {
	return r.readyPoll
}

// How long an idle slot may take to become ready before the rollout aborts.
func (r *RolloutConfig) ReadyTimeout() time.Duration {
	return r.readyTimeout
}

// Grace between switching traffic and scaling the old slot down.
func (r *RolloutConfig) DrainGrace() time.Duration {
	return r.drainGrace
}

// k8s namespace the ingress controller runs in.
// App network policies accept traffic from this namespace.
func (r *RolloutConfig) IngressNamespace() string {
	return r.ingressNamespace
}

type CanaryConfig struct {
	observation time.Duration
}

// How long each canary phase is observed before advancing.
func (c *CanaryConfig) Observation() time.Duration {
	return c.observation
}

// Thresholds for validation gates and canary analysis.
type GatesConfig struct {
	latencyThreshold time.Duration
	cpuPercent       int
	memoryPercent    int
	errorRatePercent int
	trivyPath        string
}

// P95 latency above this fails the performance gate and canary analysis.
func (g *GatesConfig) LatencyThreshold() time.Duration {
	return g.latencyThreshold
}

// Node CPU usage above this percentage fails the resources gate.
func (g *GatesConfig) CPUPercent() int {
	return g.cpuPercent
}

// Node memory usage above this percentage fails the resources gate.
func (g *GatesConfig) MemoryPercent() int {
	return g.memoryPercent
}

// Error rate above this percentage aborts a canary phase.
func (g *GatesConfig) ErrorRatePercent() int {
	return g.errorRatePercent
}

// Path to the trivy binary. Empty means "not installed"; the image scan gate is skipped then.
func (g *GatesConfig) TrivyPath() string {
	return g.trivyPath
}

type KeychainsConfig struct {
	signKeyForHooks *HS256KeychainsConfig
}

func (kc *KeychainsConfig) SignKeyForHooks() *HS256KeychainsConfig {
	return kc.signKeyForHooks
}

type HS256KeychainsConfig struct {
	name string
}

func (kc *HS256KeychainsConfig) Name() string {
	return kc.name
}
