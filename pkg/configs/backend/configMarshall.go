package backend

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type BackendConfigMarshall struct {
	Port    int32                     `yaml:"port"`
	Cluster *TugClusterConfigMarshall `yaml:"cluster"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	return &BackendConfig{
		port:    b.Port,
		cluster: b.Cluster.trySeal(path + ".cluster"),
	}
}

// Configuration of the orchestrated cluster.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `TugClusterConfig`.
// You can get `TugClusterConfig` instance with `TugClusterConfigMarshall.TrySeal()`
type TugClusterConfigMarshall struct {
	Namespace           string                   `yaml:"namespace"`
	Domain              string                   `yaml:"domain,omitempty"`
	Database            string                   `yaml:"database"`
	MonitoringNamespace string                   `yaml:"monitoringNamespace,omitempty"`
	Rollout             *RolloutConfigMarshall   `yaml:"rollout,omitempty"`
	Canary              *CanaryConfigMarshall    `yaml:"canary,omitempty"`
	Gates               *GatesConfigMarshall     `yaml:"gates,omitempty"`
	Keychains           *KeychainsConfigMarshall `yaml:"keychains"`
}

// verify configuration value and create "readonly" version of this.
//
// IT WILL PANIC if any misconfiguration is found.
func (km *TugClusterConfigMarshall) TrySeal() *TugClusterConfig {
	return km.trySeal("(root)")
}

func (km *TugClusterConfigMarshall) trySeal(path string) *TugClusterConfig {
	domain := km.Domain
	if domain == "" {
		domain = "cluster.local"
	}
	monitoringNamespace := km.MonitoringNamespace
	if monitoringNamespace == "" {
		monitoringNamespace = "monitoring"
	}
	rollout := km.Rollout
	if rollout == nil {
		rollout = &RolloutConfigMarshall{}
	}
	canary := km.Canary
	if canary == nil {
		canary = &CanaryConfigMarshall{}
	}
	gates := km.Gates
	if gates == nil {
		gates = &GatesConfigMarshall{}
	}
	return &TugClusterConfig{
		namespace:           required(km.Namespace, path+".namespace"),
		domain:              required(domain, path+".domain"),
		database:            required(km.Database, path+".database"),
		monitoringNamespace: required(monitoringNamespace, path+".monitoringNamespace"),
		rollout:             rollout.trySeal(path + ".rollout"),
		canary:              canary.trySeal(path + ".canary"),
		gates:               gates.trySeal(path + ".gates"),
		keychains:           nonnil(km.Keychains, path+".keychains").trySeal(path + ".keychains"),
	}
}

// All fields are optional; zero values fall back to defaults.
type RolloutConfigMarshall struct {
	ReadyPoll        string `yaml:"readyPoll,omitempty"`
	ReadyTimeout     string `yaml:"readyTimeout,omitempty"`
	DrainGrace       string `yaml:"drainGrace,omitempty"`
	IngressNamespace string `yaml:"ingressNamespace,omitempty"`
}

func (rm *RolloutConfigMarshall) trySeal(path string) *RolloutConfig {
	return &RolloutConfig{
		readyPoll:        duration(fallback(rm.ReadyPoll, "5s"), path+".readyPoll"),
		readyTimeout:     duration(fallback(rm.ReadyTimeout, "5m"), path+".readyTimeout"),
		drainGrace:       duration(fallback(rm.DrainGrace, "30s"), path+".drainGrace"),
		ingressNamespace: fallback(rm.IngressNamespace, "ingress-nginx"),
	}
}

type CanaryConfigMarshall struct {
	Observation string `yaml:"observation,omitempty"`
}

func (cm *CanaryConfigMarshall) trySeal(path string) *CanaryConfig {
	return &CanaryConfig{
		observation: duration(fallback(cm.Observation, "60s"), path+".observation"),
	}
}

type GatesConfigMarshall struct {
	LatencyThreshold string `yaml:"latencyThreshold,omitempty"`
	CPUPercent       int    `yaml:"cpuPercent,omitempty"`
	MemoryPercent    int    `yaml:"memoryPercent,omitempty"`
	ErrorRatePercent int    `yaml:"errorRatePercent,omitempty"`
	TrivyPath        string `yaml:"trivyPath,omitempty"`
}

func (gm *GatesConfigMarshall) trySeal(path string) *GatesConfig {
	return &GatesConfig{
		latencyThreshold: duration(fallback(gm.LatencyThreshold, "500ms"), path+".latencyThreshold"),
		cpuPercent:       fallback(gm.CPUPercent, 80),
		memoryPercent:    fallback(gm.MemoryPercent, 80),
		errorRatePercent: fallback(gm.ErrorRatePercent, 5),
		trivyPath:        gm.TrivyPath, // optional. empty = image scans are skipped
	}
}

type KeychainsConfigMarshall struct {
	SignKeyForHooks *HS256KeyChainMarshall `yaml:"signKeyForHooks"`
}

func (kc *KeychainsConfigMarshall) trySeal(path string) *KeychainsConfig {
	return &KeychainsConfig{
		signKeyForHooks: nonnil(kc.SignKeyForHooks, path+".signKeyForHooks").trySeal(path + ".signKeyForHooks"),
	}
}

type HS256KeyChainMarshall struct {
	Name string `yaml:"name"`
}

func (kn *HS256KeyChainMarshall) trySeal(path string) *HS256KeychainsConfig {
	return &HS256KeychainsConfig{
		name: required(kn.Name, path+".name"),
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func fallback[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

func duration(v string, path string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	return d
}
