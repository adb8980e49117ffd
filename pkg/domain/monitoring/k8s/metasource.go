package k8s

import (
	"bytes"
	"encoding/json"
	"fmt"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/metasource"
	"github.com/taskflow-dev/tugboat/pkg/utils/yamler"
	"gopkg.in/yaml.v3"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubecore "k8s.io/api/core/v1"
)

const (
	ScrapeConfigName = "prometheus-config"
	AlertRulesName   = "prometheus-rules"
	DatasourcesName  = "grafana-datasources"
)

func DashboardName(app string) string {
	return "grafana-dashboard-" + app
}

// GarbageOf lists the monitoring residue of an app for deferred destruction.
//
// Only the app's own dashboard is collected. The shared stack config
// (scrape, rules, datasources) stays: another monitored app may rely on
// it, and the next EnsureStack overwrites it anyway.
func GarbageOf(app domain.App, monitoringNamespace string) []domain.Garbage {
	return []domain.Garbage{
		{
			Namespace: monitoringNamespace,
			Kind:      domain.GarbageConfigMap,
			Name:      DashboardName(app.Name),
		},
	}
}

// identity of one monitoring stack object, owned by the app it watches.
type identity struct {
	app       domain.App
	component string
	instance  string
}

func (i identity) Name() string      { return i.app.Name }
func (i identity) Instance() string  { return i.instance }
func (i identity) Component() string { return i.component }
func (i identity) Id() string        { return i.app.Name }
func (i identity) IdType() string    { return "app" }

func (i identity) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(i, namespace)
}

func renderYAML(doc *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func configMapOf(i identity, conf *bconf.TugClusterConfig, key string, content string) *kubecore.ConfigMap {
	return &kubecore.ConfigMap{
		ObjectMeta: i.ObjectMeta(conf.MonitoringNamespace()),
		Data:       map[string]string{key: content},
	}
}

// ScrapeConfig carries the Prometheus config scraping one app's pods.
type ScrapeConfig struct {
	identity
	rendered string
}

var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.ConfigMap] = ScrapeConfig{}

func ScrapeConfigOf(app domain.App) (ScrapeConfig, error) {
	rendered, err := renderYAML(prometheusDoc(app))
	if err != nil {
		return ScrapeConfig{}, fmt.Errorf("rendering scrape config of %s: %w", app.Name, err)
	}
	return ScrapeConfig{
		identity: identity{app: app, component: "scrape", instance: ScrapeConfigName},
		rendered: rendered,
	}, nil
}

func (s ScrapeConfig) Build(conf *bconf.TugClusterConfig) *kubecore.ConfigMap {
	return configMapOf(s.identity, conf, "prometheus.yml", s.rendered)
}

// prometheusDoc lays out prometheus.yml with keys in reading order.
//
// Discovered pods are narrowed to the app's own (by the tugboat/app
// label), and that label is surfaced as `app` so the alert rules and
// dashboards can filter on it.
func prometheusDoc(app domain.App) *yaml.Node {
	return yamler.Map(
		yamler.Entry(yamler.Text("global"), yamler.Map(
			yamler.Entry(yamler.Text("scrape_interval"), yamler.Text("15s")),
			yamler.Entry(yamler.Text("evaluation_interval"), yamler.Text("15s")),
		)),
		yamler.Entry(yamler.Text("rule_files"), yamler.Seq(
			yamler.Text("/etc/prometheus/rules/*.yml"),
		)),
		yamler.Entry(yamler.Text("scrape_configs"), yamler.Seq(
			yamler.Map(
				yamler.Entry(yamler.Text("job_name"), yamler.Text("prometheus")),
				yamler.Entry(yamler.Text("static_configs"), yamler.Seq(
					yamler.Map(
						yamler.Entry(yamler.Text("targets"), yamler.Seq(
							yamler.Text("localhost:9090"),
						)),
					),
				)),
			),
			yamler.Map(
				yamler.Entry(yamler.Text("job_name"), yamler.Text(app.Name)),
				yamler.Entry(yamler.Text("kubernetes_sd_configs"), yamler.Seq(
					yamler.Map(
						yamler.Entry(yamler.Text("role"), yamler.Text("pod")),
						yamler.Entry(yamler.Text("namespaces"), yamler.Map(
							yamler.Entry(yamler.Text("names"), yamler.Seq(
								yamler.Text(app.Namespace),
							)),
						)),
					),
				)),
				yamler.Entry(yamler.Text("relabel_configs"), yamler.Seq(
					relabel(
						yamler.Entry(yamler.Text("source_labels"), yamler.Seq(
							yamler.Text("__meta_kubernetes_pod_label_tugboat_app"),
						)),
						yamler.Entry(yamler.Text("action"), yamler.Text("keep")),
						yamler.Entry(yamler.Text("regex"), yamler.Text(app.Name)),
					),
					relabel(
						yamler.Entry(yamler.Text("source_labels"), yamler.Seq(
							yamler.Text("__meta_kubernetes_pod_label_tugboat_app"),
						)),
						yamler.Entry(yamler.Text("action"), yamler.Text("replace")),
						yamler.Entry(yamler.Text("target_label"), yamler.Text("app")),
					),
					relabel(
						yamler.Entry(yamler.Text("source_labels"), yamler.Seq(
							yamler.Text("__meta_kubernetes_pod_label_tugboat_color"),
						)),
						yamler.Entry(yamler.Text("action"), yamler.Text("replace")),
						yamler.Entry(yamler.Text("target_label"), yamler.Text("color")),
					),
					relabel(
						yamler.Entry(yamler.Text("source_labels"), yamler.Seq(
							yamler.Text("__address__"),
						)),
						yamler.Entry(yamler.Text("action"), yamler.Text("replace")),
						yamler.Entry(yamler.Text("regex"), yamler.Text(`([^:]+)(?::\d+)?`)),
						yamler.Entry(yamler.Text("replacement"), yamler.Text(
							fmt.Sprintf("${1}:%d", slot.AppPort),
						)),
						yamler.Entry(yamler.Text("target_label"), yamler.Text("__address__")),
					),
				)),
			),
		)),
		yamler.Entry(yamler.Text("alerting"), yamler.Map(
			yamler.Entry(yamler.Text("alertmanagers"), yamler.Seq(
				yamler.Map(
					yamler.Entry(yamler.Text("static_configs"), yamler.Seq(
						yamler.Map(
							yamler.Entry(yamler.Text("targets"), yamler.Seq(
								yamler.Text("alertmanager:9093"),
							)),
						),
					)),
				),
			)),
		)),
	)
}

func relabel(entries ...yamler.MapEntry) *yaml.Node {
	return yamler.Map(entries...)
}

// AlertRules carries the Prometheus alert rules watching one app.
type AlertRules struct {
	identity
	rendered string
}

var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.ConfigMap] = AlertRules{}

func AlertRulesOf(app domain.App) (AlertRules, error) {
	rendered, err := renderYAML(alertRulesDoc(app))
	if err != nil {
		return AlertRules{}, fmt.Errorf("rendering alert rules of %s: %w", app.Name, err)
	}
	return AlertRules{
		identity: identity{app: app, component: "rules", instance: AlertRulesName},
		rendered: rendered,
	}, nil
}

func (r AlertRules) Build(conf *bconf.TugClusterConfig) *kubecore.ConfigMap {
	return configMapOf(r.identity, conf, r.app.Name+"-rules.yml", r.rendered)
}

func alertRulesDoc(app domain.App) *yaml.Node {
	rule := func(alert string, expr string, holdFor string, severity string, summary string) *yaml.Node {
		return yamler.Map(
			yamler.Entry(yamler.Text("alert"), yamler.Text(alert)),
			yamler.Entry(yamler.Text("expr"), yamler.Text(expr)),
			yamler.Entry(yamler.Text("for"), yamler.Text(holdFor)),
			yamler.Entry(yamler.Text("labels"), yamler.Map(
				yamler.Entry(yamler.Text("severity"), yamler.Text(severity)),
				yamler.Entry(yamler.Text("service"), yamler.Text(app.Name)),
				yamler.Entry(yamler.Text("environment"), yamler.Text(string(app.Env))),
			)),
			yamler.Entry(yamler.Text("annotations"), yamler.Map(
				yamler.Entry(yamler.Text("summary"), yamler.Text(summary)),
			)),
		)
	}

	return yamler.Map(
		yamler.Entry(yamler.Text("groups"), yamler.Seq(
			yamler.Map(
				yamler.Entry(yamler.Text("name"), yamler.Text(app.Name+"-alerts")),
				yamler.Entry(yamler.Text("rules"), yamler.Seq(
					rule(
						"TaskFlowHighErrorRate",
						fmt.Sprintf(
							`sum(rate(http_requests_total{app="%s",status=~"5.."}[5m])) / sum(rate(http_requests_total{app="%s"}[5m])) > 0.05`,
							app.Name, app.Name,
						),
						"5m", "critical",
						fmt.Sprintf("%s serves more than 5%% errors", app.Name),
					),
					rule(
						"TaskFlowHighLatency",
						fmt.Sprintf(
							`histogram_quantile(0.95, sum(rate(http_request_duration_seconds_bucket{app="%s"}[5m])) by (le)) > 0.5`,
							app.Name,
						),
						"10m", "warning",
						fmt.Sprintf("p95 latency of %s is over 500ms", app.Name),
					),
					rule(
						"TaskFlowPodCrashLooping",
						fmt.Sprintf(
							`rate(kube_pod_container_status_restarts_total{namespace="%s"}[15m]) > 0`,
							app.Namespace,
						),
						"5m", "critical",
						fmt.Sprintf("a pod of %s is crash looping", app.Name),
					),
					rule(
						"TaskFlowPodNotReady",
						fmt.Sprintf(
							`kube_pod_status_ready{condition="false",namespace="%s"} == 1`,
							app.Namespace,
						),
						"10m", "warning",
						fmt.Sprintf("a pod of %s stays not ready", app.Name),
					),
					rule(
						"TaskFlowHighMemoryUsage",
						fmt.Sprintf(
							`container_memory_usage_bytes{namespace="%s"} / container_spec_memory_limit_bytes{namespace="%s"} > 0.9`,
							app.Namespace, app.Namespace,
						),
						"10m", "warning",
						fmt.Sprintf("%s runs close to its memory limit", app.Name),
					),
				)),
			),
		)),
	)
}

// Datasources carries the Grafana datasource provisioning file.
type Datasources struct {
	identity
	rendered string
}

var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.ConfigMap] = Datasources{}

func DatasourcesOf(app domain.App) (Datasources, error) {
	rendered, err := renderYAML(yamler.Map(
		yamler.Entry(yamler.Text("apiVersion"), yamler.Number(1)),
		yamler.Entry(yamler.Text("datasources"), yamler.Seq(
			yamler.Map(
				yamler.Entry(yamler.Text("name"), yamler.Text("Prometheus")),
				yamler.Entry(yamler.Text("type"), yamler.Text("prometheus")),
				yamler.Entry(yamler.Text("access"), yamler.Text("proxy")),
				yamler.Entry(yamler.Text("url"), yamler.Text("http://prometheus:9090")),
				yamler.Entry(yamler.Text("isDefault"), yamler.Bool(true)),
				yamler.Entry(yamler.Text("editable"), yamler.Bool(true)),
			),
		)),
	))
	if err != nil {
		return Datasources{}, fmt.Errorf("rendering datasources: %w", err)
	}
	return Datasources{
		identity: identity{app: app, component: "datasources", instance: DatasourcesName},
		rendered: rendered,
	}, nil
}

func (d Datasources) Build(conf *bconf.TugClusterConfig) *kubecore.ConfigMap {
	return configMapOf(d.identity, conf, "datasources.yaml", d.rendered)
}

// Dashboard carries the Grafana overview dashboard of one app.
type Dashboard struct {
	identity
	rendered string
}

var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.ConfigMap] = Dashboard{}

// grafana dashboard JSON. structs keep the field order stable.
type dashboardDoc struct {
	Dashboard dashboardSpec `json:"dashboard"`
	Overwrite bool          `json:"overwrite"`
}

type dashboardSpec struct {
	Title         string      `json:"title"`
	UID           string      `json:"uid"`
	SchemaVersion int         `json:"schemaVersion"`
	Refresh       string      `json:"refresh"`
	Time          timespan    `json:"time"`
	Panels        []panelSpec `json:"panels"`
}

type timespan struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type panelSpec struct {
	ID      int          `json:"id"`
	Title   string       `json:"title"`
	Type    string       `json:"type"`
	Targets []targetSpec `json:"targets"`
	GridPos gridPos      `json:"gridPos"`
}

type targetSpec struct {
	Expr         string `json:"expr"`
	LegendFormat string `json:"legendFormat"`
}

type gridPos struct {
	H int `json:"h"`
	W int `json:"w"`
	X int `json:"x"`
	Y int `json:"y"`
}

func DashboardOf(app domain.App) (Dashboard, error) {
	doc := dashboardDoc{
		Dashboard: dashboardSpec{
			Title:         fmt.Sprintf("%s %s overview", app.Name, app.Env),
			UID:           fmt.Sprintf("%s-%s", app.Name, app.Env),
			SchemaVersion: 27,
			Refresh:       "30s",
			Time:          timespan{From: "now-1h", To: "now"},
			Panels: []panelSpec{
				{
					ID: 1, Title: "Request Rate", Type: "stat",
					Targets: []targetSpec{{
						Expr: fmt.Sprintf(
							`sum(rate(http_requests_total{app="%s"}[5m]))`, app.Name,
						),
						LegendFormat: "requests/s",
					}},
					GridPos: gridPos{H: 8, W: 6, X: 0, Y: 0},
				},
				{
					ID: 2, Title: "Error Rate", Type: "stat",
					Targets: []targetSpec{{
						Expr: fmt.Sprintf(
							`sum(rate(http_requests_total{app="%s",status=~"5.."}[5m]))`, app.Name,
						),
						LegendFormat: "5xx/s",
					}},
					GridPos: gridPos{H: 8, W: 6, X: 6, Y: 0},
				},
				{
					ID: 3, Title: "P95 Latency", Type: "stat",
					Targets: []targetSpec{{
						Expr: fmt.Sprintf(
							`histogram_quantile(0.95, sum(rate(http_request_duration_seconds_bucket{app="%s"}[5m])) by (le))`,
							app.Name,
						),
						LegendFormat: "p95",
					}},
					GridPos: gridPos{H: 8, W: 6, X: 12, Y: 0},
				},
				{
					ID: 4, Title: "Pod Memory", Type: "timeseries",
					Targets: []targetSpec{{
						Expr: fmt.Sprintf(
							`container_memory_working_set_bytes{namespace="%s"}`, app.Namespace,
						),
						LegendFormat: "{{pod}}",
					}},
					GridPos: gridPos{H: 8, W: 6, X: 18, Y: 0},
				},
			},
		},
		Overwrite: true,
	}

	rendered, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Dashboard{}, fmt.Errorf("rendering dashboard of %s: %w", app.Name, err)
	}
	return Dashboard{
		identity: identity{app: app, component: "dashboard", instance: DashboardName(app.Name)},
		rendered: string(rendered),
	}, nil
}

func (d Dashboard) Build(conf *bconf.TugClusterConfig) *kubecore.ConfigMap {
	return configMapOf(d.identity, conf, d.app.Name+"-dashboard.json", d.rendered)
}
