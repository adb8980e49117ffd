package k8s

import (
	"context"
	"time"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/utils/retry"
	kubecore "k8s.io/api/core/v1"
)

type Interface interface {
	// EnsureStack writes the Prometheus scrape config, the alert rules,
	// the Grafana datasource and the app dashboard into the monitoring
	// namespace, creating the namespace when needed.
	//
	// All objects are written idempotently. Calling this again for the same
	// app refreshes them in place, so each rollout just calls it.
	EnsureStack(ctx context.Context, app domain.App) error
}

type impl struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
}

func New(client cluster.K8sClient, conf *bconf.TugClusterConfig) Interface {
	return &impl{client: client, conf: conf}
}

func (i *impl) attach() cluster.Cluster {
	return cluster.AttachCluster(i.client, i.conf.MonitoringNamespace(), i.conf.Domain())
}

func await[T any](ctx context.Context, p retry.Promise[T]) (T, error) {
	select {
	case <-ctx.Done():
		return *new(T), ctx.Err()
	case r := <-p:
		return r.Value, r.Err
	}
}

func (i *impl) EnsureStack(ctx context.Context, app domain.App) error {
	c := i.attach()

	if err := c.EnsureNamespace(ctx); err != nil {
		return err
	}

	builders := []func(domain.App) (*kubecore.ConfigMap, error){
		func(app domain.App) (*kubecore.ConfigMap, error) {
			b, err := ScrapeConfigOf(app)
			if err != nil {
				return nil, err
			}
			return b.Build(i.conf), nil
		},
		func(app domain.App) (*kubecore.ConfigMap, error) {
			b, err := AlertRulesOf(app)
			if err != nil {
				return nil, err
			}
			return b.Build(i.conf), nil
		},
		func(app domain.App) (*kubecore.ConfigMap, error) {
			b, err := DatasourcesOf(app)
			if err != nil {
				return nil, err
			}
			return b.Build(i.conf), nil
		},
		func(app domain.App) (*kubecore.ConfigMap, error) {
			b, err := DashboardOf(app)
			if err != nil {
				return nil, err
			}
			return b.Build(i.conf), nil
		},
	}

	for _, build := range builders {
		cm, err := build(app)
		if err != nil {
			return err
		}
		if _, err := await(ctx, c.EnsureConfigMap(
			ctx, retry.StaticBackoff(200*time.Millisecond), cm,
		)); err != nil {
			return err
		}
	}

	return nil
}
