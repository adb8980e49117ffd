package tugboat

import (
	"context"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	connk8s "github.com/taskflow-dev/tugboat/pkg/conn/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/app"
	"github.com/taskflow-dev/tugboat/pkg/domain/garbage"
	"github.com/taskflow-dev/tugboat/pkg/domain/keychain"
	"github.com/taskflow-dev/tugboat/pkg/domain/monitoring"
	"github.com/taskflow-dev/tugboat/pkg/domain/release"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout"
	"github.com/taskflow-dev/tugboat/pkg/domain/schema"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/db/postgres"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"k8s.io/client-go/kubernetes"
)

type Tugboat interface {
	Config() *bconf.TugClusterConfig

	App() app.Interface
	Release() release.Interface
	Rollout() rollout.Interface
	Monitoring() monitoring.Interface

	Garbage() garbage.Interface
	Schema() schema.Interface
	Keychain() keychain.Interface
}

type tugboat struct {
	config  *bconf.TugClusterConfig
	cluster cluster.Cluster

	app        app.Interface
	release    release.Interface
	rollout    rollout.Interface
	monitoring monitoring.Interface

	garbage  garbage.Interface
	schema   schema.Interface
	keychain keychain.Interface
}

func Default(ctx context.Context, config *bconf.TugClusterConfig) (Tugboat, error) {
	clientset := connk8s.ConnectToK8s()
	return New(ctx, config, clientset)
}

func New(
	ctx context.Context,
	config *bconf.TugClusterConfig,
	clientset *kubernetes.Clientset,
) (Tugboat, error) {
	pg, err := postgres.New(ctx, config.Database())
	if err != nil {
		return nil, err
	}

	k8sclient := cluster.WrapK8sClient(clientset)
	clus := cluster.AttachCluster(k8sclient, config.Namespace(), config.Domain())

	k8sifs := k8s.New(k8sclient, clus, config)

	return &tugboat{
		config:  config,
		cluster: clus,

		app:        app.New(pg.App()),
		release:    release.New(pg.Release()),
		rollout:    rollout.New(pg.Rollout(), k8sifs.Rollout()),
		monitoring: monitoring.New(k8sifs.Monitoring()),

		garbage:  garbage.New(pg.Garbage(), k8sifs.Garbage()),
		schema:   schema.New(pg.Schema()),
		keychain: keychain.New(pg.Keychain(), k8sifs.KeyChain()),
	}, nil
}

func (t *tugboat) Config() *bconf.TugClusterConfig {
	return t.config
}

func (t *tugboat) App() app.Interface {
	return t.app
}

func (t *tugboat) Release() release.Interface {
	return t.release
}

func (t *tugboat) Rollout() rollout.Interface {
	return t.rollout
}

func (t *tugboat) Monitoring() monitoring.Interface {
	return t.monitoring
}

func (t *tugboat) Garbage() garbage.Interface {
	return t.garbage
}

func (t *tugboat) Schema() schema.Interface {
	return t.schema
}

func (t *tugboat) Keychain() keychain.Interface {
	return t.keychain
}
