package k8s

import (
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	garbage "github.com/taskflow-dev/tugboat/pkg/domain/garbage/k8s"
	keychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/k8s"
	monitoring "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"
	rollout "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
)

type KubernetesInterfaces interface {
	Rollout() rollout.Interface
	Garbage() garbage.Interface
	Monitoring() monitoring.Interface
	KeyChain() keychain.KeyChainInterface
}

type impl struct {
	rollout    rollout.Interface
	garbage    garbage.Interface
	monitoring monitoring.Interface
	keychain   keychain.KeyChainInterface
}

func New(
	client cluster.K8sClient,
	clus cluster.Cluster,
	config *bconf.TugClusterConfig,
) KubernetesInterfaces {
	return &impl{
		rollout:    rollout.New(config, client),
		garbage:    garbage.New(client, config.Domain()),
		monitoring: monitoring.New(client, config),
		keychain:   keychain.New(clus),
	}
}

func (i *impl) Rollout() rollout.Interface {
	return i.rollout
}

func (i *impl) Garbage() garbage.Interface {
	return i.garbage
}

func (i *impl) Monitoring() monitoring.Interface {
	return i.monitoring
}

func (i *impl) KeyChain() keychain.KeyChainInterface {
	return i.keychain
}
