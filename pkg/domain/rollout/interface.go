package rollout

import (
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
)

type Interface interface {
	Database() db.RolloutInterface
	K8s() k8s.Interface
}

type impl struct {
	db  db.RolloutInterface
	k8s k8s.Interface
}

func New(dbr db.RolloutInterface, k8sr k8s.Interface) Interface {
	return &impl{db: dbr, k8s: k8sr}
}

func (r *impl) Database() db.RolloutInterface {
	return r.db
}

func (r *impl) K8s() k8s.Interface {
	return r.k8s
}
