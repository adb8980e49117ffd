package garbage

import (
	"github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	"github.com/taskflow-dev/tugboat/pkg/domain/garbage/k8s"
)

type Interface interface {
	Database() db.GarbageInterface
	K8s() k8s.Interface
}

type impl struct {
	db  db.GarbageInterface
	k8s k8s.Interface
}

func New(dbg db.GarbageInterface, k8sg k8s.Interface) Interface {
	return &impl{db: dbg, k8s: k8sg}
}

func (g *impl) Database() db.GarbageInterface {
	return g.db
}

func (g *impl) K8s() k8s.Interface {
	return g.k8s
}
