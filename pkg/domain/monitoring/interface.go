package monitoring

import "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"

type Interface interface {
	K8s() k8s.Interface
}

type impl struct {
	k8s k8s.Interface
}

func New(k8sm k8s.Interface) Interface {
	return &impl{k8s: k8sm}
}

func (m *impl) K8s() k8s.Interface {
	return m.k8s
}
