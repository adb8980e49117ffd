package apps

import (
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

func ComposeDetail(a domain.App) apps.Detail {
	var ingress *apps.Ingress
	if i := a.Ingress; i != nil {
		ingress = &apps.Ingress{Host: i.Host, TLS: i.TLS}
	}
	var storage *apps.Storage
	if s := a.Storage; s != nil {
		storage = &apps.Storage{Size: s.Size}
	}

	return apps.Detail{
		Name:      a.Name,
		Env:       string(a.Env),
		Namespace: a.Namespace,
		Replicas:  a.Replicas,
		Resources: apps.Resources{
			CPURequest:    a.Resources.CPURequest,
			MemoryRequest: a.Resources.MemoryRequest,
			CPULimit:      a.Resources.CPULimit,
			MemoryLimit:   a.Resources.MemoryLimit,
		},
		Ingress:     ingress,
		Storage:     storage,
		Monitoring:  a.Monitoring,
		ActiveColor: string(a.ActiveColor),
		CreatedAt:   rfctime.RFC3339(a.CreatedAt),
		UpdatedAt:   rfctime.RFC3339(a.UpdatedAt),
	}
}
