package k8s

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/utils/retry"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
)

type Interface interface {
	// DestroyGarbage removes the cluster object a garbage record points at.
	//
	// An object which is gone already does not count as an error.
	DestroyGarbage(ctx context.Context, g domain.Garbage) error
}

type impl struct {
	client cluster.K8sClient
	domain string
}

func New(client cluster.K8sClient, domain string) Interface {
	return &impl{client: client, domain: domain}
}

func (i *impl) DestroyGarbage(ctx context.Context, g domain.Garbage) error {
	// garbage records carry their own namespace, so attach per record.
	c := cluster.AttachCluster(i.client, g.Namespace, i.domain)
	backoff := retry.StaticBackoff(50 * time.Millisecond)

	var promise retry.Promise[cluster.Deleted]
	switch g.Kind {
	case domain.GarbageDeployment:
		promise = c.DeleteDeployment(ctx, backoff, g.Name)
	case domain.GarbageConfigMap:
		promise = c.DeleteConfigMap(ctx, backoff, g.Name)
	case domain.GarbageService:
		promise = c.DeleteService(ctx, backoff, g.Name)
	case domain.GarbageHPA:
		promise = c.DeleteHPA(ctx, backoff, g.Name)
	case domain.GarbageIngress:
		promise = c.DeleteIngress(ctx, backoff, g.Name)
	case domain.GarbageNetworkPolicy:
		promise = c.DeleteNetworkPolicy(ctx, backoff, g.Name)
	case domain.GarbagePVC:
		promise = c.DeletePVC(ctx, backoff, g.Name)
	case domain.GarbagePV:
		promise = c.DeletePV(ctx, backoff, g.Name)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownGarbageKind, g.Kind)
	}

	ret := <-promise
	if err := ret.Err; err != nil {
		if kubeerr.IsNotFound(err) { // it is okay if the object is deleted already
			return nil
		}
		return err
	}
	return nil
}
