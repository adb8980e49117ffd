package slot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	k8serrors "github.com/taskflow-dev/tugboat/pkg/domain/errors/k8serrors"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/utils/retry"
	kubeapps "k8s.io/api/apps/v1"
)

// Condition is the observed state of one colored slot.
type Condition struct {
	Desired  int32
	Ready    int32
	Updated  int32
	Image    string
	Revision int64
}

// Available reports whether every desired replica is updated and serving.
func (c Condition) Available() bool {
	return 0 < c.Desired && c.Desired == c.Ready && c.Desired == c.Updated
}

type Interface interface {
	// ActiveColor reads which color the app Service routes traffic to.
	//
	// When the Service does not exist yet (the very first rollout of the app),
	// blue is assumed.
	ActiveColor(ctx context.Context, app domain.App) (domain.Color, error)

	// Provision writes the ConfigMap and the Deployment of the given colored
	// slot and waits until all replicas are updated & available,
	// up to the configured ready timeout.
	//
	// Calling this for the active color updates that slot in place.
	Provision(ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32) error

	// EnsureSurroundings provisions the app-scoped objects shared by both
	// slots: namespace, Service (pinned to active), HPA (tracking active),
	// and Ingress / PV+PVC / NetworkPolicy as far as the app declares them.
	//
	// Every object is written idempotently, so this is safe on each rollout.
	EnsureSurroundings(ctx context.Context, app domain.App, active domain.Color) error

	// SwitchTraffic points the app Service at the given color, waits for
	// ready endpoints behind it, and re-points the HPA at the new color.
	SwitchTraffic(ctx context.Context, app domain.App, to domain.Color) error

	// ShareTraffic lets both colored slots serve at once, weighted by
	// their replica counts, by widening the app Service selector.
	//
	// SwitchTraffic pins it back to a single color.
	ShareTraffic(ctx context.Context, app domain.App) error

	// Scale sets the replica count of a colored slot and waits until it settles.
	Scale(ctx context.Context, app domain.App, color domain.Color, replicas int32) error

	// Drain scales a colored slot to zero, keeping its Deployment and
	// ConfigMap around for instant rollback.
	Drain(ctx context.Context, app domain.App, color domain.Color) error

	// Condition reads the current state of a colored slot without waiting.
	//
	// The error is k8serrors.ErrMissing when the slot has no Deployment.
	Condition(ctx context.Context, app domain.App, color domain.Color) (Condition, error)

	// RollBackRevision restores the pod template of the previous rollout
	// revision on the given colored slot and waits for it to become available.
	//
	// Rolling releases update the active slot in place, so aborting one has
	// no idle slot to fall back to. This is their way back.
	RollBackRevision(ctx context.Context, app domain.App, color domain.Color) error
}

type impl struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
}

func New(client cluster.K8sClient, conf *bconf.TugClusterConfig) Interface {
	return &impl{client: client, conf: conf}
}

// apps live in namespaces of their own.
func (i *impl) attach(app domain.App) cluster.Cluster {
	return cluster.AttachCluster(i.client, app.Namespace, i.conf.Domain())
}

// backoff policies are stateful. never share one between promises.
func (i *impl) pollReady() retry.Backoff {
	return retry.StaticBackoff(i.conf.Rollout().ReadyPoll())
}

func await[T any](ctx context.Context, p retry.Promise[T]) (T, error) {
	select {
	case <-ctx.Done():
		return *new(T), ctx.Err()
	case r := <-p:
		return r.Value, r.Err
	}
}

// resolves as soon as the Deployment is found, whatever its state.
func anyDeployment(*kubeapps.Deployment) error { return nil }

func (i *impl) ActiveColor(ctx context.Context, app domain.App) (domain.Color, error) {
	c := i.attach(app)

	svc, err := await(ctx, c.GetService(
		ctx, retry.StaticBackoff(200*time.Millisecond), ServiceName(app.Name),
	))
	if err != nil {
		if k8serrors.AsMissingError(err) {
			return domain.Blue, nil
		}
		return domain.Blue, err
	}

	color, ok := svc.Selector()[LabelColor]
	if !ok {
		return domain.Blue, nil
	}
	return domain.AsColor(color)
}

func (i *impl) Provision(
	ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32,
) error {
	c := i.attach(app)

	if _, err := await(ctx, c.EnsureConfigMap(
		ctx, i.pollReady(), ConfigOf(app, r, color).Build(i.conf),
	)); err != nil {
		return err
	}

	workload, err := WorkloadOf(app, r, color, replicas)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())
	_, err = await(ctx, c.EnsureDeployment(
		ctx, i.pollReady(), workload.Build(i.conf),
		cluster.WithCheckpoint(cluster.DeploymentAvailable, deadline),
	))
	return err
}

func (i *impl) EnsureSurroundings(ctx context.Context, app domain.App, active domain.Color) error {
	c := i.attach(app)
	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())

	if err := c.EnsureNamespace(ctx); err != nil {
		return err
	}

	if _, err := await(ctx, c.EnsureService(
		ctx, i.pollReady(), FrontdoorOf(app, active).Build(i.conf),
		cluster.WithCheckpoint(cluster.ServiceIsReady, deadline),
	)); err != nil {
		return err
	}

	if _, err := await(ctx, c.EnsureHPA(
		ctx, i.pollReady(), AutoscalerOf(app, active).Build(i.conf),
	)); err != nil {
		return err
	}

	if ing := app.Ingress; ing != nil && ing.Host != "" {
		if _, err := await(ctx, c.EnsureIngress(
			ctx, i.pollReady(), GatewayOf(app).Build(i.conf),
		)); err != nil {
			return err
		}
	}

	if app.Storage != nil {
		volume, err := VolumeOf(app)
		if err != nil {
			return err
		}
		if _, err := await(ctx, c.EnsurePV(
			ctx, i.pollReady(), volume.Build(i.conf),
			cluster.WithCheckpoint(cluster.PVIsReady, deadline),
		)); err != nil {
			return err
		}

		claim, err := ClaimOf(app)
		if err != nil {
			return err
		}
		if _, err := await(ctx, c.EnsurePVC(
			ctx, i.pollReady(), claim.Build(i.conf),
			cluster.WithCheckpoint(cluster.PVCIsBound, deadline),
		)); err != nil {
			return err
		}
	}

	if _, err := await(ctx, c.EnsureNetworkPolicy(
		ctx, i.pollReady(), FenceOf(app).Build(i.conf),
	)); err != nil {
		return err
	}

	return nil
}

func (i *impl) SwitchTraffic(ctx context.Context, app domain.App, to domain.Color) error {
	c := i.attach(app)
	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())

	if _, err := await(ctx, c.PatchServiceSelector(
		ctx, i.pollReady(), ServiceName(app.Name), TrafficSelector(app.Name, to),
	)); err != nil {
		return err
	}

	if _, err := await(ctx, c.GetEndpoints(
		ctx, i.pollReady(), ServiceName(app.Name),
		cluster.WithCheckpoint(cluster.EndpointsReady, deadline),
	)); err != nil {
		return err
	}

	// the autoscaler follows traffic.
	_, err := await(ctx, c.EnsureHPA(
		ctx, i.pollReady(), AutoscalerOf(app, to).Build(i.conf),
	))
	return err
}

func (i *impl) ShareTraffic(ctx context.Context, app domain.App) error {
	c := i.attach(app)
	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())

	if _, err := await(ctx, c.PatchServiceSelector(
		ctx, i.pollReady(), ServiceName(app.Name), AppSelector(app.Name),
	)); err != nil {
		return err
	}

	_, err := await(ctx, c.GetEndpoints(
		ctx, i.pollReady(), ServiceName(app.Name),
		cluster.WithCheckpoint(cluster.EndpointsReady, deadline),
	))
	return err
}

func (i *impl) Scale(
	ctx context.Context, app domain.App, color domain.Color, replicas int32,
) error {
	c := i.attach(app)
	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())

	_, err := await(ctx, c.ScaleDeployment(
		ctx, i.pollReady(), DeploymentName(app.Name, color), replicas,
		cluster.WithCheckpoint(cluster.DeploymentScaledTo(replicas), deadline),
	))
	return err
}

func (i *impl) Drain(ctx context.Context, app domain.App, color domain.Color) error {
	return i.Scale(ctx, app, color, 0)
}

func (i *impl) Condition(
	ctx context.Context, app domain.App, color domain.Color,
) (Condition, error) {
	c := i.attach(app)

	d, err := await(ctx, c.GetDeployment(
		ctx, retry.StaticBackoff(200*time.Millisecond),
		DeploymentName(app.Name, color), anyDeployment,
	))
	if err != nil {
		return Condition{}, err
	}

	return Condition{
		Desired:  d.DesiredReplicas(),
		Ready:    d.ReadyReplicas(),
		Updated:  d.UpdatedReplicas(),
		Image:    d.Image(),
		Revision: d.Revision(),
	}, nil
}

func (i *impl) RollBackRevision(
	ctx context.Context, app domain.App, color domain.Color,
) error {
	c := i.attach(app)
	name := DeploymentName(app.Name, color)

	current, err := i.client.GetDeployment(ctx, app.Namespace, name)
	if err != nil {
		return err
	}

	revision, _ := strconv.ParseInt(current.GetAnnotations()[cluster.RevisionAnnotation], 10, 64)
	if revision <= 1 {
		return k8serrors.NewMissing(fmt.Sprintf(
			"deployment %s has no revision before %d", name, revision,
		))
	}

	replicasets, err := c.ListReplicaSets(
		ctx, cluster.LabelsToSelector(TrafficSelector(app.Name, color)),
	)
	if err != nil {
		return err
	}

	want := fmt.Sprintf("%d", revision-1)
	var previous *kubeapps.ReplicaSet
	for nth, rs := range replicasets {
		if rs.GetAnnotations()[cluster.RevisionAnnotation] == want {
			previous = &replicasets[nth]
			break
		}
	}
	if previous == nil {
		return k8serrors.NewMissing(fmt.Sprintf(
			"deployment %s has no replicaset at revision %s", name, want,
		))
	}

	restored := current.DeepCopy()
	template := previous.Spec.Template.DeepCopy()
	// the hash is owned by the replicaset, not the deployment template.
	delete(template.ObjectMeta.Labels, "pod-template-hash")
	restored.Spec.Template = *template

	deadline := time.Now().Add(i.conf.Rollout().ReadyTimeout())
	_, err = await(ctx, c.EnsureDeployment(
		ctx, i.pollReady(), restored,
		cluster.WithCheckpoint(cluster.DeploymentAvailable, deadline),
	))
	return err
}
