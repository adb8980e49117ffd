package k8s

import (
	"context"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
)

type Interface interface {
	// ActiveColor reads which color the app Service routes traffic to.
	// Missing Service means the very first rollout; blue is assumed.
	ActiveColor(ctx context.Context, app domain.App) (domain.Color, error)

	// ProvisionSlot writes the ConfigMap and Deployment of a colored slot
	// and waits for all replicas to become available.
	ProvisionSlot(ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32) error

	// EnsureSurroundings provisions the app-scoped objects shared by both slots.
	EnsureSurroundings(ctx context.Context, app domain.App, active domain.Color) error

	// SwitchTraffic points the app Service (and its autoscaler) at the given color.
	SwitchTraffic(ctx context.Context, app domain.App, to domain.Color) error

	// ShareTraffic lets both colored slots serve at once, replica-weighted.
	ShareTraffic(ctx context.Context, app domain.App) error

	// ScaleSlot sets the replica count of a colored slot and waits until it settles.
	ScaleSlot(ctx context.Context, app domain.App, color domain.Color, replicas int32) error

	// DrainSlot scales a colored slot to zero, keeping its objects for rollback.
	DrainSlot(ctx context.Context, app domain.App, color domain.Color) error

	// SlotCondition reads the current state of a colored slot without waiting.
	SlotCondition(ctx context.Context, app domain.App, color domain.Color) (slot.Condition, error)

	// RollBackRevision restores the previous pod template on a colored slot.
	RollBackRevision(ctx context.Context, app domain.App, color domain.Color) error
}

type impl struct {
	client cluster.K8sClient
	conf   *bconf.TugClusterConfig
	islot  slot.Interface
}

func New(conf *bconf.TugClusterConfig, client cluster.K8sClient) Interface {
	return &impl{
		client: client,
		conf:   conf,
		islot:  slot.New(client, conf),
	}
}

func (i *impl) ActiveColor(ctx context.Context, app domain.App) (domain.Color, error) {
	return i.islot.ActiveColor(ctx, app)
}

func (i *impl) ProvisionSlot(
	ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32,
) error {
	return i.islot.Provision(ctx, app, r, color, replicas)
}

func (i *impl) EnsureSurroundings(ctx context.Context, app domain.App, active domain.Color) error {
	return i.islot.EnsureSurroundings(ctx, app, active)
}

func (i *impl) SwitchTraffic(ctx context.Context, app domain.App, to domain.Color) error {
	return i.islot.SwitchTraffic(ctx, app, to)
}

func (i *impl) ShareTraffic(ctx context.Context, app domain.App) error {
	return i.islot.ShareTraffic(ctx, app)
}

func (i *impl) ScaleSlot(
	ctx context.Context, app domain.App, color domain.Color, replicas int32,
) error {
	return i.islot.Scale(ctx, app, color, replicas)
}

func (i *impl) DrainSlot(ctx context.Context, app domain.App, color domain.Color) error {
	return i.islot.Drain(ctx, app, color)
}

func (i *impl) SlotCondition(
	ctx context.Context, app domain.App, color domain.Color,
) (slot.Condition, error) {
	return i.islot.Condition(ctx, app, color)
}

func (i *impl) RollBackRevision(ctx context.Context, app domain.App, color domain.Color) error {
	return i.islot.RollBackRevision(ctx, app, color)
}
