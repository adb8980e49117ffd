package slot_test

import (
	"context"
	"errors"
	"testing"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	k8serrors "github.com/taskflow-dev/tugboat/pkg/domain/errors/k8serrors"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster/mock"
	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
	kubeapps "k8s.io/api/apps/v1"
	kubeautoscaling "k8s.io/api/autoscaling/v2"
	kubecore "k8s.io/api/core/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubenetworking "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// config with polling short enough for tests.
func testOpsConfig() *bconf.TugClusterConfig {
	return bconf.TrySeal(&bconf.TugClusterConfigMarshall{
		Namespace: "tugboat-test",
		Database:  "postgres://do-no-care",
		Rollout: &bconf.RolloutConfigMarshall{
			ReadyPoll:        "10ms",
			ReadyTimeout:     "200ms",
			IngressNamespace: "ingress-test",
		},
		Keychains: &bconf.KeychainsConfigMarshall{
			SignKeyForHooks: &bconf.HS256KeyChainMarshall{
				Name: "sign-for-hooks",
			},
		},
	})
}

func TestActiveColor(t *testing.T) {
	ctx := context.Background()
	notFound := kubeerr.NewNotFound(schema.GroupResource{}, "not found")

	serviceWithSelector := func(selector map[string]string) *kubecore.Service {
		return &kubecore.Service{
			Spec: kubecore.ServiceSpec{
				ClusterIP: "10.0.0.1",
				Selector:  selector,
			},
		}
	}

	t.Run("it reads the color from the Service selector", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			if namespace != "team-ping" || name != "ping-api" {
				t.Errorf("unexpected query: (namespace, name) = (%s, %s)", namespace, name)
			}
			return serviceWithSelector(slot.TrafficSelector("ping-api", domain.Green)), nil
		}
		testee := slot.New(client, testOpsConfig())

		actual, err := testee.ActiveColor(ctx, testApp())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if actual != domain.Green {
			t.Errorf("color: (actual, expected) = (%s, %s)", actual, domain.Green)
		}
	})

	t.Run("it assumes blue when the Service is missing", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return nil, notFound
		}
		testee := slot.New(client, testOpsConfig())

		actual, err := testee.ActiveColor(ctx, testApp())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if actual != domain.Blue {
			t.Errorf("color: (actual, expected) = (%s, %s)", actual, domain.Blue)
		}
	})

	t.Run("it assumes blue when the selector carries no color", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return serviceWithSelector(map[string]string{"tugboat/app": "ping-api"}), nil
		}
		testee := slot.New(client, testOpsConfig())

		actual, err := testee.ActiveColor(ctx, testApp())
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if actual != domain.Blue {
			t.Errorf("color: (actual, expected) = (%s, %s)", actual, domain.Blue)
		}
	})

	t.Run("it rejects an unknown color", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return serviceWithSelector(map[string]string{"tugboat/color": "chartreuse"}), nil
		}
		testee := slot.New(client, testOpsConfig())

		if _, err := testee.ActiveColor(ctx, testApp()); !errors.Is(err, domain.ErrUnknownColor) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it propagates api errors", func(t *testing.T) {
		wantErr := errors.New("fake api error")
		client := mock.NewMockClient()
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return nil, wantErr
		}
		testee := slot.New(client, testOpsConfig())

		if _, err := testee.ActiveColor(ctx, testApp()); !errors.Is(err, wantErr) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	availableFrom := func(d *kubeapps.Deployment) *kubeapps.Deployment {
		created := d.DeepCopy()
		desired := *d.Spec.Replicas
		created.Status = kubeapps.DeploymentStatus{
			ObservedGeneration: created.Generation,
			Replicas:           desired,
			UpdatedReplicas:    desired,
			ReadyReplicas:      desired,
			AvailableReplicas:  desired,
		}
		return created
	}

	t.Run("it writes the ConfigMap and the Deployment of the slot", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.CreateConfigMap = func(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
			if namespace != "team-ping" {
				t.Errorf("namespace: (actual, expected) = (%s, team-ping)", namespace)
			}
			if cm.ObjectMeta.Name != "ping-api-config-green" {
				t.Errorf("configmap: (actual, expected) = (%s, ping-api-config-green)", cm.ObjectMeta.Name)
			}
			return cm.DeepCopy(), nil
		}
		client.Impl.CreateDeployment = func(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			if namespace != "team-ping" {
				t.Errorf("namespace: (actual, expected) = (%s, team-ping)", namespace)
			}
			if d.ObjectMeta.Name != "ping-api-green" {
				t.Errorf("deployment: (actual, expected) = (%s, ping-api-green)", d.ObjectMeta.Name)
			}
			if actual := *d.Spec.Replicas; actual != 2 {
				t.Errorf("replicas: (actual, expected) = (%d, %d)", actual, 2)
			}
			return availableFrom(d), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.Provision(ctx, testApp(), testRelease(), domain.Green, 2); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if client.Called.CreateConfigMap != 1 {
			t.Errorf("CreateConfigMap: called %d times", client.Called.CreateConfigMap)
		}
		if client.Called.CreateDeployment != 1 {
			t.Errorf("CreateDeployment: called %d times", client.Called.CreateDeployment)
		}
	})

	t.Run("it reports timeout when the slot never becomes ready", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.CreateConfigMap = func(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
			return cm.DeepCopy(), nil
		}
		client.Impl.CreateDeployment = func(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			return d.DeepCopy(), nil // status stays zero; never available
		}
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return &kubeapps.Deployment{}, nil
		}
		testee := slot.New(client, testOpsConfig())

		err := testee.Provision(ctx, testApp(), testRelease(), domain.Green, 2)
		if !errors.Is(err, k8serrors.ErrDeadlineExceeded) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it rejects malformed app resources before touching the Deployment", func(t *testing.T) {
		app := testApp()
		app.Resources.CPULimit = "broken"

		client := mock.NewMockClient()
		client.Impl.CreateConfigMap = func(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
			return cm.DeepCopy(), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.Provision(ctx, app, testRelease(), domain.Green, 2); err == nil {
			t.Error("no error for malformed resources")
		}
		if client.Called.CreateDeployment != 0 {
			t.Errorf("CreateDeployment: called %d times", client.Called.CreateDeployment)
		}
	})
}

func TestEnsureSurroundings(t *testing.T) {
	ctx := context.Background()
	notFound := kubeerr.NewNotFound(schema.GroupResource{}, "not found")

	// client where every surrounding is created successfully on first attempt.
	newHappyClient := func(t *testing.T) *mock.MockClient {
		client := mock.NewMockClient()
		client.Impl.GetNamespace = func(ctx context.Context, name string) (*kubecore.Namespace, error) {
			return &kubecore.Namespace{}, nil
		}
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			if client.Called.GetService == 1 {
				return nil, notFound
			}
			return &kubecore.Service{Spec: kubecore.ServiceSpec{ClusterIP: "10.0.0.1"}}, nil
		}
		client.Impl.CreateService = func(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
			return svc.DeepCopy(), nil
		}
		client.Impl.CreateHPA = func(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
			return hpa.DeepCopy(), nil
		}
		client.Impl.CreateIngress = func(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error) {
			return ing.DeepCopy(), nil
		}
		client.Impl.GetPV = func(ctx context.Context, name string) (*kubecore.PersistentVolume, error) {
			if client.Called.GetPV == 1 {
				return nil, notFound
			}
			return &kubecore.PersistentVolume{
				Status: kubecore.PersistentVolumeStatus{Phase: kubecore.VolumeAvailable},
			}, nil
		}
		client.Impl.CreatePV = func(ctx context.Context, pv *kubecore.PersistentVolume) (*kubecore.PersistentVolume, error) {
			return pv.DeepCopy(), nil
		}
		client.Impl.GetPVC = func(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error) {
			if client.Called.GetPVC == 1 {
				return nil, notFound
			}
			return &kubecore.PersistentVolumeClaim{
				Status: kubecore.PersistentVolumeClaimStatus{Phase: kubecore.ClaimBound},
			}, nil
		}
		client.Impl.CreatePVC = func(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error) {
			return pvc.DeepCopy(), nil
		}
		client.Impl.GetNetworkPolicy = func(ctx context.Context, namespace string, name string) (*kubenetworking.NetworkPolicy, error) {
			return nil, notFound
		}
		client.Impl.CreateNetworkPolicy = func(ctx context.Context, namespace string, npol *kubenetworking.NetworkPolicy) (*kubenetworking.NetworkPolicy, error) {
			return npol.DeepCopy(), nil
		}
		return client
	}

	t.Run("it provisions everything the app declares", func(t *testing.T) {
		client := newHappyClient(t)

		var hpaTarget string
		createHPA := client.Impl.CreateHPA
		client.Impl.CreateHPA = func(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
			hpaTarget = hpa.Spec.ScaleTargetRef.Name
			return createHPA(ctx, namespace, hpa)
		}

		var serviceSelector map[string]string
		createService := client.Impl.CreateService
		client.Impl.CreateService = func(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
			serviceSelector = svc.Spec.Selector
			return createService(ctx, namespace, svc)
		}

		testee := slot.New(client, testOpsConfig())

		if err := testee.EnsureSurroundings(ctx, testApp(), domain.Blue); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		for name, called := range map[string]uint64{
			"CreateService":       client.Called.CreateService,
			"CreateHPA":           client.Called.CreateHPA,
			"CreateIngress":       client.Called.CreateIngress,
			"CreatePV":            client.Called.CreatePV,
			"CreatePVC":           client.Called.CreatePVC,
			"CreateNetworkPolicy": client.Called.CreateNetworkPolicy,
		} {
			if called != 1 {
				t.Errorf("%s: called %d times", name, called)
			}
		}
		if client.Called.CreateNamespace != 0 {
			t.Errorf("CreateNamespace: called %d times", client.Called.CreateNamespace)
		}

		if hpaTarget != "ping-api-blue" {
			t.Errorf("hpa target: (actual, expected) = (%s, ping-api-blue)", hpaTarget)
		}
		if expected := slot.TrafficSelector("ping-api", domain.Blue); !cmp.MapEq(serviceSelector, expected) {
			t.Errorf("service selector: (actual, expected) = (%v, %v)", serviceSelector, expected)
		}
	})

	t.Run("it skips what the app does not declare", func(t *testing.T) {
		app := testApp()
		app.Ingress = nil
		app.Storage = nil

		client := newHappyClient(t)
		testee := slot.New(client, testOpsConfig())

		if err := testee.EnsureSurroundings(ctx, app, domain.Blue); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		for name, called := range map[string]uint64{
			"CreateIngress": client.Called.CreateIngress,
			"CreatePV":      client.Called.CreatePV,
			"CreatePVC":     client.Called.CreatePVC,
		} {
			if called != 0 {
				t.Errorf("%s: called %d times", name, called)
			}
		}
		if client.Called.CreateService != 1 {
			t.Errorf("CreateService: called %d times", client.Called.CreateService)
		}
	})

	t.Run("it creates the app namespace when missing", func(t *testing.T) {
		client := newHappyClient(t)
		client.Impl.GetNamespace = func(ctx context.Context, name string) (*kubecore.Namespace, error) {
			return nil, notFound
		}
		client.Impl.CreateNamespace = func(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error) {
			if ns.ObjectMeta.Name != "team-ping" {
				t.Errorf("namespace: (actual, expected) = (%s, team-ping)", ns.ObjectMeta.Name)
			}
			return ns.DeepCopy(), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.EnsureSurroundings(ctx, testApp(), domain.Blue); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if client.Called.CreateNamespace != 1 {
			t.Errorf("CreateNamespace: called %d times", client.Called.CreateNamespace)
		}
	})
}

func TestSwitchTraffic(t *testing.T) {
	ctx := context.Background()

	t.Run("it patches the selector, waits endpoints, and re-points the autoscaler", func(t *testing.T) {
		client := mock.NewMockClient()

		var patched map[string]string
		client.Impl.PatchServiceSelector = func(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error) {
			if name != "ping-api" {
				t.Errorf("service: (actual, expected) = (%s, ping-api)", name)
			}
			patched = selector
			return &kubecore.Service{
				Spec: kubecore.ServiceSpec{ClusterIP: "10.0.0.1", Selector: selector},
			}, nil
		}
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return &kubecore.Service{
				Spec: kubecore.ServiceSpec{ClusterIP: "10.0.0.1", Selector: patched},
			}, nil
		}
		client.Impl.GetEndpoints = func(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error) {
			return &kubecore.Endpoints{
				Subsets: []kubecore.EndpointSubset{
					{Addresses: []kubecore.EndpointAddress{{IP: "10.1.0.5"}}},
				},
			}, nil
		}
		var hpaTarget string
		client.Impl.CreateHPA = func(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
			hpaTarget = hpa.Spec.ScaleTargetRef.Name
			return hpa.DeepCopy(), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.SwitchTraffic(ctx, testApp(), domain.Green); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if expected := slot.TrafficSelector("ping-api", domain.Green); !cmp.MapEq(patched, expected) {
			t.Errorf("patched selector: (actual, expected) = (%v, %v)", patched, expected)
		}
		if hpaTarget != "ping-api-green" {
			t.Errorf("hpa target: (actual, expected) = (%s, ping-api-green)", hpaTarget)
		}
	})

	t.Run("it reports the missing Service", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.PatchServiceSelector = func(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error) {
			return nil, kubeerr.NewNotFound(schema.GroupResource{}, name)
		}
		testee := slot.New(client, testOpsConfig())

		err := testee.SwitchTraffic(ctx, testApp(), domain.Green)
		if !k8serrors.AsMissingError(err) {
			t.Errorf("unexpected error: %+v", err)
		}
	})

	t.Run("it reports timeout when no endpoint becomes ready", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.PatchServiceSelector = func(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error) {
			return &kubecore.Service{
				Spec: kubecore.ServiceSpec{ClusterIP: "10.0.0.1", Selector: selector},
			}, nil
		}
		client.Impl.GetService = func(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
			return &kubecore.Service{
				Spec: kubecore.ServiceSpec{
					ClusterIP: "10.0.0.1",
					Selector:  slot.TrafficSelector("ping-api", domain.Green),
				},
			}, nil
		}
		client.Impl.GetEndpoints = func(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error) {
			return &kubecore.Endpoints{}, nil // nobody home
		}
		testee := slot.New(client, testOpsConfig())

		err := testee.SwitchTraffic(ctx, testApp(), domain.Green)
		if !errors.Is(err, k8serrors.ErrDeadlineExceeded) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}

func TestScale(t *testing.T) {
	ctx := context.Background()

	scaledTo := func(replicas int32) *kubeapps.Deployment {
		return &kubeapps.Deployment{
			Spec: kubeapps.DeploymentSpec{Replicas: &replicas},
			Status: kubeapps.DeploymentStatus{
				Replicas:          replicas,
				AvailableReplicas: replicas,
			},
		}
	}

	t.Run("it scales the slot and waits for it to settle", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.ScaleDeployment = func(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error) {
			if name != "ping-api-blue" {
				t.Errorf("deployment: (actual, expected) = (%s, ping-api-blue)", name)
			}
			if replicas != 3 {
				t.Errorf("replicas: (actual, expected) = (%d, %d)", replicas, 3)
			}
			return scaledTo(replicas), nil
		}
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return scaledTo(3), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.Scale(ctx, testApp(), domain.Blue, 3); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if client.Called.ScaleDeployment != 1 {
			t.Errorf("ScaleDeployment: called %d times", client.Called.ScaleDeployment)
		}
	})

	t.Run("Drain scales to zero", func(t *testing.T) {
		client := mock.NewMockClient()
		var scaled int32 = -1
		client.Impl.ScaleDeployment = func(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error) {
			scaled = replicas
			return scaledTo(replicas), nil
		}
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return scaledTo(0), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.Drain(ctx, testApp(), domain.Green); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if scaled != 0 {
			t.Errorf("replicas: (actual, expected) = (%d, %d)", scaled, 0)
		}
	})
}

func TestCondition(t *testing.T) {
	ctx := context.Background()

	t.Run("it reads the slot state", func(t *testing.T) {
		replicas := int32(4)
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			if name != "ping-api-green" {
				t.Errorf("deployment: (actual, expected) = (%s, ping-api-green)", name)
			}
			d := &kubeapps.Deployment{
				Spec: kubeapps.DeploymentSpec{
					Replicas: &replicas,
					Template: kubecore.PodTemplateSpec{
						Spec: kubecore.PodSpec{
							Containers: []kubecore.Container{{Image: "repo.invalid/ping-api:v2"}},
						},
					},
				},
				Status: kubeapps.DeploymentStatus{
					ReadyReplicas:   4,
					UpdatedReplicas: 4,
				},
			}
			d.ObjectMeta.Annotations = map[string]string{
				"deployment.kubernetes.io/revision": "7",
			}
			return d, nil
		}
		testee := slot.New(client, testOpsConfig())

		actual, err := testee.Condition(ctx, testApp(), domain.Green)
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		expected := slot.Condition{
			Desired:  4,
			Ready:    4,
			Updated:  4,
			Image:    "repo.invalid/ping-api:v2",
			Revision: 7,
		}
		if actual != expected {
			t.Errorf("condition: (actual, expected) = (%+v, %+v)", actual, expected)
		}
		if !actual.Available() {
			t.Error("condition: should be available")
		}
	})

	t.Run("it reports the missing slot", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewNotFound(schema.GroupResource{}, name)
		}
		testee := slot.New(client, testOpsConfig())

		if _, err := testee.Condition(ctx, testApp(), domain.Green); !k8serrors.AsMissingError(err) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}

func TestRollBackRevision(t *testing.T) {
	ctx := context.Background()

	replicaSetAt := func(revision string, image string) kubeapps.ReplicaSet {
		rs := kubeapps.ReplicaSet{
			Spec: kubeapps.ReplicaSetSpec{
				Template: kubecore.PodTemplateSpec{
					Spec: kubecore.PodSpec{
						Containers: []kubecore.Container{{Image: image}},
					},
				},
			},
		}
		rs.ObjectMeta.Annotations = map[string]string{
			"deployment.kubernetes.io/revision": revision,
		}
		rs.Spec.Template.ObjectMeta.Labels = map[string]string{
			"tugboat/app":       "ping-api",
			"tugboat/color":     "blue",
			"pod-template-hash": "abc123",
		}
		return rs
	}

	deploymentAt := func(revision string, image string) *kubeapps.Deployment {
		replicas := int32(4)
		d := &kubeapps.Deployment{
			Spec: kubeapps.DeploymentSpec{
				Replicas: &replicas,
				Template: kubecore.PodTemplateSpec{
					Spec: kubecore.PodSpec{
						Containers: []kubecore.Container{{Image: image}},
					},
				},
			},
			Status: kubeapps.DeploymentStatus{
				Replicas:          4,
				UpdatedReplicas:   4,
				ReadyReplicas:     4,
				AvailableReplicas: 4,
			},
		}
		d.ObjectMeta.Name = "ping-api-blue"
		d.ObjectMeta.Annotations = map[string]string{
			"deployment.kubernetes.io/revision": revision,
		}
		return d
	}

	t.Run("it restores the previous pod template", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return deploymentAt("3", "repo.invalid/ping-api:v3"), nil
		}
		client.Impl.FindReplicaSets = func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.ReplicaSet, error) {
			return []kubeapps.ReplicaSet{
				replicaSetAt("1", "repo.invalid/ping-api:v1"),
				replicaSetAt("2", "repo.invalid/ping-api:v2"),
				replicaSetAt("3", "repo.invalid/ping-api:v3"),
			}, nil
		}
		client.Impl.CreateDeployment = func(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewAlreadyExists(schema.GroupResource{}, d.ObjectMeta.Name)
		}
		var restored *kubeapps.Deployment
		client.Impl.UpdateDeployment = func(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			restored = d.DeepCopy()
			updated := d.DeepCopy()
			updated.Status = kubeapps.DeploymentStatus{
				Replicas:          4,
				UpdatedReplicas:   4,
				ReadyReplicas:     4,
				AvailableReplicas: 4,
			}
			return updated, nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.RollBackRevision(ctx, testApp(), domain.Blue); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		if restored == nil {
			t.Fatal("deployment is not written back")
		}
		if actual := restored.Spec.Template.Spec.Containers[0].Image; actual != "repo.invalid/ping-api:v2" {
			t.Errorf("image: (actual, expected) = (%s, repo.invalid/ping-api:v2)", actual)
		}
		if _, ok := restored.Spec.Template.ObjectMeta.Labels["pod-template-hash"]; ok {
			t.Error("pod-template-hash should not be carried into the deployment template")
		}
	})

	t.Run("it refuses when there is no previous revision", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return deploymentAt("1", "repo.invalid/ping-api:v1"), nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.RollBackRevision(ctx, testApp(), domain.Blue); err == nil {
			t.Error("no error for the first revision")
		}
		if client.Called.FindReplicaSets != 0 {
			t.Errorf("FindReplicaSets: called %d times", client.Called.FindReplicaSets)
		}
	})

	t.Run("it fails when the previous replicaset is gone", func(t *testing.T) {
		client := mock.NewMockClient()
		client.Impl.GetDeployment = func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
			return deploymentAt("3", "repo.invalid/ping-api:v3"), nil
		}
		client.Impl.FindReplicaSets = func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.ReplicaSet, error) {
			return []kubeapps.ReplicaSet{
				replicaSetAt("3", "repo.invalid/ping-api:v3"),
			}, nil
		}
		testee := slot.New(client, testOpsConfig())

		if err := testee.RollBackRevision(ctx, testApp(), domain.Blue); !k8serrors.AsMissingError(err) {
			t.Errorf("unexpected error: %+v", err)
		}
	})
}
