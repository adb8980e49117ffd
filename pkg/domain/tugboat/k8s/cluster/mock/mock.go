package mock

import (
	"context"
	"errors"

	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/cluster"
	kubeapps "k8s.io/api/apps/v1"
	kubeautoscaling "k8s.io/api/autoscaling/v2"
	kubecore "k8s.io/api/core/v1"
	kubenetworking "k8s.io/api/networking/v1"
	applyconfigurations "k8s.io/client-go/applyconfigurations/core/v1"
)

// get mocked cluster.Cluster
//
// # returns
//
//   - cluster.Cluster : using *MockClient as base client
//   - *MockClient : mock object.
//     you can fake k8s behaviours or spy its usage.
func NewCluster() (cluster.Cluster, *MockClient) {
	client := NewMockClient()

	namespace := "fake-namespace"
	domain := "fake.local"

	return cluster.AttachCluster(client, namespace, domain), client
}

type MockClient struct {
	Impl struct {
		GetConfigMap    func(ctx context.Context, namespace string, name string) (*kubecore.ConfigMap, error)
		CreateConfigMap func(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error)
		UpdateConfigMap func(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error)
		DeleteConfigMap func(ctx context.Context, namespace string, name string) error

		GetDeployment    func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
		CreateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		UpdateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		ScaleDeployment  func(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error)
		DeleteDeployment func(ctx context.Context, namespace string, name string) error
		FindReplicaSets  func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.ReplicaSet, error)

		GetService           func(ctx context.Context, namespace string, name string) (*kubecore.Service, error)
		CreateService        func(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
		PatchServiceSelector func(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error)
		DeleteService        func(ctx context.Context, namespace string, name string) error

		GetEndpoints func(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error)

		GetHPA    func(ctx context.Context, namespace string, name string) (*kubeautoscaling.HorizontalPodAutoscaler, error)
		CreateHPA func(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error)
		UpdateHPA func(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error)
		DeleteHPA func(ctx context.Context, namespace string, name string) error

		GetIngress    func(ctx context.Context, namespace string, name string) (*kubenetworking.Ingress, error)
		CreateIngress func(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error)
		UpdateIngress func(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error)
		DeleteIngress func(ctx context.Context, namespace string, name string) error

		GetNetworkPolicy    func(ctx context.Context, namespace string, name string) (*kubenetworking.NetworkPolicy, error)
		CreateNetworkPolicy func(ctx context.Context, namespace string, npol *kubenetworking.NetworkPolicy) (*kubenetworking.NetworkPolicy, error)
		DeleteNetworkPolicy func(ctx context.Context, namespace string, name string) error

		GetPVC    func(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error)
		CreatePVC func(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error)
		DeletePVC func(ctx context.Context, namespace string, name string) error

		GetPV    func(ctx context.Context, name string) (*kubecore.PersistentVolume, error)
		CreatePV func(ctx context.Context, pv *kubecore.PersistentVolume) (*kubecore.PersistentVolume, error)
		DeletePV func(ctx context.Context, name string) error

		GetNamespace    func(ctx context.Context, name string) (*kubecore.Namespace, error)
		CreateNamespace func(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error)

		FindPods     func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubecore.Pod, error)
		PodProxyGet  func(ctx context.Context, namespace string, podname string, port string, path string) ([]byte, error)
		ListNodes    func(ctx context.Context) ([]kubecore.Node, error)
		NodeMetrics  func(ctx context.Context, nodeName string) ([]byte, error)
		GetSecret    func(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
		UpsertSecret func(ctx context.Context, namespace string, spec *applyconfigurations.SecretApplyConfiguration) (*kubecore.Secret, error)
		DeleteSecret func(ctx context.Context, namespace string, name string) error
	}
	Called struct {
		GetConfigMap    uint64
		CreateConfigMap uint64
		UpdateConfigMap uint64
		DeleteConfigMap uint64

		GetDeployment    uint64
		CreateDeployment uint64
		UpdateDeployment uint64
		ScaleDeployment  uint64
		DeleteDeployment uint64
		FindReplicaSets  uint64

		GetService           uint64
		CreateService        uint64
		PatchServiceSelector uint64
		DeleteService        uint64

		GetEndpoints uint64

		GetHPA    uint64
		CreateHPA uint64
		UpdateHPA uint64
		DeleteHPA uint64

		GetIngress    uint64
		CreateIngress uint64
		UpdateIngress uint64
		DeleteIngress uint64

		GetNetworkPolicy    uint64
		CreateNetworkPolicy uint64
		DeleteNetworkPolicy uint64

		GetPVC    uint64
		CreatePVC uint64
		DeletePVC uint64

		GetPV    uint64
		CreatePV uint64
		DeletePV uint64

		GetNamespace    uint64
		CreateNamespace uint64

		FindPods     uint64
		PodProxyGet  uint64
		ListNodes    uint64
		NodeMetrics  uint64
		GetSecret    uint64
		UpsertSecret uint64
		DeleteSecret uint64
	}
}

// MockClient implements cluster.K8sClient
var _ cluster.K8sClient = &MockClient{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockClient) GetConfigMap(ctx context.Context, namespace string, name string) (*kubecore.ConfigMap, error) {
	m.Called.GetConfigMap += 1
	if m.Impl.GetConfigMap == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetConfigMap(ctx, namespace, name)
}

func (m *MockClient) CreateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
	m.Called.CreateConfigMap += 1
	if m.Impl.CreateConfigMap == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateConfigMap(ctx, namespace, cm)
}

func (m *MockClient) UpdateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
	m.Called.UpdateConfigMap += 1
	if m.Impl.UpdateConfigMap == nil {
		return nil, errNotImplemented
	}
	return m.Impl.UpdateConfigMap(ctx, namespace, cm)
}

func (m *MockClient) DeleteConfigMap(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteConfigMap += 1
	if m.Impl.DeleteConfigMap == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteConfigMap(ctx, namespace, name)
}

func (m *MockClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	m.Called.GetDeployment += 1
	if m.Impl.GetDeployment == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetDeployment(ctx, namespace, name)
}

func (m *MockClient) CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.CreateDeployment += 1
	if m.Impl.CreateDeployment == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateDeployment(ctx, namespace, depl)
}

func (m *MockClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.UpdateDeployment += 1
	if m.Impl.UpdateDeployment == nil {
		return nil, errNotImplemented
	}
	return m.Impl.UpdateDeployment(ctx, namespace, depl)
}

func (m *MockClient) ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error) {
	m.Called.ScaleDeployment += 1
	if m.Impl.ScaleDeployment == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ScaleDeployment(ctx, namespace, name, replicas)
}

func (m *MockClient) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteDeployment += 1
	if m.Impl.DeleteDeployment == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteDeployment(ctx, namespace, name)
}

func (m *MockClient) FindReplicaSets(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.ReplicaSet, error) {
	m.Called.FindReplicaSets += 1
	if m.Impl.FindReplicaSets == nil {
		return nil, errNotImplemented
	}
	return m.Impl.FindReplicaSets(ctx, namespace, ls)
}

func (m *MockClient) GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
	m.Called.GetService += 1
	if m.Impl.GetService == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetService(ctx, namespace, name)
}

func (m *MockClient) CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	m.Called.CreateService += 1
	if m.Impl.CreateService == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateService(ctx, namespace, svc)
}

func (m *MockClient) PatchServiceSelector(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error) {
	m.Called.PatchServiceSelector += 1
	if m.Impl.PatchServiceSelector == nil {
		return nil, errNotImplemented
	}
	return m.Impl.PatchServiceSelector(ctx, namespace, name, selector)
}

func (m *MockClient) DeleteService(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteService += 1
	if m.Impl.DeleteService == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteService(ctx, namespace, name)
}

func (m *MockClient) GetEndpoints(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error) {
	m.Called.GetEndpoints += 1
	if m.Impl.GetEndpoints == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetEndpoints(ctx, namespace, name)
}

func (m *MockClient) GetHPA(ctx context.Context, namespace string, name string) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	m.Called.GetHPA += 1
	if m.Impl.GetHPA == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetHPA(ctx, namespace, name)
}

func (m *MockClient) CreateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	m.Called.CreateHPA += 1
	if m.Impl.CreateHPA == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateHPA(ctx, namespace, hpa)
}

func (m *MockClient) UpdateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	m.Called.UpdateHPA += 1
	if m.Impl.UpdateHPA == nil {
		return nil, errNotImplemented
	}
	return m.Impl.UpdateHPA(ctx, namespace, hpa)
}

func (m *MockClient) DeleteHPA(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteHPA += 1
	if m.Impl.DeleteHPA == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteHPA(ctx, namespace, name)
}

func (m *MockClient) GetIngress(ctx context.Context, namespace string, name string) (*kubenetworking.Ingress, error) {
	m.Called.GetIngress += 1
	if m.Impl.GetIngress == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetIngress(ctx, namespace, name)
}

func (m *MockClient) CreateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error) {
	m.Called.CreateIngress += 1
	if m.Impl.CreateIngress == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateIngress(ctx, namespace, ing)
}

func (m *MockClient) UpdateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error) {
	m.Called.UpdateIngress += 1
	if m.Impl.UpdateIngress == nil {
		return nil, errNotImplemented
	}
	return m.Impl.UpdateIngress(ctx, namespace, ing)
}

func (m *MockClient) DeleteIngress(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteIngress += 1
	if m.Impl.DeleteIngress == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteIngress(ctx, namespace, name)
}

func (m *MockClient) GetNetworkPolicy(ctx context.Context, namespace string, name string) (*kubenetworking.NetworkPolicy, error) {
	m.Called.GetNetworkPolicy += 1
	if m.Impl.GetNetworkPolicy == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetNetworkPolicy(ctx, namespace, name)
}

func (m *MockClient) CreateNetworkPolicy(ctx context.Context, namespace string, npol *kubenetworking.NetworkPolicy) (*kubenetworking.NetworkPolicy, error) {
	m.Called.CreateNetworkPolicy += 1
	if m.Impl.CreateNetworkPolicy == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateNetworkPolicy(ctx, namespace, npol)
}

func (m *MockClient) DeleteNetworkPolicy(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteNetworkPolicy += 1
	if m.Impl.DeleteNetworkPolicy == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteNetworkPolicy(ctx, namespace, name)
}

func (m *MockClient) GetPVC(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error) {
	m.Called.GetPVC += 1
	if m.Impl.GetPVC == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetPVC(ctx, namespace, name)
}

func (m *MockClient) CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error) {
	m.Called.CreatePVC += 1
	if m.Impl.CreatePVC == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreatePVC(ctx, namespace, pvc)
}

func (m *MockClient) DeletePVC(ctx context.Context, namespace string, name string) error {
	m.Called.DeletePVC += 1
	if m.Impl.DeletePVC == nil {
		return errNotImplemented
	}
	return m.Impl.DeletePVC(ctx, namespace, name)
}

func (m *MockClient) GetPV(ctx context.Context, name string) (*kubecore.PersistentVolume, error) {
	m.Called.GetPV += 1
	if m.Impl.GetPV == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetPV(ctx, name)
}

func (m *MockClient) CreatePV(ctx context.Context, pv *kubecore.PersistentVolume) (*kubecore.PersistentVolume, error) {
	m.Called.CreatePV += 1
	if m.Impl.CreatePV == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreatePV(ctx, pv)
}

func (m *MockClient) DeletePV(ctx context.Context, name string) error {
	m.Called.DeletePV += 1
	if m.Impl.DeletePV == nil {
		return errNotImplemented
	}
	return m.Impl.DeletePV(ctx, name)
}

func (m *MockClient) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	m.Called.GetNamespace += 1
	if m.Impl.GetNamespace == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetNamespace(ctx, name)
}

func (m *MockClient) CreateNamespace(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error) {
	m.Called.CreateNamespace += 1
	if m.Impl.CreateNamespace == nil {
		return nil, errNotImplemented
	}
	return m.Impl.CreateNamespace(ctx, ns)
}

func (m *MockClient) FindPods(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubecore.Pod, error) {
	m.Called.FindPods += 1
	if m.Impl.FindPods == nil {
		return nil, errNotImplemented
	}
	return m.Impl.FindPods(ctx, namespace, ls)
}

func (m *MockClient) PodProxyGet(ctx context.Context, namespace string, podname string, port string, path string) ([]byte, error) {
	m.Called.PodProxyGet += 1
	if m.Impl.PodProxyGet == nil {
		return nil, errNotImplemented
	}
	return m.Impl.PodProxyGet(ctx, namespace, podname, port, path)
}

func (m *MockClient) ListNodes(ctx context.Context) ([]kubecore.Node, error) {
	m.Called.ListNodes += 1
	if m.Impl.ListNodes == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ListNodes(ctx)
}

func (m *MockClient) NodeMetrics(ctx context.Context, nodeName string) ([]byte, error) {
	m.Called.NodeMetrics += 1
	if m.Impl.NodeMetrics == nil {
		return nil, errNotImplemented
	}
	return m.Impl.NodeMetrics(ctx, nodeName)
}

func (m *MockClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	m.Called.GetSecret += 1
	if m.Impl.GetSecret == nil {
		return nil, errNotImplemented
	}
	return m.Impl.GetSecret(ctx, namespace, name)
}

func (m *MockClient) UpsertSecret(ctx context.Context, namespace string, spec *applyconfigurations.SecretApplyConfiguration) (*kubecore.Secret, error) {
	m.Called.UpsertSecret += 1
	if m.Impl.UpsertSecret == nil {
		return nil, errNotImplemented
	}
	return m.Impl.UpsertSecret(ctx, namespace, spec)
}

func (m *MockClient) DeleteSecret(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteSecret += 1
	if m.Impl.DeleteSecret == nil {
		return errNotImplemented
	}
	return m.Impl.DeleteSecret(ctx, namespace, name)
}
