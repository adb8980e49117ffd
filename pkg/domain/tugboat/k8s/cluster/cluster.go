package cluster

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubeautoscaling "k8s.io/api/autoscaling/v2"
	kubecore "k8s.io/api/core/v1"
	kubenetworking "k8s.io/api/networking/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapiresource "k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubetypes "k8s.io/apimachinery/pkg/types"
	applyconfigurations "k8s.io/client-go/applyconfigurations/core/v1"
	k8s "k8s.io/client-go/kubernetes"

	k8serrors "github.com/taskflow-dev/tugboat/pkg/domain/errors/k8serrors"
	"github.com/taskflow-dev/tugboat/pkg/utils/retry"
)

// subset of k8s.Clientset
type K8sClient interface {
	GetConfigMap(ctx context.Context, namespace string, name string) (*kubecore.ConfigMap, error)
	CreateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error)
	UpdateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error)
	DeleteConfigMap(ctx context.Context, namespace string, name string) error

	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error)
	DeleteDeployment(ctx context.Context, namespace string, name string) error
	FindReplicaSets(ctx context.Context, namespace string, labelSelector LabelSelector) ([]kubeapps.ReplicaSet, error)

	GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error)
	CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
	PatchServiceSelector(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error)
	DeleteService(ctx context.Context, namespace string, name string) error

	GetEndpoints(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error)

	GetHPA(ctx context.Context, namespace string, name string) (*kubeautoscaling.HorizontalPodAutoscaler, error)
	CreateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error)
	UpdateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error)
	DeleteHPA(ctx context.Context, namespace string, name string) error

	GetIngress(ctx context.Context, namespace string, name string) (*kubenetworking.Ingress, error)
	CreateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error)
	UpdateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error)
	DeleteIngress(ctx context.Context, namespace string, name string) error

	GetNetworkPolicy(ctx context.Context, namespace string, name string) (*kubenetworking.NetworkPolicy, error)
	CreateNetworkPolicy(ctx context.Context, namespace string, npol *kubenetworking.NetworkPolicy) (*kubenetworking.NetworkPolicy, error)
	DeleteNetworkPolicy(ctx context.Context, namespace string, name string) error

	GetPVC(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error)
	CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error)
	DeletePVC(ctx context.Context, namespace string, name string) error

	GetPV(ctx context.Context, name string) (*kubecore.PersistentVolume, error)
	CreatePV(ctx context.Context, pv *kubecore.PersistentVolume) (*kubecore.PersistentVolume, error)
	DeletePV(ctx context.Context, name string) error

	GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error)
	CreateNamespace(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error)

	FindPods(ctx context.Context, namespace string, labelSelector LabelSelector) ([]kubecore.Pod, error)

	// PodProxyGet issues HTTP GET to a pod via the apiserver proxy and returns the raw body.
	PodProxyGet(ctx context.Context, namespace string, podname string, port string, path string) ([]byte, error)

	ListNodes(ctx context.Context) ([]kubecore.Node, error)

	// NodeMetrics reads the kubelet resource metrics endpoint
	// (/api/v1/nodes/NODE/proxy/metrics/resource) and returns the raw exposition text.
	NodeMetrics(ctx context.Context, nodeName string) ([]byte, error)

	GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error)
	UpsertSecret(ctx context.Context, namespace string, spec *applyconfigurations.SecretApplyConfiguration) (*kubecore.Secret, error)
	DeleteSecret(ctx context.Context, namespace string, name string) error
}

// A wrapper for the type k8s.Clientset; because it does not prefer method chain-style invocations of that type.
type k8sClient struct {
	client *k8s.Clientset
}

// type check: k8sClient implements K8sClient
var _ K8sClient = &k8sClient{}

func WrapK8sClient(c *k8s.Clientset) K8sClient {
	return &k8sClient{client: c}
}

func (k *k8sClient) GetConfigMap(ctx context.Context, namespace string, name string) (*kubecore.ConfigMap, error) {
	return k.client.CoreV1().ConfigMaps(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
	return k.client.CoreV1().ConfigMaps(namespace).Create(ctx, cm, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateConfigMap(ctx context.Context, namespace string, cm *kubecore.ConfigMap) (*kubecore.ConfigMap, error) {
	return k.client.CoreV1().ConfigMaps(namespace).Update(ctx, cm, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteConfigMap(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().ConfigMaps(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Create(ctx, depl, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Update(ctx, depl, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) ScaleDeployment(ctx context.Context, namespace string, name string, replicas int32) (*kubeapps.Deployment, error) {
	scale, err := k.client.AppsV1().Deployments(namespace).GetScale(ctx, name, kubeapimeta.GetOptions{})
	if err != nil {
		return nil, err
	}
	scale.Spec.Replicas = replicas
	if _, err := k.client.AppsV1().Deployments(namespace).UpdateScale(ctx, name, scale, kubeapimeta.UpdateOptions{}); err != nil {
		return nil, err
	}
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	return k.client.AppsV1().Deployments(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) FindReplicaSets(ctx context.Context, namespace string, labels LabelSelector) ([]kubeapps.ReplicaSet, error) {
	resp, err := k.client.AppsV1().ReplicaSets(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labels.QueryString(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Create(ctx, svc, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) PatchServiceSelector(ctx context.Context, namespace string, name string, selector map[string]string) (*kubecore.Service, error) {
	patch, err := json.Marshal(map[string]any{
		"spec": map[string]any{"selector": selector},
	})
	if err != nil {
		return nil, err
	}
	return k.client.CoreV1().Services(namespace).Patch(
		ctx, name, kubetypes.StrategicMergePatchType, patch, kubeapimeta.PatchOptions{},
	)
}

func (k *k8sClient) DeleteService(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().Services(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetEndpoints(ctx context.Context, namespace string, name string) (*kubecore.Endpoints, error) {
	return k.client.CoreV1().Endpoints(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) GetHPA(ctx context.Context, namespace string, name string) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	return k.client.AutoscalingV2().HorizontalPodAutoscalers(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	return k.client.AutoscalingV2().HorizontalPodAutoscalers(namespace).Create(ctx, hpa, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateHPA(ctx context.Context, namespace string, hpa *kubeautoscaling.HorizontalPodAutoscaler) (*kubeautoscaling.HorizontalPodAutoscaler, error) {
	return k.client.AutoscalingV2().HorizontalPodAutoscalers(namespace).Update(ctx, hpa, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteHPA(ctx context.Context, namespace string, name string) error {
	return k.client.AutoscalingV2().HorizontalPodAutoscalers(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetIngress(ctx context.Context, namespace string, name string) (*kubenetworking.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Create(ctx, ing, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateIngress(ctx context.Context, namespace string, ing *kubenetworking.Ingress) (*kubenetworking.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Update(ctx, ing, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteIngress(ctx context.Context, namespace string, name string) error {
	return k.client.NetworkingV1().Ingresses(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetNetworkPolicy(ctx context.Context, namespace string, name string) (*kubenetworking.NetworkPolicy, error) {
	return k.client.NetworkingV1().NetworkPolicies(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateNetworkPolicy(ctx context.Context, namespace string, npol *kubenetworking.NetworkPolicy) (*kubenetworking.NetworkPolicy, error) {
	return k.client.NetworkingV1().NetworkPolicies(namespace).Create(ctx, npol, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) DeleteNetworkPolicy(ctx context.Context, namespace string, name string) error {
	return k.client.NetworkingV1().NetworkPolicies(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetPVC(ctx context.Context, namespace string, name string) (*kubecore.PersistentVolumeClaim, error) {
	return k.client.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error) {
	return k.client.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) DeletePVC(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().PersistentVolumeClaims(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetPV(ctx context.Context, name string) (*kubecore.PersistentVolume, error) {
	return k.client.CoreV1().PersistentVolumes().Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreatePV(ctx context.Context, pv *kubecore.PersistentVolume) (*kubecore.PersistentVolume, error) {
	return k.client.CoreV1().PersistentVolumes().Create(ctx, pv, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) DeletePV(ctx context.Context, name string) error {
	return k.client.CoreV1().PersistentVolumes().Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

func (k *k8sClient) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	return k.client.CoreV1().Namespaces().Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateNamespace(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error) {
	return k.client.CoreV1().Namespaces().Create(ctx, ns, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) FindPods(ctx context.Context, namespace string, labels LabelSelector) ([]kubecore.Pod, error) {
	resp, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labels.QueryString(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) PodProxyGet(ctx context.Context, namespace string, podname string, port string, path string) ([]byte, error) {
	return k.client.
		CoreV1().
		Pods(namespace).
		ProxyGet("http", podname, port, path, nil).
		DoRaw(ctx)
}

func (k *k8sClient) ListNodes(ctx context.Context) ([]kubecore.Node, error) {
	resp, err := k.client.CoreV1().Nodes().List(ctx, kubeapimeta.ListOptions{})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) NodeMetrics(ctx context.Context, nodeName string) ([]byte, error) {
	return k.client.
		CoreV1().
		RESTClient().
		Get().
		Resource("nodes").
		Name(nodeName).
		SubResource("proxy").
		Suffix("metrics", "resource").
		DoRaw(ctx)
}

func (k *k8sClient) GetSecret(ctx context.Context, namespace string, name string) (*kubecore.Secret, error) {
	return k.client.CoreV1().Secrets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) UpsertSecret(ctx context.Context, namespace string, spec *applyconfigurations.SecretApplyConfiguration) (*kubecore.Secret, error) {
	return k.client.CoreV1().Secrets(namespace).Apply(ctx, spec, kubeapimeta.ApplyOptions{
		FieldManager: "tugboat", Force: true,
	})
}

func (k *k8sClient) DeleteSecret(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().Secrets(namespace).Delete(ctx, name, *kubeapimeta.NewDeleteOptions(0))
}

// annotation where k8s records the rollout revision of a Deployment (and its ReplicaSets).
const RevisionAnnotation = "deployment.kubernetes.io/revision"

// ConfigMapDigest is a digest of the text data in a ConfigMap.
// Same data makes same digest, independent of the order keys are set in.
func ConfigMapDigest(cm *kubecore.ConfigMap) string {
	keys := make([]string, 0, len(cm.Data))
	for k := range cm.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, cm.Data[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Abstraction of k8s ConfigMap
type ConfigMap interface {
	Name() string
	Namespace() string

	// digest of the stored data. See ConfigMapDigest.
	Digest() string

	// release resources.
	//
	// Delete ConfigMap.
	Close() error
}

type configMap struct {
	resource *kubecore.ConfigMap
	onClose  func() error
}

func (c *configMap) Name() string {
	return c.resource.GetName()
}

func (c *configMap) Namespace() string {
	return c.resource.GetNamespace()
}

func (c *configMap) Digest() string {
	return ConfigMapDigest(c.resource)
}

func (c *configMap) Close() error {
	if c.onClose == nil {
		return nil
	}
	return c.onClose()
}

// Abstraction of k8s Deployment
type Deployment interface {
	Name() string
	Namespace() string

	// rollout revision, read from the RevisionAnnotation. 0 when unknown.
	Revision() int64

	// image of the first container in the pod template.
	Image() string

	DesiredReplicas() int32
	ReadyReplicas() int32
	UpdatedReplicas() int32

	// release resources.
	//
	// Delete deployment and related pods.
	Close() error
}

type deployment struct {
	resource *kubeapps.Deployment
	onClose  func() error
}

func (d *deployment) Name() string {
	return d.resource.GetName()
}

func (d *deployment) Namespace() string {
	return d.resource.GetNamespace()
}

func (d *deployment) Revision() int64 {
	rev, err := strconv.ParseInt(d.resource.GetAnnotations()[RevisionAnnotation], 10, 64)
	if err != nil {
		return 0
	}
	return rev
}

func (d *deployment) Image() string {
	containers := d.resource.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return ""
	}
	return containers[0].Image
}

func (d *deployment) DesiredReplicas() int32 {
	if d.resource.Spec.Replicas == nil {
		return 1
	}
	return *d.resource.Spec.Replicas
}

func (d *deployment) ReadyReplicas() int32 {
	return d.resource.Status.ReadyReplicas
}

func (d *deployment) UpdatedReplicas() int32 {
	return d.resource.Status.UpdatedReplicas
}

func (d *deployment) Close() error {
	if d.onClose == nil {
		return nil
	}
	return d.onClose()
}

// Abstraction of k8s Service
type Service interface {
	Name() string
	Namespace() string

	// get service domain name.
	Host() string

	// get service cluster IP.
	IP() string

	// get named port number.
	//
	// If not found, return 0.
	Port(name string) int32

	// get pod selector of the service.
	Selector() map[string]string

	// release resources.
	//
	// Delete service.
	Close() error
}

type service struct {
	resource *kubecore.Service
	domain   string
	onClose  func() error
}

func (s *service) Name() string {
	return s.resource.GetName()
}

func (s *service) Namespace() string {
	return s.resource.GetNamespace()
}

func (s *service) Host() string {
	return fmt.Sprintf("%s.%s.svc.%s", s.Name(), s.Namespace(), s.domain)
}

func (s *service) IP() string {
	return s.resource.Spec.ClusterIP
}

func (s *service) Port(name string) int32 {
	for _, p := range s.resource.Spec.Ports {
		if p.Name == name {
			return p.Port
		}
	}
	return 0
}

func (s *service) Selector() map[string]string {
	selector := map[string]string{}
	for k, v := range s.resource.Spec.Selector {
		selector[k] = v
	}
	return selector
}

func (s *service) Close() error {
	if s.onClose == nil {
		return nil
	}
	return s.onClose()
}

// Abstraction of k8s Endpoints
type Endpoints interface {
	Name() string
	Namespace() string

	// IPs which are ready to receive traffic.
	ReadyAddresses() []string

	// IPs which are known but not ready.
	NotReadyAddresses() []string
}

type endpoints struct {
	resource *kubecore.Endpoints
}

func (e *endpoints) Name() string {
	return e.resource.GetName()
}

func (e *endpoints) Namespace() string {
	return e.resource.GetNamespace()
}

func (e *endpoints) ReadyAddresses() []string {
	addrs := []string{}
	for _, sub := range e.resource.Subsets {
		for _, a := range sub.Addresses {
			addrs = append(addrs, a.IP)
		}
	}
	return addrs
}

func (e *endpoints) NotReadyAddresses() []string {
	addrs := []string{}
	for _, sub := range e.resource.Subsets {
		for _, a := range sub.NotReadyAddresses {
			addrs = append(addrs, a.IP)
		}
	}
	return addrs
}

// Abstraction of k8s HorizontalPodAutoscaler
type HPA interface {
	Name() string
	Namespace() string
	MinReplicas() int32
	MaxReplicas() int32
	Close() error
}

type hpa struct {
	resource *kubeautoscaling.HorizontalPodAutoscaler
	onClose  func() error
}

func (h *hpa) Name() string {
	return h.resource.GetName()
}

func (h *hpa) Namespace() string {
	return h.resource.GetNamespace()
}

func (h *hpa) MinReplicas() int32 {
	if h.resource.Spec.MinReplicas == nil {
		return 1
	}
	return *h.resource.Spec.MinReplicas
}

func (h *hpa) MaxReplicas() int32 {
	return h.resource.Spec.MaxReplicas
}

func (h *hpa) Close() error {
	if h.onClose == nil {
		return nil
	}
	return h.onClose()
}

// Abstraction of k8s Ingress
type Ingress interface {
	Name() string
	Namespace() string
	Hosts() []string
	Close() error
}

type ingress struct {
	resource *kubenetworking.Ingress
	onClose  func() error
}

func (i *ingress) Name() string {
	return i.resource.GetName()
}

func (i *ingress) Namespace() string {
	return i.resource.GetNamespace()
}

func (i *ingress) Hosts() []string {
	hosts := []string{}
	for _, r := range i.resource.Spec.Rules {
		hosts = append(hosts, r.Host)
	}
	return hosts
}

func (i *ingress) Close() error {
	if i.onClose == nil {
		return nil
	}
	return i.onClose()
}

// Abstraction of k8s NetworkPolicy
type NetworkPolicy interface {
	Name() string
	Namespace() string
	Close() error
}

type networkPolicy struct {
	resource *kubenetworking.NetworkPolicy
	onClose  func() error
}

func (n *networkPolicy) Name() string {
	return n.resource.GetName()
}

func (n *networkPolicy) Namespace() string {
	return n.resource.GetNamespace()
}

func (n *networkPolicy) Close() error {
	if n.onClose == nil {
		return nil
	}
	return n.onClose()
}

// Abstraction of Persistent Volume Claim
type PVC interface {
	Name() string
	Namespace() string
	VolumeName() string

	// Capacity in claim.
	ClaimedCapacity() kubeapiresource.Quantity

	// destroy PVC if it is created as this instance.
	Close() error
}

type pvc struct {
	resource *kubecore.PersistentVolumeClaim
	onClose  func() error
}

func (p *pvc) Name() string {
	return p.resource.GetName()
}

func (p *pvc) Namespace() string {
	return p.resource.GetNamespace()
}

func (p *pvc) VolumeName() string {
	return p.resource.Spec.VolumeName
}

func (p *pvc) ClaimedCapacity() kubeapiresource.Quantity {
	return p.resource.Spec.Resources.Requests["storage"]
}

func (p *pvc) Close() error {
	if p.onClose == nil {
		return nil
	}
	return p.onClose()
}

// Abstraction of Persistent Volume
type PV interface {
	Name() string
	Phase() kubecore.PersistentVolumePhase
	Close() error
}

type pv struct {
	resource *kubecore.PersistentVolume
	onClose  func() error
}

func (p *pv) Name() string {
	return p.resource.GetName()
}

func (p *pv) Phase() kubecore.PersistentVolumePhase {
	return p.resource.Status.Phase
}

func (p *pv) Close() error {
	if p.onClose == nil {
		return nil
	}
	return p.onClose()
}

// Abstraction of k8s Secret
type Secret interface {
	Name() string
	Data() map[string][]byte
}

type secret struct {
	resource *kubecore.Secret
}

func (s *secret) Name() string {
	return s.resource.GetName()
}

func (s *secret) Data() map[string][]byte {
	return s.resource.Data
}

// Deleted is resolved value of delete operations.
type Deleted struct{}

// Requirement is a function that checks if a k8s resource satisfies the requirement.
//
// # Return
//
// - error: When the value satisfies the requirement, return nil.
// If it is waiting to satisfy the requirement, return `retry.ErrRetry`.
// Otherwise, return error.
type Requirement[T any] func(value T) error

func WithCheckpoint[T any](requirement Requirement[T], deadline time.Time) Requirement[T] {
	satisfied := false
	return func(value T) error {
		if satisfied {
			return nil
		}
		if time.Now().After(deadline) {
			return k8serrors.ErrDeadlineExceeded
		}

		err := requirement(value)
		if err != nil {
			return err
		}

		satisfied = true
		return nil
	}
}

func satisfyAll[T any](value T, req []Requirement[T]) error {
	for _, r := range req {
		if err := r(value); err != nil {
			return err
		}
	}
	return nil
}

var ServiceIsReady Requirement[*kubecore.Service] = func(value *kubecore.Service) error {
	if value.Spec.ClusterIP != "" {
		return nil
	}
	return retry.ErrRetry
}

// ServiceSelects requires that the pod selector of a Service has all given label values.
func ServiceSelects(selector map[string]string) Requirement[*kubecore.Service] {
	return func(value *kubecore.Service) error {
		for k, v := range selector {
			if value.Spec.Selector[k] != v {
				return retry.ErrRetry
			}
		}
		return nil
	}
}

// DeploymentAvailable requires that a Deployment has observed its latest spec
// and all desired replicas are updated & available.
var DeploymentAvailable Requirement[*kubeapps.Deployment] = func(value *kubeapps.Deployment) error {
	desired := int32(1)
	if value.Spec.Replicas != nil {
		desired = *value.Spec.Replicas
	}
	if value.Status.ObservedGeneration < value.Generation {
		return retry.ErrRetry
	}
	if value.Status.UpdatedReplicas < desired || value.Status.AvailableReplicas < desired {
		return retry.ErrRetry
	}
	return nil
}

// DeploymentScaledTo requires that a Deployment has settled at the given replica count.
// It works for scale-in (to zero, even) and scale-out both.
func DeploymentScaledTo(replicas int32) Requirement[*kubeapps.Deployment] {
	return func(value *kubeapps.Deployment) error {
		if value.Spec.Replicas == nil || *value.Spec.Replicas != replicas {
			return retry.ErrRetry
		}
		if value.Status.ObservedGeneration < value.Generation {
			return retry.ErrRetry
		}
		if value.Status.Replicas != replicas || value.Status.AvailableReplicas != replicas {
			return retry.ErrRetry
		}
		return nil
	}
}

// EndpointsReady requires that an Endpoints has at least one address ready for traffic.
var EndpointsReady Requirement[*kubecore.Endpoints] = func(value *kubecore.Endpoints) error {
	for _, sub := range value.Subsets {
		if 0 < len(sub.Addresses) {
			return nil
		}
	}
	return retry.ErrRetry
}

var PVCIsBound Requirement[*kubecore.PersistentVolumeClaim] = func(value *kubecore.PersistentVolumeClaim) error {
	if value.Status.Phase == kubecore.ClaimBound {
		return nil
	}
	return retry.ErrRetry
}

var PVIsReady Requirement[*kubecore.PersistentVolume] = func(value *kubecore.PersistentVolume) error {
	switch value.Status.Phase {
	case kubecore.VolumeAvailable, kubecore.VolumeBound:
		return nil
	default:
		return retry.ErrRetry
	}
}

type Cluster interface {
	Namespace() string
	Domain() string

	// EnsureConfigMap creates the ConfigMap, or overwrites it when it exists already.
	//
	// Args
	//
	// - ctx context.Context
	//
	// - backoff retry.Backoff: backoff policy to wait for the ConfigMap satisfy all requirements.
	//
	// - cmconf *ConfigMap: spec of wanted ConfigMap
	//
	// - requirements ...Requirement[*ConfigMap]: requirements for the ConfigMap.
	// If not given, it is resolved as soon as the ConfigMap is written.
	//
	// Return
	//
	// - retry.Promise[ConfigMap]
	//
	// Promise which is resolved when the ConfigMap is written & satisfies requirements.
	//
	// The Promise may have Error below:
	//
	// - k8serrors.ErrMissing: ConfigMap is missing after written until meets requirements.
	//
	// - other errors come from Requirements and context.Context
	EnsureConfigMap(context.Context, retry.Backoff, *kubecore.ConfigMap, ...Requirement[*kubecore.ConfigMap]) retry.Promise[ConfigMap]

	// DeleteConfigMap deletes the named ConfigMap and waits until it is gone.
	// Missing ConfigMap resolves successfully.
	DeleteConfigMap(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsureDeployment creates the Deployment, or overwrites its spec when it exists already.
	//
	// Args
	//
	// - ctx context.Context
	//
	// - backoff retry.Backoff: backoff policy to wait for the Deployment satisfy all requirements.
	//
	// - dplconf *Deployment: spec of wanted Deployment
	//
	// - requirements ...Requirement[*Deployment]: requirements for the Deployment.
	// If not given, DeploymentAvailable is used as default.
	//
	// Return
	//
	// - retry.Promise[Deployment]
	//
	// Promise which is resolved when the Deployment is written & satisfies requirements.
	//
	// The Promise may have Error below:
	//
	// - k8serrors.ErrMissing: Deployment is missing after written until meets requirements.
	//
	// - other errors come from Requirements and context.Context
	//
	// Whether or not the Promise has Error, the Deployment can be written.
	// So, you may need to Close() it.
	EnsureDeployment(context.Context, retry.Backoff, *kubeapps.Deployment, ...Requirement[*kubeapps.Deployment]) retry.Promise[Deployment]

	// GetDeployment waits for an existing Deployment to satisfy all requirements.
	//
	// If not given, DeploymentAvailable is used as default requirement.
	//
	// The Promise may have Error k8serrors.ErrMissing when the Deployment is not found.
	GetDeployment(context.Context, retry.Backoff, string, ...Requirement[*kubeapps.Deployment]) retry.Promise[Deployment]

	// ScaleDeployment sets the replica count of an existing Deployment
	// and waits for it to settle there.
	//
	// If requirements are not given, DeploymentScaledTo(replicas) is used as default.
	//
	// The Promise may have Error k8serrors.ErrMissing when the Deployment is not found.
	ScaleDeployment(ctx context.Context, backoff retry.Backoff, name string, replicas int32, requirements ...Requirement[*kubeapps.Deployment]) retry.Promise[Deployment]

	// DeleteDeployment deletes the named Deployment and waits until it is gone.
	// Missing Deployment resolves successfully.
	DeleteDeployment(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsureService creates the Service when it is missing.
	//
	// The spec of an existing Service is left as is, pod selector included,
	// so calling this is safe while traffic is pinned to a color.
	//
	// If requirements are not given, ServiceIsReady is used as default.
	EnsureService(context.Context, retry.Backoff, *kubecore.Service, ...Requirement[*kubecore.Service]) retry.Promise[Service]

	// GetService waits for an existing Service to satisfy all requirements.
	//
	// If not given, ServiceIsReady is used as default requirement.
	//
	// The Promise may have Error k8serrors.ErrMissing when the Service is not found.
	GetService(context.Context, retry.Backoff, string, ...Requirement[*kubecore.Service]) retry.Promise[Service]

	// PatchServiceSelector merges the given labels into the pod selector of the Service,
	// atomically against other writers, and waits until the apiserver reports them back.
	//
	// The Promise may have Error k8serrors.ErrMissing when the Service is not found.
	PatchServiceSelector(ctx context.Context, backoff retry.Backoff, name string, selector map[string]string) retry.Promise[Service]

	// DeleteService deletes the named Service and waits until it is gone.
	// Missing Service resolves successfully.
	DeleteService(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// GetEndpoints waits for the Endpoints of a Service to satisfy all requirements.
	//
	// If not given, EndpointsReady is used as default.
	GetEndpoints(context.Context, retry.Backoff, string, ...Requirement[*kubecore.Endpoints]) retry.Promise[Endpoints]

	// EnsureHPA creates the HorizontalPodAutoscaler, or overwrites it when it exists already.
	EnsureHPA(context.Context, retry.Backoff, *kubeautoscaling.HorizontalPodAutoscaler, ...Requirement[*kubeautoscaling.HorizontalPodAutoscaler]) retry.Promise[HPA]

	// DeleteHPA deletes the named HorizontalPodAutoscaler and waits until it is gone.
	DeleteHPA(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsureIngress creates the Ingress, or overwrites it when it exists already.
	EnsureIngress(context.Context, retry.Backoff, *kubenetworking.Ingress, ...Requirement[*kubenetworking.Ingress]) retry.Promise[Ingress]

	// DeleteIngress deletes the named Ingress and waits until it is gone.
	DeleteIngress(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsureNetworkPolicy creates the NetworkPolicy when it is missing.
	EnsureNetworkPolicy(context.Context, retry.Backoff, *kubenetworking.NetworkPolicy, ...Requirement[*kubenetworking.NetworkPolicy]) retry.Promise[NetworkPolicy]

	// DeleteNetworkPolicy deletes the named NetworkPolicy and waits until it is gone.
	DeleteNetworkPolicy(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsurePVC creates the PVC when it is missing.
	//
	// If requirements are not given, PVCIsBound is used as default.
	EnsurePVC(context.Context, retry.Backoff, *kubecore.PersistentVolumeClaim, ...Requirement[*kubecore.PersistentVolumeClaim]) retry.Promise[PVC]

	// DeletePVC deletes the named PVC and waits until it is gone.
	DeletePVC(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsurePV creates the PersistentVolume (cluster scoped) when it is missing.
	//
	// If requirements are not given, PVIsReady is used as default.
	EnsurePV(context.Context, retry.Backoff, *kubecore.PersistentVolume, ...Requirement[*kubecore.PersistentVolume]) retry.Promise[PV]

	// DeletePV deletes the named PersistentVolume and waits until it is gone.
	DeletePV(context.Context, retry.Backoff, string) retry.Promise[Deleted]

	// EnsureNamespace creates the namespace this Cluster is attached to, when it is missing.
	EnsureNamespace(ctx context.Context) error

	// ListPods lists pods matching the label selector in the attached namespace.
	ListPods(ctx context.Context, labelSelector LabelSelector) ([]kubecore.Pod, error)

	// ListReplicaSets lists replicasets matching the label selector in the attached namespace.
	ListReplicaSets(ctx context.Context, labelSelector LabelSelector) ([]kubeapps.ReplicaSet, error)

	// ListNodes lists the nodes of the cluster.
	ListNodes(ctx context.Context) ([]kubecore.Node, error)

	// NodeMetrics reads the kubelet resource metrics of a node, in Prometheus exposition text.
	NodeMetrics(ctx context.Context, nodeName string) ([]byte, error)

	// PodProxyGet issues HTTP GET to a pod via the apiserver proxy.
	PodProxyGet(ctx context.Context, podname string, port string, path string) ([]byte, error)

	// GetSecret reads a Secret in the attached namespace.
	GetSecret(ctx context.Context, name string) (Secret, error)

	// UpsertSecret writes a Secret with server-side apply.
	UpsertSecret(ctx context.Context, spec *applyconfigurations.SecretApplyConfiguration) (Secret, error)

	// DeleteSecret deletes a Secret in the attached namespace.
	DeleteSecret(ctx context.Context, name string) error
}

type k8sCluster struct {
	client    K8sClient
	namespace string
	domain    string
}

// type check: k8sCluster implements Cluster
var _ Cluster = &k8sCluster{}

// Attach kubernetes cluster.
//
// args:
//   - client: k8s client
//   - namespace: k8s namespace
//   - domain: k8s-internal domain name. If empty string is passed, it uses `"cluster.local"` as default.
func AttachCluster(client K8sClient, namespace string, domain string) Cluster {
	if domain == "" {
		domain = "cluster.local"
	}
	return &k8sCluster{client: client, namespace: namespace, domain: domain}
}

func (c *k8sCluster) Namespace() string {
	return c.namespace
}

func (c *k8sCluster) Domain() string {
	return c.domain
}

func (c *k8sCluster) EnsureConfigMap(
	ctx context.Context, backoff retry.Backoff, cmconf *kubecore.ConfigMap,
	requirements ...Requirement[*kubecore.ConfigMap],
) retry.Promise[ConfigMap] {
	select {
	case <-ctx.Done():
		return retry.Failed[ConfigMap](ctx.Err())
	default:
	}

	name := cmconf.ObjectMeta.Name
	cm, err := c.client.CreateConfigMap(ctx, c.namespace, cmconf)
	if err != nil {
		if !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[ConfigMap](err)
		}
		current, err := c.client.GetConfigMap(ctx, c.namespace, name)
		if err != nil {
			return retry.Failed[ConfigMap](err)
		}
		overwrite := cmconf.DeepCopy()
		overwrite.ObjectMeta.ResourceVersion = current.ObjectMeta.ResourceVersion
		cm, err = c.client.UpdateConfigMap(ctx, c.namespace, overwrite)
		if err != nil {
			return retry.Failed[ConfigMap](err)
		}
	}

	_close := func() error {
		return c.client.DeleteConfigMap(
			context.Background(), // close should run if given has closed.
			c.namespace,
			name,
		)
	}
	if err := satisfyAll(cm, requirements); err == nil {
		return retry.Ok[ConfigMap](&configMap{resource: cm, onClose: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[ConfigMap](err)
	}

	return retry.Go(ctx, backoff, func() (ConfigMap, error) {
		cm, err := c.client.GetConfigMap(ctx, c.namespace, name)
		ret := &configMap{resource: cm, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("configmap "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(cm, requirements)
	})
}

func (c *k8sCluster) DeleteConfigMap(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteConfigMap(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetConfigMap(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsureDeployment(
	ctx context.Context, backoff retry.Backoff, dplconf *kubeapps.Deployment,
	requirements ...Requirement[*kubeapps.Deployment],
) retry.Promise[Deployment] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubeapps.Deployment]{DeploymentAvailable}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[Deployment](ctx.Err())
	default:
	}

	name := dplconf.ObjectMeta.Name
	dpl, err := c.client.CreateDeployment(ctx, c.namespace, dplconf)
	if err != nil {
		if !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[Deployment](err)
		}
		current, err := c.client.GetDeployment(ctx, c.namespace, name)
		if err != nil {
			return retry.Failed[Deployment](err)
		}
		overwrite := dplconf.DeepCopy()
		overwrite.ObjectMeta.ResourceVersion = current.ObjectMeta.ResourceVersion
		dpl, err = c.client.UpdateDeployment(ctx, c.namespace, overwrite)
		if err != nil {
			return retry.Failed[Deployment](err)
		}
	}

	_close := func() error {
		return c.client.DeleteDeployment(
			context.Background(), // close should run if given has closed.
			c.namespace,
			name,
		)
	}

	if err := satisfyAll(dpl, requirements); err == nil {
		return retry.Ok[Deployment](&deployment{resource: dpl, onClose: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[Deployment](err)
	}

	return c.GetDeployment(ctx, backoff, name, requirements...)
}

func (c *k8sCluster) GetDeployment(
	ctx context.Context, backoff retry.Backoff, name string,
	requirements ...Requirement[*kubeapps.Deployment],
) retry.Promise[Deployment] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubeapps.Deployment]{DeploymentAvailable}
	}

	_close := func() error {
		return c.client.DeleteDeployment(context.Background(), c.namespace, name)
	}
	return retry.Go(ctx, backoff, func() (Deployment, error) {
		dpl, err := c.client.GetDeployment(ctx, c.namespace, name)
		ret := &deployment{resource: dpl, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("deployment "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(dpl, requirements)
	})
}

func (c *k8sCluster) ScaleDeployment(
	ctx context.Context, backoff retry.Backoff, name string, replicas int32,
	requirements ...Requirement[*kubeapps.Deployment],
) retry.Promise[Deployment] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubeapps.Deployment]{DeploymentScaledTo(replicas)}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[Deployment](ctx.Err())
	default:
	}

	if _, err := c.client.ScaleDeployment(ctx, c.namespace, name, replicas); err != nil {
		if kubeerr.IsNotFound(err) {
			return retry.Failed[Deployment](k8serrors.NewMissingCausedBy("deployment "+name, err))
		}
		return retry.Failed[Deployment](err)
	}

	return c.GetDeployment(ctx, backoff, name, requirements...)
}

func (c *k8sCluster) DeleteDeployment(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteDeployment(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetDeployment(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsureService(
	ctx context.Context, backoff retry.Backoff, svcconf *kubecore.Service,
	requirements ...Requirement[*kubecore.Service],
) retry.Promise[Service] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubecore.Service]{ServiceIsReady}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[Service](ctx.Err())
	default:
	}

	name := svcconf.ObjectMeta.Name
	if _, err := c.client.GetService(ctx, c.namespace, name); err != nil {
		if !kubeerr.IsNotFound(err) {
			return retry.Failed[Service](err)
		}
		if _, err := c.client.CreateService(ctx, c.namespace, svcconf); err != nil && !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[Service](err)
		}
	}

	return c.GetService(ctx, backoff, name, requirements...)
}

func (c *k8sCluster) GetService(
	ctx context.Context, backoff retry.Backoff, name string,
	requirements ...Requirement[*kubecore.Service],
) retry.Promise[Service] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubecore.Service]{ServiceIsReady}
	}

	_close := func() error {
		return c.client.DeleteService(context.Background(), c.namespace, name)
	}
	return retry.Go(ctx, backoff, func() (Service, error) {
		svc, err := c.client.GetService(ctx, c.namespace, name)
		ret := &service{resource: svc, domain: c.domain, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("service "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(svc, requirements)
	})
}

func (c *k8sCluster) PatchServiceSelector(
	ctx context.Context, backoff retry.Backoff, name string, selector map[string]string,
) retry.Promise[Service] {
	select {
	case <-ctx.Done():
		return retry.Failed[Service](ctx.Err())
	default:
	}

	if _, err := c.client.PatchServiceSelector(ctx, c.namespace, name, selector); err != nil {
		if kubeerr.IsNotFound(err) {
			return retry.Failed[Service](k8serrors.NewMissingCausedBy("service "+name, err))
		}
		return retry.Failed[Service](err)
	}

	return c.GetService(ctx, backoff, name, ServiceSelects(selector))
}

func (c *k8sCluster) DeleteService(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteService(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetService(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) GetEndpoints(
	ctx context.Context, backoff retry.Backoff, name string,
	requirements ...Requirement[*kubecore.Endpoints],
) retry.Promise[Endpoints] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubecore.Endpoints]{EndpointsReady}
	}

	return retry.Go(ctx, backoff, func() (Endpoints, error) {
		eps, err := c.client.GetEndpoints(ctx, c.namespace, name)
		ret := &endpoints{resource: eps}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("endpoints "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(eps, requirements)
	})
}

func (c *k8sCluster) EnsureHPA(
	ctx context.Context, backoff retry.Backoff, hpaconf *kubeautoscaling.HorizontalPodAutoscaler,
	requirements ...Requirement[*kubeautoscaling.HorizontalPodAutoscaler],
) retry.Promise[HPA] {
	select {
	case <-ctx.Done():
		return retry.Failed[HPA](ctx.Err())
	default:
	}

	name := hpaconf.ObjectMeta.Name
	h, err := c.client.CreateHPA(ctx, c.namespace, hpaconf)
	if err != nil {
		if !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[HPA](err)
		}
		current, err := c.client.GetHPA(ctx, c.namespace, name)
		if err != nil {
			return retry.Failed[HPA](err)
		}
		overwrite := hpaconf.DeepCopy()
		overwrite.ObjectMeta.ResourceVersion = current.ObjectMeta.ResourceVersion
		h, err = c.client.UpdateHPA(ctx, c.namespace, overwrite)
		if err != nil {
			return retry.Failed[HPA](err)
		}
	}

	_close := func() error {
		return c.client.DeleteHPA(context.Background(), c.namespace, name)
	}
	if err := satisfyAll(h, requirements); err == nil {
		return retry.Ok[HPA](&hpa{resource: h, onClose: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[HPA](err)
	}

	return retry.Go(ctx, backoff, func() (HPA, error) {
		h, err := c.client.GetHPA(ctx, c.namespace, name)
		ret := &hpa{resource: h, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("hpa "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(h, requirements)
	})
}

func (c *k8sCluster) DeleteHPA(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteHPA(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetHPA(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsureIngress(
	ctx context.Context, backoff retry.Backoff, ingconf *kubenetworking.Ingress,
	requirements ...Requirement[*kubenetworking.Ingress],
) retry.Promise[Ingress] {
	select {
	case <-ctx.Done():
		return retry.Failed[Ingress](ctx.Err())
	default:
	}

	name := ingconf.ObjectMeta.Name
	ing, err := c.client.CreateIngress(ctx, c.namespace, ingconf)
	if err != nil {
		if !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[Ingress](err)
		}
		current, err := c.client.GetIngress(ctx, c.namespace, name)
		if err != nil {
			return retry.Failed[Ingress](err)
		}
		overwrite := ingconf.DeepCopy()
		overwrite.ObjectMeta.ResourceVersion = current.ObjectMeta.ResourceVersion
		ing, err = c.client.UpdateIngress(ctx, c.namespace, overwrite)
		if err != nil {
			return retry.Failed[Ingress](err)
		}
	}

	_close := func() error {
		return c.client.DeleteIngress(context.Background(), c.namespace, name)
	}
	if err := satisfyAll(ing, requirements); err == nil {
		return retry.Ok[Ingress](&ingress{resource: ing, onClose: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[Ingress](err)
	}

	return retry.Go(ctx, backoff, func() (Ingress, error) {
		ing, err := c.client.GetIngress(ctx, c.namespace, name)
		ret := &ingress{resource: ing, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("ingress "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(ing, requirements)
	})
}

func (c *k8sCluster) DeleteIngress(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteIngress(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetIngress(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsureNetworkPolicy(
	ctx context.Context, backoff retry.Backoff, npolconf *kubenetworking.NetworkPolicy,
	requirements ...Requirement[*kubenetworking.NetworkPolicy],
) retry.Promise[NetworkPolicy] {
	select {
	case <-ctx.Done():
		return retry.Failed[NetworkPolicy](ctx.Err())
	default:
	}

	name := npolconf.ObjectMeta.Name
	npol, err := c.client.GetNetworkPolicy(ctx, c.namespace, name)
	if err != nil {
		if !kubeerr.IsNotFound(err) {
			return retry.Failed[NetworkPolicy](err)
		}
		npol, err = c.client.CreateNetworkPolicy(ctx, c.namespace, npolconf)
		if err != nil && !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[NetworkPolicy](err)
		}
	}

	_close := func() error {
		return c.client.DeleteNetworkPolicy(context.Background(), c.namespace, name)
	}
	if err := satisfyAll(npol, requirements); err == nil {
		return retry.Ok[NetworkPolicy](&networkPolicy{resource: npol, onClose: _close})
	} else if !errors.Is(err, retry.ErrRetry) {
		return retry.Failed[NetworkPolicy](err)
	}

	return retry.Go(ctx, backoff, func() (NetworkPolicy, error) {
		npol, err := c.client.GetNetworkPolicy(ctx, c.namespace, name)
		ret := &networkPolicy{resource: npol, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("networkpolicy "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(npol, requirements)
	})
}

func (c *k8sCluster) DeleteNetworkPolicy(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeleteNetworkPolicy(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetNetworkPolicy(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsurePVC(
	ctx context.Context, backoff retry.Backoff, pvcconf *kubecore.PersistentVolumeClaim,
	requirements ...Requirement[*kubecore.PersistentVolumeClaim],
) retry.Promise[PVC] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubecore.PersistentVolumeClaim]{PVCIsBound}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[PVC](ctx.Err())
	default:
	}

	name := pvcconf.ObjectMeta.Name
	if _, err := c.client.GetPVC(ctx, c.namespace, name); err != nil {
		if !kubeerr.IsNotFound(err) {
			return retry.Failed[PVC](err)
		}
		if _, err := c.client.CreatePVC(ctx, c.namespace, pvcconf); err != nil && !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[PVC](err)
		}
	}

	_close := func() error {
		return c.client.DeletePVC(context.Background(), c.namespace, name)
	}
	return retry.Go(ctx, backoff, func() (PVC, error) {
		p, err := c.client.GetPVC(ctx, c.namespace, name)
		ret := &pvc{resource: p, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("pvc "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(p, requirements)
	})
}

func (c *k8sCluster) DeletePVC(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeletePVC(ctx, c.namespace, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetPVC(ctx, c.namespace, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsurePV(
	ctx context.Context, backoff retry.Backoff, pvconf *kubecore.PersistentVolume,
	requirements ...Requirement[*kubecore.PersistentVolume],
) retry.Promise[PV] {
	if len(requirements) == 0 {
		requirements = []Requirement[*kubecore.PersistentVolume]{PVIsReady}
	}

	select {
	case <-ctx.Done():
		return retry.Failed[PV](ctx.Err())
	default:
	}

	name := pvconf.ObjectMeta.Name
	if _, err := c.client.GetPV(ctx, name); err != nil {
		if !kubeerr.IsNotFound(err) {
			return retry.Failed[PV](err)
		}
		if _, err := c.client.CreatePV(ctx, pvconf); err != nil && !kubeerr.IsAlreadyExists(err) {
			return retry.Failed[PV](err)
		}
	}

	_close := func() error {
		return c.client.DeletePV(context.Background(), name)
	}
	return retry.Go(ctx, backoff, func() (PV, error) {
		p, err := c.client.GetPV(ctx, name)
		ret := &pv{resource: p, onClose: _close}
		if err != nil {
			if kubeerr.IsNotFound(err) {
				return ret, k8serrors.NewMissingCausedBy("pv "+name, err)
			}
			return ret, err
		}
		return ret, satisfyAll(p, requirements)
	})
}

func (c *k8sCluster) DeletePV(
	ctx context.Context, backoff retry.Backoff, name string,
) retry.Promise[Deleted] {
	return c.deleteAndWait(
		ctx, backoff,
		func(ctx context.Context) error { return c.client.DeletePV(ctx, name) },
		func(ctx context.Context) error {
			_, err := c.client.GetPV(ctx, name)
			return err
		},
	)
}

func (c *k8sCluster) EnsureNamespace(ctx context.Context) error {
	if _, err := c.client.GetNamespace(ctx, c.namespace); err == nil {
		return nil
	} else if !kubeerr.IsNotFound(err) {
		return err
	}

	ns := &kubecore.Namespace{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: c.namespace},
	}
	if _, err := c.client.CreateNamespace(ctx, ns); err != nil && !kubeerr.IsAlreadyExists(err) {
		return err
	}
	return nil
}

func (c *k8sCluster) ListPods(ctx context.Context, labelSelector LabelSelector) ([]kubecore.Pod, error) {
	return c.client.FindPods(ctx, c.namespace, labelSelector)
}

func (c *k8sCluster) ListReplicaSets(ctx context.Context, labelSelector LabelSelector) ([]kubeapps.ReplicaSet, error) {
	return c.client.FindReplicaSets(ctx, c.namespace, labelSelector)
}

func (c *k8sCluster) ListNodes(ctx context.Context) ([]kubecore.Node, error) {
	return c.client.ListNodes(ctx)
}

func (c *k8sCluster) NodeMetrics(ctx context.Context, nodeName string) ([]byte, error) {
	return c.client.NodeMetrics(ctx, nodeName)
}

func (c *k8sCluster) PodProxyGet(ctx context.Context, podname string, port string, path string) ([]byte, error) {
	return c.client.PodProxyGet(ctx, c.namespace, podname, port, path)
}

func (c *k8sCluster) GetSecret(ctx context.Context, name string) (Secret, error) {
	s, err := c.client.GetSecret(ctx, c.namespace, name)
	if err != nil {
		return nil, err
	}
	return &secret{resource: s}, nil
}

func (c *k8sCluster) UpsertSecret(ctx context.Context, spec *applyconfigurations.SecretApplyConfiguration) (Secret, error) {
	s, err := c.client.UpsertSecret(ctx, c.namespace, spec)
	if err != nil {
		return nil, err
	}
	return &secret{resource: s}, nil
}

func (c *k8sCluster) DeleteSecret(ctx context.Context, name string) error {
	return c.client.DeleteSecret(ctx, c.namespace, name)
}

// deleteAndWait deletes a resource and polls until the apiserver agrees it is gone.
// The resource missing from the start is not an error.
func (c *k8sCluster) deleteAndWait(
	ctx context.Context, backoff retry.Backoff,
	del func(ctx context.Context) error,
	get func(ctx context.Context) error,
) retry.Promise[Deleted] {
	select {
	case <-ctx.Done():
		return retry.Failed[Deleted](ctx.Err())
	default:
	}

	if err := del(ctx); err != nil && !kubeerr.IsNotFound(err) {
		return retry.Failed[Deleted](err)
	}

	return retry.Go(ctx, backoff, func() (Deleted, error) {
		err := get(ctx)
		if err == nil {
			return Deleted{}, retry.ErrRetry
		}
		if kubeerr.IsNotFound(err) {
			return Deleted{}, nil
		}
		return Deleted{}, err
	})
}
