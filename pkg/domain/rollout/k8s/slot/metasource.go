package slot

import (
	"fmt"

	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/tugboat/k8s/metasource"
	ptr "github.com/taskflow-dev/tugboat/pkg/utils/pointer"
	kubeapps "k8s.io/api/apps/v1"
	kubeautoscaling "k8s.io/api/autoscaling/v2"
	kubecore "k8s.io/api/core/v1"
	kubenetworking "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// the contract every managed app container fulfills.
// AppPort and HealthPath are shared with validation gates probing the slot.
const (
	appPortName = "http"
	AppPort     = 8000
	HealthPath  = "/docs"

	servicePort = 80

	storageClass = "local-storage"
)

// label dimensions the Service routes by.
const (
	LabelApp   = "tugboat/app"
	LabelColor = "tugboat/color"
)

func DeploymentName(app string, color domain.Color) string {
	return fmt.Sprintf("%s-%s", app, color)
}

func ConfigMapName(app string, color domain.Color) string {
	return fmt.Sprintf("%s-config-%s", app, color)
}

func ServiceName(app string) string {
	return app
}

func HPAName(app string) string {
	return app + "-hpa"
}

func IngressName(app string) string {
	return app + "-ingress"
}

func TLSSecretName(app string) string {
	return app + "-tls"
}

func PVCName(app string) string {
	return app + "-data"
}

func PVName(app string) string {
	return app + "-data-pv"
}

func NetworkPolicyName(app string) string {
	return app + "-netpol"
}

// TrafficSelector is the pod selector pinning traffic of an app to one color.
//
// It is both the (immutable) selector of each colored Deployment and,
// with the active color, the selector of the app Service.
func TrafficSelector(app string, color domain.Color) map[string]string {
	return map[string]string{
		LabelApp:   app,
		LabelColor: color.String(),
	}
}

// AppSelector matches the pods of an app whatever their color.
//
// A canary ramp patches the Service to this selector, so both slots
// serve in proportion to their replica counts until traffic is pinned
// to the target color again.
func AppSelector(app string) map[string]string {
	return map[string]string{
		LabelApp: app,
	}
}

// Identity pins one colored slot of an App.
type Identity struct {
	App   domain.App
	Color domain.Color
}

// The name of application/resource.
//
// If there are many resources running a same app, they may have same `Name()`.
//
// For `ObjectMeta.Name`, USE `Instance()`, NOT THIS.
//
// This is set as a value of k8s label "app.kubernetes.io/name".
//
// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
func (i Identity) Name() string {
	return i.App.Name
}

// This is set as a value of k8s label "app.kubernetes.io/instance"
// AND ALSO `ObjectMeta.Name` .
//
// This will identify an instance from others sharing Name() and Component().
//
// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
func (i Identity) Instance() string {
	return DeploymentName(i.App.Name, i.Color)
}

// Where is this positioned in system archetecture.
//
// This is set as a value of k8s label "app.kubernetes.io/component".
//
// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
func (i Identity) Component() string {
	return "slot"
}

// Identifier of entity in tugboat object model.
func (i Identity) Id() string {
	return i.App.Name
}

// type of "Id()"
func (i Identity) IdType() string {
	return "app"
}

func (i Identity) Extras() map[string]string {
	return map[string]string{
		"color": i.Color.String(),
		"env":   i.App.Env.String(),
	}
}

func (i Identity) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(i, namespace)
}

// AppIdentity pins app-scoped objects shared by both slots
// (Service, HPA, Ingress, storage, NetworkPolicy).
//
// It has no color in its Extras, so such objects survive slot teardown.
type AppIdentity struct {
	App domain.App
}

func (a AppIdentity) Name() string {
	return a.App.Name
}

// Identifier of entity in tugboat object model.
func (a AppIdentity) Id() string {
	return a.App.Name
}

// type of "Id()"
func (a AppIdentity) IdType() string {
	return "app"
}

func (a AppIdentity) Extras() map[string]string {
	return map[string]string{
		"env": a.App.Env.String(),
	}
}

// Config describes the slot ConfigMap holding a release's config pairs.
//
// Each color has its own ConfigMap, so provisioning the idle slot
// never disturbs the env of the pods serving traffic.
type Config struct {
	Identity

	Data map[string]string
}

func ConfigOf(app domain.App, r domain.Release, color domain.Color) Config {
	return Config{
		Identity: Identity{App: app, Color: color},
		Data:     r.Config,
	}
}

var _ metasource.Extraer = Config{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.ConfigMap] = Config{}

func (c Config) Component() string {
	return "config"
}

func (c Config) Instance() string {
	return ConfigMapName(c.App.Name, c.Color)
}

func (c Config) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(c, namespace)
}

func (c Config) Build(conf *bconf.TugClusterConfig) *kubecore.ConfigMap {
	return &kubecore.ConfigMap{
		ObjectMeta: c.ObjectMeta(c.App.Namespace),
		Data:       c.Data,
	}
}

// Workload describes the colored Deployment running a release in a slot.
type Workload struct {
	Identity

	Image    string
	Replicas int32

	requests kubecore.ResourceList
	limits   kubecore.ResourceList
}

var _ metasource.Extraer = Workload{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubeapps.Deployment] = Workload{}

func WorkloadOf(app domain.App, r domain.Release, color domain.Color, replicas int32) (Workload, error) {
	if r.Image == "" {
		return Workload{}, fmt.Errorf(
			"malformed [app:%s release:%s]: no image", app.Name, r.Id,
		)
	}

	d := domain.DefaultResources()
	requests := kubecore.ResourceList{}
	limits := kubecore.ResourceList{}
	for _, q := range []struct {
		name     kubecore.ResourceName
		expr     string
		fallback string
		dest     kubecore.ResourceList
	}{
		{kubecore.ResourceCPU, app.Resources.CPURequest, d.CPURequest, requests},
		{kubecore.ResourceMemory, app.Resources.MemoryRequest, d.MemoryRequest, requests},
		{kubecore.ResourceCPU, app.Resources.CPULimit, d.CPULimit, limits},
		{kubecore.ResourceMemory, app.Resources.MemoryLimit, d.MemoryLimit, limits},
	} {
		expr := q.expr
		if expr == "" {
			expr = q.fallback
		}
		quantity, err := resource.ParseQuantity(expr)
		if err != nil {
			return Workload{}, fmt.Errorf(
				`malformed [app:%s]: %s quantity "%s": %w`, app.Name, q.name, expr, err,
			)
		}
		q.dest[q.name] = quantity
	}

	return Workload{
		Identity: Identity{App: app, Color: color},
		Image:    r.Image,
		Replicas: replicas,
		requests: requests,
		limits:   limits,
	}, nil
}

func (w Workload) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(w, namespace)
}

func (w Workload) Build(conf *bconf.TugClusterConfig) *kubeapps.Deployment {
	return &kubeapps.Deployment{
		ObjectMeta: w.ObjectMeta(w.App.Namespace),
		Spec: kubeapps.DeploymentSpec{
			Replicas:             ptr.Ref(w.Replicas),
			RevisionHistoryLimit: ptr.Ref[int32](10),
			Selector: &kubeapimeta.LabelSelector{
				// only the stable dimensions. labels like version vary per build,
				// and a Deployment selector cannot be updated once written.
				MatchLabels: TrafficSelector(w.App.Name, w.Color),
			},
			Strategy: kubeapps.DeploymentStrategy{
				Type: kubeapps.RollingUpdateDeploymentStrategyType,
				RollingUpdate: &kubeapps.RollingUpdateDeployment{
					MaxSurge:       ptr.Ref(intstr.FromInt(1)),
					MaxUnavailable: ptr.Ref(intstr.FromInt(0)),
				},
			},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{
					Labels: metasource.ToLabels(w),
				},
				Spec: kubecore.PodSpec{
					SecurityContext: &kubecore.PodSecurityContext{
						RunAsNonRoot: ptr.Ref(true),
						RunAsUser:    ptr.Ref[int64](1000),
						RunAsGroup:   ptr.Ref[int64](1000),
						FSGroup:      ptr.Ref[int64](1000),
					},
					Containers: []kubecore.Container{
						{
							Name:  "app",
							Image: w.Image,
							Ports: []kubecore.ContainerPort{
								{
									Name:          appPortName,
									ContainerPort: AppPort,
								},
							},
							EnvFrom: []kubecore.EnvFromSource{
								{
									ConfigMapRef: &kubecore.ConfigMapEnvSource{
										LocalObjectReference: kubecore.LocalObjectReference{
											Name: ConfigMapName(w.App.Name, w.Color),
										},
									},
								},
							},
							Resources: kubecore.ResourceRequirements{
								Requests: w.requests,
								Limits:   w.limits,
							},
							ReadinessProbe: &kubecore.Probe{
								ProbeHandler: kubecore.ProbeHandler{
									HTTPGet: &kubecore.HTTPGetAction{
										Path: HealthPath,
										Port: intstr.FromInt(AppPort),
									},
								},
								InitialDelaySeconds: 10,
								PeriodSeconds:       10,
								TimeoutSeconds:      5,
								FailureThreshold:    3,
							},
							LivenessProbe: &kubecore.Probe{
								ProbeHandler: kubecore.ProbeHandler{
									HTTPGet: &kubecore.HTTPGetAction{
										Path: HealthPath,
										Port: intstr.FromInt(AppPort),
									},
								},
								InitialDelaySeconds: 5,
								PeriodSeconds:       5,
								TimeoutSeconds:      3,
								FailureThreshold:    3,
							},
							SecurityContext: &kubecore.SecurityContext{
								RunAsNonRoot:             ptr.Ref(true),
								RunAsUser:                ptr.Ref[int64](1000),
								RunAsGroup:               ptr.Ref[int64](1000),
								AllowPrivilegeEscalation: ptr.Ref(false),
								Capabilities: &kubecore.Capabilities{
									Drop: []kubecore.Capability{"ALL"},
									Add:  []kubecore.Capability{"NET_BIND_SERVICE"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// Frontdoor is the single stable Service of an App.
//
// Its pod selector pins the color receiving traffic.
// EnsureService leaves an existing Service as it is, selector included,
// so building this is safe at any time;
// moving traffic goes through PatchServiceSelector instead.
type Frontdoor struct {
	AppIdentity

	// color the selector pins when the Service is created first.
	Active domain.Color
}

func FrontdoorOf(app domain.App, active domain.Color) Frontdoor {
	return Frontdoor{AppIdentity: AppIdentity{App: app}, Active: active}
}

var _ metasource.Extraer = Frontdoor{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.Service] = Frontdoor{}

func (f Frontdoor) Component() string {
	return "frontdoor"
}

func (f Frontdoor) Instance() string {
	return ServiceName(f.App.Name)
}

func (f Frontdoor) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(f, namespace)
}

func (f Frontdoor) Build(conf *bconf.TugClusterConfig) *kubecore.Service {
	return &kubecore.Service{
		ObjectMeta: f.ObjectMeta(f.App.Namespace),
		Spec: kubecore.ServiceSpec{
			Selector: TrafficSelector(f.App.Name, f.Active),
			Ports: []kubecore.ServicePort{
				{
					Name:       appPortName,
					Port:       servicePort,
					TargetPort: intstr.FromInt(AppPort),
					Protocol:   kubecore.ProtocolTCP,
				},
			},
		},
	}
}

// Autoscaler describes the HPA tracking the Deployment of the active slot.
//
// It is re-pointed (EnsureHPA overwrites) whenever traffic moves to
// the other color.
type Autoscaler struct {
	AppIdentity

	// color of the Deployment the autoscaler tracks.
	Target domain.Color
}

func AutoscalerOf(app domain.App, target domain.Color) Autoscaler {
	return Autoscaler{AppIdentity: AppIdentity{App: app}, Target: target}
}

var _ metasource.Extraer = Autoscaler{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubeautoscaling.HorizontalPodAutoscaler] = Autoscaler{}

func (a Autoscaler) Component() string {
	return "autoscaler"
}

func (a Autoscaler) Instance() string {
	return HPAName(a.App.Name)
}

func (a Autoscaler) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(a, namespace)
}

func (a Autoscaler) Build(conf *bconf.TugClusterConfig) *kubeautoscaling.HorizontalPodAutoscaler {
	min := int32(a.App.Replicas)
	if min < 1 {
		min = 1
	}

	return &kubeautoscaling.HorizontalPodAutoscaler{
		ObjectMeta: a.ObjectMeta(a.App.Namespace),
		Spec: kubeautoscaling.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: kubeautoscaling.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       DeploymentName(a.App.Name, a.Target),
			},
			MinReplicas: ptr.Ref(min),
			MaxReplicas: min * 3,
			Metrics: []kubeautoscaling.MetricSpec{
				{
					Type: kubeautoscaling.ResourceMetricSourceType,
					Resource: &kubeautoscaling.ResourceMetricSource{
						Name: kubecore.ResourceCPU,
						Target: kubeautoscaling.MetricTarget{
							Type:               kubeautoscaling.UtilizationMetricType,
							AverageUtilization: ptr.Ref[int32](70),
						},
					},
				},
			},
		},
	}
}

// Gateway exposes the app Service outside the cluster.
//
// Built only when the app declares an ingress host.
type Gateway struct {
	AppIdentity
}

func GatewayOf(app domain.App) Gateway {
	return Gateway{AppIdentity: AppIdentity{App: app}}
}

var _ metasource.Extraer = Gateway{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubenetworking.Ingress] = Gateway{}

func (g Gateway) Component() string {
	return "gateway"
}

func (g Gateway) Instance() string {
	return IngressName(g.App.Name)
}

func (g Gateway) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(g, namespace)
}

func (g Gateway) Build(conf *bconf.TugClusterConfig) *kubenetworking.Ingress {
	host := ""
	tls := false
	if ing := g.App.Ingress; ing != nil {
		host = ing.Host
		tls = ing.TLS
	}

	pathType := kubenetworking.PathTypePrefix
	spec := kubenetworking.IngressSpec{
		Rules: []kubenetworking.IngressRule{
			{
				Host: host,
				IngressRuleValue: kubenetworking.IngressRuleValue{
					HTTP: &kubenetworking.HTTPIngressRuleValue{
						Paths: []kubenetworking.HTTPIngressPath{
							{
								Path:     "/",
								PathType: &pathType,
								Backend: kubenetworking.IngressBackend{
									Service: &kubenetworking.IngressServiceBackend{
										Name: ServiceName(g.App.Name),
										Port: kubenetworking.ServiceBackendPort{
											Number: servicePort,
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	if tls {
		spec.TLS = []kubenetworking.IngressTLS{
			{
				Hosts:      []string{host},
				SecretName: TLSSecretName(g.App.Name),
			},
		}
	}

	return &kubenetworking.Ingress{
		ObjectMeta: g.ObjectMeta(g.App.Namespace),
		Spec:       spec,
	}
}

// Claim is the PVC bound to the app data volume.
//
// Both slots mount the same claim, so data carries over a traffic switch.
type Claim struct {
	AppIdentity

	Capacity resource.Quantity
}

func ClaimOf(app domain.App) (Claim, error) {
	capacity, err := storageCapacity(app)
	if err != nil {
		return Claim{}, err
	}
	return Claim{AppIdentity: AppIdentity{App: app}, Capacity: capacity}, nil
}

var _ metasource.Extraer = Claim{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.PersistentVolumeClaim] = Claim{}

func (c Claim) Component() string {
	return "storage"
}

func (c Claim) Instance() string {
	return PVCName(c.App.Name)
}

func (c Claim) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(c, namespace)
}

func (c Claim) Build(conf *bconf.TugClusterConfig) *kubecore.PersistentVolumeClaim {
	return &kubecore.PersistentVolumeClaim{
		ObjectMeta: c.ObjectMeta(c.App.Namespace),
		Spec: kubecore.PersistentVolumeClaimSpec{
			AccessModes:      []kubecore.PersistentVolumeAccessMode{kubecore.ReadWriteOnce},
			StorageClassName: ptr.Ref(storageClass),
			Resources: kubecore.VolumeResourceRequirements{
				Requests: kubecore.ResourceList{
					kubecore.ResourceStorage: c.Capacity,
				},
			},
		},
	}
}

// Volume is the cluster scoped PersistentVolume backing Claim.
type Volume struct {
	AppIdentity

	Capacity resource.Quantity
}

func VolumeOf(app domain.App) (Volume, error) {
	capacity, err := storageCapacity(app)
	if err != nil {
		return Volume{}, err
	}
	return Volume{AppIdentity: AppIdentity{App: app}, Capacity: capacity}, nil
}

var _ metasource.Extraer = Volume{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubecore.PersistentVolume] = Volume{}

func (v Volume) Component() string {
	return "storage"
}

func (v Volume) Instance() string {
	return PVName(v.App.Name)
}

func (v Volume) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	// PersistentVolume is cluster scoped.
	return metasource.ToObjectMeta(v, "")
}

func (v Volume) Build(conf *bconf.TugClusterConfig) *kubecore.PersistentVolume {
	return &kubecore.PersistentVolume{
		ObjectMeta: v.ObjectMeta(""),
		Spec: kubecore.PersistentVolumeSpec{
			Capacity: kubecore.ResourceList{
				kubecore.ResourceStorage: v.Capacity,
			},
			AccessModes:                   []kubecore.PersistentVolumeAccessMode{kubecore.ReadWriteOnce},
			PersistentVolumeReclaimPolicy: kubecore.PersistentVolumeReclaimRetain,
			StorageClassName:              storageClass,
			PersistentVolumeSource: kubecore.PersistentVolumeSource{
				Local: &kubecore.LocalVolumeSource{
					Path: "/data/" + v.App.Name,
				},
			},
			NodeAffinity: &kubecore.VolumeNodeAffinity{
				Required: &kubecore.NodeSelector{
					NodeSelectorTerms: []kubecore.NodeSelectorTerm{
						{
							MatchExpressions: []kubecore.NodeSelectorRequirement{
								{
									Key:      "kubernetes.io/hostname",
									Operator: kubecore.NodeSelectorOpExists,
								},
							},
						},
					},
				},
			},
		},
	}
}

func storageCapacity(app domain.App) (resource.Quantity, error) {
	expr := "1Gi"
	if s := app.Storage; s != nil && s.Size != "" {
		expr = s.Size
	}
	capacity, err := resource.ParseQuantity(expr)
	if err != nil {
		return resource.Quantity{}, fmt.Errorf(
			`malformed [app:%s]: storage quantity "%s": %w`, app.Name, expr, err,
		)
	}
	return capacity, nil
}

// Fence restricts ingress to app pods:
// only the ingress controller namespace and same-namespace pods
// may reach the app port.
type Fence struct {
	AppIdentity
}

func FenceOf(app domain.App) Fence {
	return Fence{AppIdentity: AppIdentity{App: app}}
}

var _ metasource.Extraer = Fence{}
var _ metasource.ResourceBuilder[*bconf.TugClusterConfig, *kubenetworking.NetworkPolicy] = Fence{}

func (f Fence) Component() string {
	return "netpol"
}

func (f Fence) Instance() string {
	return NetworkPolicyName(f.App.Name)
}

func (f Fence) ObjectMeta(namespace string) kubeapimeta.ObjectMeta {
	return metasource.ToObjectMeta(f, namespace)
}

func (f Fence) Build(conf *bconf.TugClusterConfig) *kubenetworking.NetworkPolicy {
	port := intstr.FromInt(AppPort)
	tcp := kubecore.ProtocolTCP

	return &kubenetworking.NetworkPolicy{
		ObjectMeta: f.ObjectMeta(f.App.Namespace),
		Spec: kubenetworking.NetworkPolicySpec{
			// both colors. pods of the idle slot stay reachable for validation.
			PodSelector: kubeapimeta.LabelSelector{
				MatchLabels: map[string]string{LabelApp: f.App.Name},
			},
			PolicyTypes: []kubenetworking.PolicyType{kubenetworking.PolicyTypeIngress},
			Ingress: []kubenetworking.NetworkPolicyIngressRule{
				{
					From: []kubenetworking.NetworkPolicyPeer{
						{
							NamespaceSelector: &kubeapimeta.LabelSelector{
								MatchLabels: map[string]string{
									"kubernetes.io/metadata.name": conf.Rollout().IngressNamespace(),
								},
							},
						},
						{
							PodSelector: &kubeapimeta.LabelSelector{},
						},
					},
					Ports: []kubenetworking.NetworkPolicyPort{
						{Protocol: &tcp, Port: &port},
					},
				},
			},
		},
	}
}

// GarbageOfSlot lists the residue a colored slot leaves behind when it
// is discarded, for the gc loop to destroy.
func GarbageOfSlot(app domain.App, color domain.Color) []domain.Garbage {
	return []domain.Garbage{
		{Namespace: app.Namespace, Kind: domain.GarbageDeployment, Name: DeploymentName(app.Name, color)},
		{Namespace: app.Namespace, Kind: domain.GarbageConfigMap, Name: ConfigMapName(app.Name, color)},
	}
}

// GarbageOfApp lists every cluster object of an app, slots and
// surroundings both, for deferred destruction when the app is deleted.
//
// PersistentVolume is cluster scoped and recorded without namespace.
func GarbageOfApp(app domain.App) []domain.Garbage {
	gs := append(GarbageOfSlot(app, domain.Blue), GarbageOfSlot(app, domain.Green)...)
	return append(
		gs,
		domain.Garbage{Namespace: app.Namespace, Kind: domain.GarbageIngress, Name: IngressName(app.Name)},
		domain.Garbage{Namespace: app.Namespace, Kind: domain.GarbageHPA, Name: HPAName(app.Name)},
		domain.Garbage{Namespace: app.Namespace, Kind: domain.GarbageService, Name: ServiceName(app.Name)},
		domain.Garbage{Namespace: app.Namespace, Kind: domain.GarbageNetworkPolicy, Name: NetworkPolicyName(app.Name)},
		domain.Garbage{Namespace: app.Namespace, Kind: domain.GarbagePVC, Name: PVCName(app.Name)},
		domain.Garbage{Kind: domain.GarbagePV, Name: PVName(app.Name)},
	)
}
