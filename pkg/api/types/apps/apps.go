package apps

import (
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

// Resources are container compute requests/limits as Kubernetes
// quantity expressions.
type Resources struct {
	CPURequest    string `json:"cpuRequest" yaml:"cpuRequest"`
	MemoryRequest string `json:"memoryRequest" yaml:"memoryRequest"`
	CPULimit      string `json:"cpuLimit" yaml:"cpuLimit"`
	MemoryLimit   string `json:"memoryLimit" yaml:"memoryLimit"`
}

func (r Resources) Equal(o Resources) bool {
	return r == o
}

type Ingress struct {
	Host string `json:"host" yaml:"host"`
	TLS  bool   `json:"tls,omitempty" yaml:"tls,omitempty"`
}

func (i *Ingress) Equal(o *Ingress) bool {
	if (i == nil) || (o == nil) {
		return (i == nil) && (o == nil)
	}
	return *i == *o
}

type Storage struct {
	Size string `json:"size" yaml:"size"`
}

func (s *Storage) Equal(o *Storage) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	return *s == *o
}

// Spec is what a user declares to register an app.
type Spec struct {
	Name      string `json:"name" yaml:"name"`
	Env       string `json:"env" yaml:"env"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Replicas  int    `json:"replicas" yaml:"replicas"`

	// nil means server defaults.
	Resources *Resources `json:"resources,omitempty" yaml:"resources,omitempty"`

	Ingress *Ingress `json:"ingress,omitempty" yaml:"ingress,omitempty"`
	Storage *Storage `json:"storage,omitempty" yaml:"storage,omitempty"`

	Monitoring bool `json:"monitoring,omitempty" yaml:"monitoring,omitempty"`
}

func (s Spec) Equal(o Spec) bool {
	resEq := (s.Resources == nil && o.Resources == nil) ||
		(s.Resources != nil && o.Resources != nil && s.Resources.Equal(*o.Resources))

	return s.Name == o.Name &&
		s.Env == o.Env &&
		s.Namespace == o.Namespace &&
		s.Replicas == o.Replicas &&
		resEq &&
		s.Ingress.Equal(o.Ingress) &&
		s.Storage.Equal(o.Storage) &&
		s.Monitoring == o.Monitoring
}

// Change is what a user may update on a registered app.
// nil fields are left as they are.
type Change struct {
	Replicas   *int       `json:"replicas,omitempty" yaml:"replicas,omitempty"`
	Resources  *Resources `json:"resources,omitempty" yaml:"resources,omitempty"`
	Ingress    *Ingress   `json:"ingress,omitempty" yaml:"ingress,omitempty"`
	Monitoring *bool      `json:"monitoring,omitempty" yaml:"monitoring,omitempty"`
}

func (c Change) Equal(o Change) bool {
	replicasEq := (c.Replicas == nil && o.Replicas == nil) ||
		(c.Replicas != nil && o.Replicas != nil && *c.Replicas == *o.Replicas)
	resEq := (c.Resources == nil && o.Resources == nil) ||
		(c.Resources != nil && o.Resources != nil && c.Resources.Equal(*o.Resources))
	monEq := (c.Monitoring == nil && o.Monitoring == nil) ||
		(c.Monitoring != nil && o.Monitoring != nil && *c.Monitoring == *o.Monitoring)

	return replicasEq && resEq && c.Ingress.Equal(o.Ingress) && monEq
}

type Detail struct {
	Name      string `json:"name"`
	Env       string `json:"env"`
	Namespace string `json:"namespace"`
	Replicas  int    `json:"replicas"`

	Resources Resources `json:"resources"`
	Ingress   *Ingress  `json:"ingress,omitempty"`
	Storage   *Storage  `json:"storage,omitempty"`

	Monitoring bool `json:"monitoring"`

	// slot currently receiving traffic, "blue" or "green".
	ActiveColor string `json:"activeColor"`

	CreatedAt rfctime.RFC3339 `json:"createdAt"`
	UpdatedAt rfctime.RFC3339 `json:"updatedAt"`
}

func (d Detail) Equal(o Detail) bool {
	return d.Name == o.Name &&
		d.Env == o.Env &&
		d.Namespace == o.Namespace &&
		d.Replicas == o.Replicas &&
		d.Resources.Equal(o.Resources) &&
		d.Ingress.Equal(o.Ingress) &&
		d.Storage.Equal(o.Storage) &&
		d.Monitoring == o.Monitoring &&
		d.ActiveColor == o.ActiveColor &&
		d.CreatedAt.Equal(o.CreatedAt) &&
		d.UpdatedAt.Equal(o.UpdatedAt)
}
