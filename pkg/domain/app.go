package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
)

// Env is the deployment environment an App belongs to.
type Env string

const (
	Production  Env = "production"
	Staging     Env = "staging"
	Development Env = "development"
)

func (e Env) String() string {
	return string(e)
}

func (e Env) IsKnown() bool {
	switch e {
	case Production, Staging, Development:
		return true
	default:
		return false
	}
}

var ErrUnknownEnv = errors.New("unknown env")

func AsEnv(s string) (Env, error) {
	e := Env(s)
	if e.IsKnown() {
		return e, nil
	}
	return e, fmt.Errorf(`%w: "%s"`, ErrUnknownEnv, s)
}

// Color identifies one of the two deployment slots of an App.
type Color string

const (
	Blue  Color = "blue"
	Green Color = "green"
)

func (c Color) String() string {
	return string(c)
}

// Other returns the opposite slot color.
func (c Color) Other() Color {
	if c == Blue {
		return Green
	}
	return Blue
}

func (c Color) IsKnown() bool {
	return c == Blue || c == Green
}

var ErrUnknownColor = errors.New("unknown color")

func AsColor(s string) (Color, error) {
	c := Color(s)
	if c.IsKnown() {
		return c, nil
	}
	return c, fmt.Errorf(`%w: "%s"`, ErrUnknownColor, s)
}

// Resources are container compute requests/limits,
// held as Kubernetes quantity expressions.
type Resources struct {
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

func DefaultResources() Resources {
	return Resources{
		CPURequest:    "100m",
		MemoryRequest: "128Mi",
		CPULimit:      "500m",
		MemoryLimit:   "512Mi",
	}
}

// Ingress declares how an App is exposed outside the cluster.
type Ingress struct {
	Host string

	// when true, a TLS secret named "<app>-tls" is referenced.
	TLS bool
}

func (i *Ingress) Equal(o *Ingress) bool {
	if (i == nil) || (o == nil) {
		return (i == nil) && (o == nil)
	}
	return *i == *o
}

// Storage declares the persistent volume an App requests.
type Storage struct {
	// Kubernetes quantity expression, e.g. "1Gi".
	Size string
}

func (s *Storage) Equal(o *Storage) bool {
	if (s == nil) || (o == nil) {
		return (s == nil) && (o == nil)
	}
	return *s == *o
}

// App is a containerized HTTP application under management.
type App struct {
	Name      string
	Env       Env
	Namespace string

	// total replicas of the live slot.
	Replicas int

	Resources Resources

	// nil when the app is not exposed via ingress.
	Ingress *Ingress

	// nil when the app requests no persistent volume.
	Storage *Storage

	// when true, monitoring stack config is provisioned for the app.
	Monitoring bool

	// slot currently receiving traffic.
	ActiveColor Color

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a App) Equal(o App) bool {
	return a.Name == o.Name &&
		a.Env == o.Env &&
		a.Namespace == o.Namespace &&
		a.Replicas == o.Replicas &&
		a.Resources == o.Resources &&
		a.Ingress.Equal(o.Ingress) &&
		a.Storage.Equal(o.Storage) &&
		a.Monitoring == o.Monitoring &&
		a.ActiveColor == o.ActiveColor
}

// parameter to query apps.
//
// When all dimension matches an app, this query matches the app.
type AppFindQuery struct {
	// match if app's name is one of these.
	//
	// If it is nil or empty, it means "match any".
	Name []string

	// match if app's env is one of these.
	//
	// If it is nil or empty, it means "match any".
	Env []Env
}

func (afq AppFindQuery) Equal(other AppFindQuery) bool {
	return cmp.SliceContentEq(afq.Name, other.Name) &&
		cmp.SliceContentEq(afq.Env, other.Env)
}
