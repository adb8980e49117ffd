package metasource

import (
	"github.com/taskflow-dev/tugboat/pkg/buildtime"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type SpecBuilder[C any, D any] interface {
	// Build k8s resource descriptor(s)
	Build(conf C) D
}

// tugboat component metadata which is deploied or placed in k8s cluster.
//
// ToLabels function converts MetaSource (and its Extras, if any) to k8s labels.
type MetaSource interface {
	// The name of application/resource.
	//
	// If there are many resources running a same app, they may have same `Name()`.
	//
	// For `ObjectMeta.Name`, USE `Instance()`, NOT THIS.
	//
	// This is set as a value of k8s label "app.kubernetes.io/name".
	//
	// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
	Name() string

	// This is set as a value of k8s label "app.kubernetes.io/instance"
	// AND ALSO `ObjectMeta.Name` .
	//
	// This will identify an instance from others sharing Name() and Component().
	//
	// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
	Instance() string

	// Where is this positioned in system archetecture.
	//
	// example: slot, config, frontdoor, ...
	//
	// This is set as a value of k8s label "app.kubernetes.io/component".
	//
	// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
	Component() string

	// Identifier of entity in tugboat object model.
	Id() string

	// type of "Id()"
	//
	// example: app, rollout, ...
	IdType() string

	// convert to ObjectMeta
	ObjectMeta(namespace string) kubeapimeta.ObjectMeta
}

type Extraer interface {

	// Extra labels.
	//
	// See document of `ToLabels` for more details.
	Extras() map[string]string
}

type ResourceBuilder[C any, D any] interface {
	MetaSource
	SpecBuilder[C, D]
}

// convert from MetaSource to k8s labels, including "recomended labels".
//
// https://kubernetes.io/docs/concepts/overview/working-with-objects/common-labels/
//
// # Recomended Labels:
//
// Recomended labels are generated like below.
//
// - "app.kubernetes.io/version"    : build version of the tugboat.
//
// - "app.kubernetes.io/part-of"    : "taskflow"
//
// - "app.kubernetes.io/managed-by" : "tugboat"
//
// - "app.kubernetes.io/component"  : s.Component()
//
// - "app.kubernetes.io/name"       : s.Name()
//
// - "app.kubernetes.io/instance"   : s.Instance()
//
// # Tugboat Labels:
//
// Tugboat specific labels are prefixed with "tugboat/" and kept flat,
// so pod selectors can pin single dimensions of an identity:
//
// - "tugboat/${s.IdType()}" : s.Id()
//
// - "tugboat/KEY"           : s.Extras()[KEY] (if any)
//
// CAPITALIZED `KEY` is a key in `s.Extras()`,
// only if `s` implements `interface { Extras() map[string]string }`
// (otherwize, they are not appeared).
//
// The Service of an app routes by patching exactly one of these flat
// dimensions ("tugboat/color"), which is why they are not namespaced
// by Name() here.
func ToLabels(s MetaSource) map[string]string {
	l := map[string]string{
		"app.kubernetes.io/version":    buildtime.VERSION(),
		"app.kubernetes.io/name":       s.Name(),
		"app.kubernetes.io/instance":   s.Instance(),
		"app.kubernetes.io/component":  s.Component(),
		"app.kubernetes.io/part-of":    "taskflow",
		"app.kubernetes.io/managed-by": "tugboat",

		// tugboat/ID_TYPE: ID  --  example: `tugboat/app: ping-api`
		"tugboat/" + s.IdType(): s.Id(),
	}

	if withEx, ok := s.(Extraer); ok {
		for k, v := range withEx.Extras() {
			l["tugboat/"+k] = v
		}
	}

	return l
}

// default (and reference) implimentation of MetaSource.ObjectMeta.
//
// For users:
//
// This is a helper function for MetaSource implimenter, not for users.
//
// When you using specific MetaSource implimentations,
// it is recommended that you use MetaSource.ObjectMeta methods, not this,
// to respect for each types.
func ToObjectMeta(m MetaSource, namespace string) kubeapimeta.ObjectMeta {
	labels := ToLabels(m)
	return kubeapimeta.ObjectMeta{
		Name:      m.Instance(),
		Namespace: namespace,
		Labels:    labels,
	}
}
