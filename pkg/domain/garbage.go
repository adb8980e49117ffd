package domain

import (
	"errors"
	"fmt"
)

// GarbageKind is the kind of a cluster object recorded as garbage.
type GarbageKind string

const (
	GarbageDeployment    GarbageKind = "deployment"
	GarbageConfigMap     GarbageKind = "configmap"
	GarbageService       GarbageKind = "service"
	GarbageHPA           GarbageKind = "hpa"
	GarbageIngress       GarbageKind = "ingress"
	GarbageNetworkPolicy GarbageKind = "netpol"
	GarbagePVC           GarbageKind = "pvc"
	GarbagePV            GarbageKind = "pv"
)

func (gk GarbageKind) String() string {
	return string(gk)
}

func (gk GarbageKind) IsKnown() bool {
	switch gk {
	case GarbageDeployment, GarbageConfigMap, GarbageService,
		GarbageHPA, GarbageIngress, GarbageNetworkPolicy, GarbagePVC, GarbagePV:
		return true
	default:
		return false
	}
}

var ErrUnknownGarbageKind = errors.New("unknown garbage kind")

func AsGarbageKind(s string) (GarbageKind, error) {
	gk := GarbageKind(s)
	if gk.IsKnown() {
		return gk, nil
	}
	return gk, fmt.Errorf(`%w: "%s"`, ErrUnknownGarbageKind, s)
}

// Garbage is one cluster object left behind by a discarded slot or app,
// to be destroyed by the gc loop.
type Garbage struct {
	Namespace string
	Kind      GarbageKind
	Name      string
}

func (g Garbage) Equal(o Garbage) bool {
	return g == o
}
