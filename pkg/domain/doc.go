package domain

// domain package contains the Domain Models and Interfaces for the Tugboat application.
//
// `domain/tugboat` package exposes root object for the Tugboat application.
// Entrypoints of applications should instantiate the Tugboat object and use it to interact with the domain.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/app.go` contains the `App` entity.
//
// `domain/ENTITY` directory contains the "phisical" representation of the domain entities, the RDB or Kubernetes(k8s).
// For example, `domain/rollout/db` contains the database expression of the rollout entity described in `domain/rollout.go`,
// and `domain/rollout/k8s` contains the Kubernetes expression of.
//
// `domain/ENTITY/interface.go` exposes the client interface to handle the domain entity in DB/k8s.
//
// # Entities
//
// Core entities in the domain are:
//
// - `app`: A containerized HTTP application under management.
// In K8s, an App owns two Deployment "slots" (blue and green), a Service routing
// traffic to exactly one of them, and surrounding objects (HPA, Ingress, volumes).
// Which slot is live is recorded as the App's active color.
//
// - `release`: Immutable desired state cut from an App: container image, runtime
// config, delivery strategy (blue-green, canary or rolling) and validation gates.
// Releases are never modified after creation; deploying one means creating a rollout.
//
// - `rollout`: Execution of a release and the record of the execution.
// Once created it is advanced step by step in "loops": the idle slot is provisioned,
// validated against gates, traffic is shifted, the old slot drained. Failures move
// the rollout into rollback. Every status change is recorded with a timestamp.
//
// And others:
//
// - `validation`: Gate engine checking cluster health, slot readiness, endpoints,
// HTTP performance, resource headroom, spec compliance, image scan findings and
// canary metrics deltas against thresholds.
//
// - `monitoring`: Renders Prometheus/Grafana configuration for an App into
// ConfigMaps in the monitoring namespace.
//
// - `garbage`: Records cluster objects left behind by discarded slots, so the
// "gc loop" can destroy them later.
//
// - `keychain`: Manages signkeys for JWT based on K8s secret. This is used to
// sign lifecycle hook requests sent by the loops.
//
// - `loop`: Manages recurring tasks. This defines constants for each loop.
// Implementation of the loop is in `cmd/loops/tasks/` directory.
