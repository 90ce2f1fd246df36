// Package config holds operator-wide constants shared across packages.
package config

import "time"

const (
	// OperatorName identifies this controller as an event source and as the
	// field manager for server-side apply writes.
	OperatorName = "rustfs-operator"

	// FieldManager is the field manager name used on every apply request.
	FieldManager = OperatorName

	// LabelName is the fixed value of app.kubernetes.io/name on every child.
	LabelName = "rustfs"
)

// Requeue delays per the error-policy table (spec §4.H).
const (
	RequeueTransient     = 5 * time.Second
	RequeueUserFixable    = 60 * time.Second
	RequeueInternalError = 15 * time.Second
	RequeuePoolUpdating  = 10 * time.Second
)

// Label keys used across the resource factory, diff validator and status builder.
const (
	LabelK8sName      = "app.kubernetes.io/name"
	LabelK8sInstance  = "app.kubernetes.io/instance"
	LabelK8sManagedBy = "app.kubernetes.io/managed-by"
	LabelK8sComponent = "app.kubernetes.io/component"
	LabelTenant       = "rustfs.tenant"
	LabelPool         = "rustfs.pool"

	ComponentStorage = "storage"
)

// Ports used by the storage container and its services (spec §3, §4.A, §9
// open question: container listens on 9001 for console; the console Service
// forwards port 9090 to targetPort 9090 per the spec's explicit resolution).
const (
	IOContainerPort = 9000
	IOServicePort   = 90

	ConsoleContainerPort   = 9001
	ConsoleServicePort     = 9090
	ConsoleServiceTargetPort = 9090

	HeadlessPort = 9000
)

// Default mount path when neither Pool.Persistence.Path nor the tenant's
// spec.mountPath is set.
const DefaultMountPath = "/data"

// Name suffixes/fixed names for derived child objects (spec §6).
const (
	IOServiceName = "rustfs"
)
