package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodDeletionPolicy controls how the stuck-pod sub-controller reacts to pods
// stuck terminating on a node that has gone unreachable.
type PodDeletionPolicy string

const (
	PodDeletionPolicyDoNothing                      PodDeletionPolicy = "DoNothing"
	PodDeletionPolicyDelete                          PodDeletionPolicy = "Delete"
	PodDeletionPolicyForceDelete                     PodDeletionPolicy = "ForceDelete"
	PodDeletionPolicyDeleteStatefulSetPod            PodDeletionPolicy = "DeleteStatefulSetPod"
	PodDeletionPolicyDeleteDeploymentPod             PodDeletionPolicy = "DeleteDeploymentPod"
	PodDeletionPolicyDeleteBothStatefulSetAndDeploy  PodDeletionPolicy = "DeleteBothStatefulSetAndDeploymentPod"
)

// SecretReference is a reference to a Secret in the Tenant's namespace.
type SecretReference struct {
	Name string `json:"name,omitempty"`
}

// SchedulingSpec holds the scheduling overrides that may be set per-pool.
type SchedulingSpec struct {
	// +optional
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`
	// +optional
	Affinity *corev1.Affinity `json:"affinity,omitempty"`
	// +optional
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`
	// +optional
	TopologySpreadConstraints []corev1.TopologySpreadConstraint `json:"topologySpreadConstraints,omitempty"`
	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`
	// PriorityClassName overrides the tenant-level priorityClassName for this pool.
	// +optional
	PriorityClassName string `json:"priorityClassName,omitempty"`
}

// PersistenceSpec describes the per-server volume layout of a pool.
type PersistenceSpec struct {
	// VolumesPerServer is the number of PersistentVolumeClaims mounted on each
	// server pod. Immutable once the pool has been observed by the controller.
	// +kubebuilder:validation:Minimum=1
	VolumesPerServer int32 `json:"volumesPerServer"`
	// +optional
	VolumeClaimTemplate *corev1.PersistentVolumeClaimSpec `json:"volumeClaimTemplate,omitempty"`
	// Path is the mount path prefix under which each volume is mounted, e.g.
	// "{path}/rustfs{i}". Defaults to the tenant's spec.mountPath, or "/data"
	// if that is also unset.
	// +optional
	Path string `json:"path,omitempty"`
	// +optional
	Labels map[string]string `json:"labels,omitempty"`
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Pool is a group of storage servers sharing a StatefulSet and volume layout.
type Pool struct {
	// Name is immutable once the pool has been observed by the controller.
	// Renaming a pool is not supported: a StatefulSet owned by the tenant whose
	// pool name no longer appears in spec.pools is reported as an
	// ImmutableFieldModified error, and is never deleted.
	Name string `json:"name"`
	// +kubebuilder:validation:Minimum=1
	Servers int32 `json:"servers"`
	// +optional
	Persistence PersistenceSpec `json:"persistence,omitempty"`
	// +optional
	Scheduling SchedulingSpec `json:"scheduling,omitempty"`
}

// TenantSpec is the desired state of a storage cluster.
type TenantSpec struct {
	// Pools is a non-empty, ordered list of storage pools. Pool names must be
	// unique within a Tenant.
	// +kubebuilder:validation:MinItems=1
	Pools []Pool `json:"pools"`

	// +optional
	Image string `json:"image,omitempty"`
	// +optional
	ImagePullPolicy corev1.PullPolicy `json:"imagePullPolicy,omitempty"`
	// +optional
	ImagePullSecret string `json:"imagePullSecret,omitempty"`
	// +optional
	PodManagementPolicy appsv1PodManagementPolicy `json:"podManagementPolicy,omitempty"`
	// +optional
	SchedulerName string `json:"schedulerName,omitempty"`
	// +optional
	PriorityClassName string `json:"priorityClassName,omitempty"`
	// MountPath is the tenant-wide default volume mount path prefix for pools
	// that omit persistence.path. Falls back to "/data" if neither is set.
	// +optional
	MountPath string `json:"mountPath,omitempty"`

	// Env entries the user supplies; these override operator-managed entries
	// of the same name.
	// +optional
	Env []corev1.EnvVar `json:"env,omitempty"`

	// +optional
	CredsSecret *SecretReference `json:"credsSecret,omitempty"`

	// +optional
	ServiceAccountName string `json:"serviceAccountName,omitempty"`
	// +optional
	CreateServiceAccountRBAC bool `json:"createServiceAccountRbac,omitempty"`

	// +kubebuilder:default=DoNothing
	// +optional
	PodDeletionPolicyWhenNodeIsDown PodDeletionPolicy `json:"podDeletionPolicyWhenNodeIsDown,omitempty"`

	// +optional
	RequestAutoCert bool `json:"requestAutoCert,omitempty"`
	// +optional
	Liveness *corev1.Probe `json:"liveness,omitempty"`
	// +optional
	Readiness *corev1.Probe `json:"readiness,omitempty"`
	// +optional
	Startup *corev1.Probe `json:"startup,omitempty"`
	// +optional
	Lifecycle *corev1.Lifecycle `json:"lifecycle,omitempty"`
}

// appsv1PodManagementPolicy avoids importing appsv1 just for the string type
// alias while keeping the JSON shape identical to apps/v1's PodManagementPolicyType.
type appsv1PodManagementPolicy string

// PoolState classifies the rollout state of a single pool.
type PoolState string

const (
	PoolStateNotCreated      PoolState = "NotCreated"
	PoolStateInitialized     PoolState = "Initialized"
	PoolStateUpdating        PoolState = "Updating"
	PoolStateRolloutComplete PoolState = "RolloutComplete"
	PoolStateDegraded        PoolState = "Degraded"
	PoolStateRolloutFailed   PoolState = "RolloutFailed"
)

// PoolStatus is the observed state of a single pool's StatefulSet.
type PoolStatus struct {
	Name   string    `json:"name"`
	SSName string    `json:"ssName"`
	State  PoolState `json:"state"`
	// DesiredReplicas is the pool's desired server count: the StatefulSet's
	// spec.replicas when set, otherwise spec.pools[].servers. It is the
	// denominator for the tenant-level Ready condition (spec §4.E).
	DesiredReplicas int32 `json:"desiredReplicas,omitempty"`
	Replicas        int32 `json:"replicas"`
	ReadyReplicas   int32 `json:"readyReplicas"`
	CurrentReplicas int32 `json:"currentReplicas"`
	UpdatedReplicas int32 `json:"updatedReplicas"`
	// +optional
	CurrentRevision string `json:"currentRevision,omitempty"`
	// +optional
	UpdateRevision string `json:"updateRevision,omitempty"`
	// +optional
	LastUpdateTime *metav1.Time `json:"lastUpdateTime,omitempty"`
}

// Condition type strings used on Tenant.status.conditions.
const (
	TenantConditionReady       = "Ready"
	TenantConditionProgressing = "Progressing"
	TenantConditionDegraded    = "Degraded"
)

// Coarse tenant-level state summaries.
const (
	TenantStateReady    = "Ready"
	TenantStateUpdating = "Updating"
	TenantStateDegraded = "Degraded"
	TenantStateNotReady = "NotReady"
)

// TenantStatus is the observed state of a Tenant.
type TenantStatus struct {
	// +optional
	CurrentState string `json:"currentState,omitempty"`
	// +optional
	AvailableReplicas int32 `json:"availableReplicas,omitempty"`
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Pools []PoolStatus `json:"pools,omitempty"`
	// +optional
	// +patchMergeKey=type
	// +patchStrategy=merge
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
}

// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:resource:path=tenants,scope=Namespaced,shortName=tenant
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="State",type="string",JSONPath=".status.currentState"
// +kubebuilder:printcolumn:name="Status",type="string",JSONPath=".status.conditions[?(@.type==\"Ready\")].status"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// Tenant declares the desired deployment of a distributed object-storage
// cluster. The operator reconciles child Services, StatefulSets and RBAC
// objects to match; it does not create PodDisruptionBudgets.
type Tenant struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec TenantSpec `json:"spec,omitempty"`
	// +optional
	Status TenantStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// TenantList is a list of Tenant.
type TenantList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []Tenant `json:"items"`
}
