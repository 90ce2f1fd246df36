// Package resources contains the pure, side-effect-free resource factory:
// given a Tenant (and, where relevant, a Pool), it derives the desired
// Service/StatefulSet/ServiceAccount/Role/RoleBinding/PodDisruptionBudget
// objects. Nothing here touches the Kubernetes API.
package resources

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
)

// CommonLabels are applied to every child object of a tenant.
func CommonLabels(tenant *rustfsv1alpha1.Tenant) map[string]string {
	return map[string]string{
		config.LabelK8sName:      config.LabelName,
		config.LabelK8sInstance:  tenant.Name,
		config.LabelK8sManagedBy: config.OperatorName,
		config.LabelTenant:       tenant.Name,
	}
}

// PoolLabels are CommonLabels plus the pool-scoped additions.
func PoolLabels(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) map[string]string {
	l := CommonLabels(tenant)
	l[config.LabelPool] = pool.Name
	l[config.LabelK8sComponent] = config.ComponentStorage
	return l
}

// TenantSelectorLabels is the stable selector subset used by Services that
// front every pool (the IO and headless services).
func TenantSelectorLabels(tenant *rustfsv1alpha1.Tenant) map[string]string {
	return map[string]string{
		config.LabelTenant: tenant.Name,
	}
}

// PoolSelectorLabels is the stable selector subset for a single pool's
// StatefulSet. Selectors must never include volatile labels.
func PoolSelectorLabels(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) map[string]string {
	return map[string]string{
		config.LabelTenant: tenant.Name,
		config.LabelPool:   pool.Name,
	}
}

// OwnerReference returns the controller ownerReference every child object of
// tenant must carry (invariant I1).
func OwnerReference(tenant *rustfsv1alpha1.Tenant) metav1.OwnerReference {
	controller := true
	blockDeletion := true
	return metav1.OwnerReference{
		APIVersion:         rustfsv1alpha1.GroupVersion.String(),
		Kind:               "Tenant",
		Name:               tenant.Name,
		UID:                tenant.UID,
		Controller:         &controller,
		BlockOwnerDeletion: &blockDeletion,
	}
}
