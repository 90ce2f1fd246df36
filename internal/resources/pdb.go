package resources

import (
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
)

// PodDisruptionBudget derives the optional per-pool PDB with maxUnavailable=1
// (spec §3).
func PodDisruptionBudget(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) *policyv1.PodDisruptionBudget {
	maxUnavailable := intstr.FromInt(1)
	owner := OwnerReference(tenant)
	return &policyv1.PodDisruptionBudget{
		ObjectMeta: metav1.ObjectMeta{
			Name:            PodDisruptionBudgetName(tenant, pool),
			Namespace:       tenant.Namespace,
			Labels:          PoolLabels(tenant, pool),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: policyv1.PodDisruptionBudgetSpec{
			MaxUnavailable: &maxUnavailable,
			Selector:       &metav1.LabelSelector{MatchLabels: PoolSelectorLabels(tenant, pool)},
		},
	}
}
