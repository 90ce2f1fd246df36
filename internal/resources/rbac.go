package resources

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
)

// ServiceAccount is the operator-managed default service account, created
// unless the tenant supplies its own (spec §4.G step 5, P7/P8).
func ServiceAccount(tenant *rustfsv1alpha1.Tenant) *corev1.ServiceAccount {
	owner := OwnerReference(tenant)
	return &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:            DefaultServiceAccountName(tenant),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
	}
}

// Role grants the storage processes the minimal permissions they need:
// read secrets, manage their own services, and observe tenants.
func Role(tenant *rustfsv1alpha1.Tenant) *rbacv1.Role {
	owner := OwnerReference(tenant)
	return &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{
			Name:            RoleName(tenant),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"secrets"},
				Verbs:     []string{"get", "list", "watch"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"services"},
				Verbs:     []string{"create", "delete", "get"},
			},
			{
				APIGroups: []string{rustfsv1alpha1.GroupVersion.Group},
				Resources: []string{"tenants"},
				Verbs:     []string{"get", "list", "watch"},
			},
		},
	}
}

// RoleBinding binds the effective service account (default or
// user-supplied) to Role.
func RoleBinding(tenant *rustfsv1alpha1.Tenant) *rbacv1.RoleBinding {
	owner := OwnerReference(tenant)
	return &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:            RoleBindingName(tenant),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     RoleName(tenant),
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      ServiceAccountName(tenant),
				Namespace: tenant.Namespace,
			},
		},
	}
}
