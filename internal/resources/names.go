package resources

import (
	"fmt"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
)

// Fixed and derived child-object names (spec §6).

// IOServiceName is fixed across every tenant in a namespace.
func IOServiceName() string { return "rustfs" }

func ConsoleServiceName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-console", tenant.Name)
}

func HeadlessServiceName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-hl", tenant.Name)
}

func DefaultServiceAccountName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-sa", tenant.Name)
}

// ServiceAccountName resolves the effective service account name: the
// user-supplied one if set, else the operator's default.
func ServiceAccountName(tenant *rustfsv1alpha1.Tenant) string {
	if tenant.Spec.ServiceAccountName != "" {
		return tenant.Spec.ServiceAccountName
	}
	return DefaultServiceAccountName(tenant)
}

func RoleName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-role", tenant.Name)
}

func RoleBindingName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-role-binding", tenant.Name)
}

// StatefulSetName returns the {tenant}-{pool} name; also used to derive the
// pool suffix for orphan detection (§4.G step 7).
func StatefulSetName(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) string {
	return fmt.Sprintf("%s-%s", tenant.Name, pool.Name)
}

func PodDisruptionBudgetName(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) string {
	return StatefulSetName(tenant, pool)
}

func TLSSecretName(tenant *rustfsv1alpha1.Tenant) string {
	return fmt.Sprintf("%s-tls", tenant.Name)
}

func VolumeClaimTemplateName(i int32) string {
	return fmt.Sprintf("vol-%d", i)
}

// StatefulSetPoolSuffix extracts the pool name from a StatefulSet name owned
// by tenant, returning ok=false if the name does not have the expected
// "{tenant}-" prefix.
func StatefulSetPoolSuffix(tenant *rustfsv1alpha1.Tenant, statefulSetName string) (string, bool) {
	prefix := tenant.Name + "-"
	if len(statefulSetName) <= len(prefix) || statefulSetName[:len(prefix)] != prefix {
		return "", false
	}
	return statefulSetName[len(prefix):], true
}
