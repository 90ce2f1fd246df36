package resources

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
)

// IOService is the cluster-facing object-storage endpoint, fixed name
// "rustfs", fronting every pool of the tenant.
func IOService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	owner := OwnerReference(tenant)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:            IOServiceName(),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: TenantSelectorLabels(tenant),
			Ports: []corev1.ServicePort{
				{
					Name:       "http-rustfs",
					Port:       config.IOServicePort,
					TargetPort: intstr.FromInt(config.IOContainerPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

// ConsoleService exposes the storage system's web console.
func ConsoleService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	owner := OwnerReference(tenant)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:            ConsoleServiceName(tenant),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: TenantSelectorLabels(tenant),
			Ports: []corev1.ServicePort{
				{
					Name:       "http-console",
					Port:       config.ConsoleServicePort,
					TargetPort: intstr.FromInt(config.ConsoleServiceTargetPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

// HeadlessService backs the StatefulSet's stable per-pod DNS names used by
// the membership string.
func HeadlessService(tenant *rustfsv1alpha1.Tenant) *corev1.Service {
	owner := OwnerReference(tenant)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:            HeadlessServiceName(tenant),
			Namespace:       tenant.Namespace,
			Labels:          CommonLabels(tenant),
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: corev1.ServiceSpec{
			ClusterIP:                "None",
			PublishNotReadyAddresses: true,
			Selector:                 TenantSelectorLabels(tenant),
			Ports: []corev1.ServicePort{
				{
					Name:       "http-rustfs",
					Port:       config.HeadlessPort,
					TargetPort: intstr.FromInt(config.IOContainerPort),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}
