package resources

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/rustfserr"
)

const containerName = "rustfs"

var securityContextRunAsID = int64(10001)

// minPoolCapacity is the storage-system minimum: a pool must provision at
// least this many volumes across all of its servers (spec §3, §6).
const minPoolCapacity = 4

// ValidatePoolSize enforces servers * persistence.volumesPerServer >= 4
// (spec §3's "storage-system minimum", testable property B1). The CRD schema
// carries the same rule as a CEL x-kubernetes-validations check (cmd/operator
// crd.go); this is the controller-side enforcement of it.
func ValidatePoolSize(pool *rustfsv1alpha1.Pool) error {
	if pool.Servers*pool.Persistence.VolumesPerServer < minPoolCapacity {
		return rustfserr.PoolSizeInvalid(pool.Name, pool.Servers, pool.Persistence.VolumesPerServer)
	}
	return nil
}

// StatefulSet derives the desired StatefulSet for one pool. It is pure: it
// never reads cluster state and never mutates an existing object — the
// reconciler writes the result with server-side apply, after the diff
// validator has checked it against the existing object's immutable fields
// (§4.D).
func StatefulSet(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) (*appsv1.StatefulSet, error) {
	if err := ValidatePoolSize(pool); err != nil {
		return nil, err
	}

	membership, err := MembershipString(tenant)
	if err != nil {
		return nil, err
	}

	replicas := pool.Servers
	podManagementPolicy := appsv1.ParallelPodManagement
	if tenant.Spec.PodManagementPolicy != "" {
		podManagementPolicy = appsv1.PodManagementPolicyType(tenant.Spec.PodManagementPolicy)
	}

	selector := PoolSelectorLabels(tenant, pool)
	podLabels := PoolLabels(tenant, pool)

	container, err := buildContainer(tenant, pool, membership)
	if err != nil {
		return nil, err
	}

	volumeClaimTemplates, err := buildVolumeClaimTemplates(tenant, pool)
	if err != nil {
		return nil, err
	}

	priorityClassName := tenant.Spec.PriorityClassName
	if pool.Scheduling.PriorityClassName != "" {
		priorityClassName = pool.Scheduling.PriorityClassName
	}

	podSpec := corev1.PodSpec{
		ServiceAccountName:        ServiceAccountName(tenant),
		SchedulerName:             tenant.Spec.SchedulerName,
		PriorityClassName:         priorityClassName,
		NodeSelector:              pool.Scheduling.NodeSelector,
		Affinity:                  pool.Scheduling.Affinity,
		Tolerations:               pool.Scheduling.Tolerations,
		TopologySpreadConstraints: pool.Scheduling.TopologySpreadConstraints,
		SecurityContext:           podSecurityContext(),
		Containers:                []corev1.Container{container},
		Volumes: []corev1.Volume{
			{
				Name:         "logs",
				VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
			},
		},
	}

	if tenant.Spec.ImagePullSecret != "" {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: tenant.Spec.ImagePullSecret}}
	}

	if tenant.Spec.RequestAutoCert {
		podSpec.Volumes = append(podSpec.Volumes, corev1.Volume{
			Name: "rustfs-tls",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: TLSSecretName(tenant)},
			},
		})
	}

	owner := OwnerReference(tenant)
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:            StatefulSetName(tenant, pool),
			Namespace:       tenant.Namespace,
			Labels:          podLabels,
			OwnerReferences: []metav1.OwnerReference{owner},
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:             &replicas,
			ServiceName:          HeadlessServiceName(tenant),
			PodManagementPolicy:  podManagementPolicy,
			Selector:             &metav1.LabelSelector{MatchLabels: selector},
			VolumeClaimTemplates: volumeClaimTemplates,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec:       podSpec,
			},
		},
	}, nil
}

func podSecurityContext() *corev1.PodSecurityContext {
	changePolicy := corev1.FSGroupChangeOnRootMismatch
	return &corev1.PodSecurityContext{
		RunAsUser:           &securityContextRunAsID,
		RunAsGroup:          &securityContextRunAsID,
		FSGroup:             &securityContextRunAsID,
		FSGroupChangePolicy: &changePolicy,
	}
}

func buildContainer(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, membership string) (corev1.Container, error) {
	env := []corev1.EnvVar{
		{Name: "RUSTFS_VOLUMES", Value: membership},
		{Name: "RUSTFS_ADDRESS", Value: fmt.Sprintf("0.0.0.0:%d", config.IOContainerPort)},
		{Name: "RUSTFS_CONSOLE_ADDRESS", Value: fmt.Sprintf("0.0.0.0:%d", config.ConsoleContainerPort)},
		{Name: "RUSTFS_CONSOLE_ENABLE", Value: "true"},
	}

	if tenant.Spec.CredsSecret != nil && tenant.Spec.CredsSecret.Name != "" {
		env = append(env,
			corev1.EnvVar{
				Name: "RUSTFS_ACCESS_KEY",
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: tenant.Spec.CredsSecret.Name},
						Key:                  "accesskey",
					},
				},
			},
			corev1.EnvVar{
				Name: "RUSTFS_SECRET_KEY",
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: corev1.LocalObjectReference{Name: tenant.Spec.CredsSecret.Name},
						Key:                  "secretkey",
					},
				},
			},
		)
	}

	if tenant.Spec.RequestAutoCert {
		env = append(env,
			corev1.EnvVar{Name: "RUSTFS_TLS_CERT", Value: "/etc/rustfs-tls/tls.crt"},
			corev1.EnvVar{Name: "RUSTFS_TLS_KEY", Value: "/etc/rustfs-tls/tls.key"},
		)
	}

	// User-supplied entries shadow operator-managed ones by name.
	env = mergeEnvByName(env, tenant.Spec.Env)

	volumeMounts, err := buildVolumeMounts(tenant, pool)
	if err != nil {
		return corev1.Container{}, err
	}

	container := corev1.Container{
		Name:            containerName,
		Image:           tenant.Spec.Image,
		ImagePullPolicy: tenant.Spec.ImagePullPolicy,
		Env:             env,
		Ports: []corev1.ContainerPort{
			{Name: "http", ContainerPort: config.IOContainerPort, Protocol: corev1.ProtocolTCP},
			{Name: "console", ContainerPort: config.ConsoleContainerPort, Protocol: corev1.ProtocolTCP},
		},
		VolumeMounts: volumeMounts,
		Resources:    pool.Scheduling.Resources,
		Lifecycle:    tenant.Spec.Lifecycle,
		LivenessProbe:  tenant.Spec.Liveness,
		ReadinessProbe: tenant.Spec.Readiness,
		StartupProbe:   tenant.Spec.Startup,
	}

	if tenant.Spec.RequestAutoCert {
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      "rustfs-tls",
			MountPath: "/etc/rustfs-tls",
			ReadOnly:  true,
		})
	}

	return container, nil
}

// mergeEnvByName returns base with each entry in overrides either replacing
// the base entry of the same name (in place) or appended, preserving the
// override-caller's stated order for new entries.
func mergeEnvByName(base, overrides []corev1.EnvVar) []corev1.EnvVar {
	index := make(map[string]int, len(base))
	for i, e := range base {
		index[e.Name] = i
	}
	for _, o := range overrides {
		if i, ok := index[o.Name]; ok {
			base[i] = o
			continue
		}
		index[o.Name] = len(base)
		base = append(base, o)
	}
	return base
}

func buildVolumeMounts(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) ([]corev1.VolumeMount, error) {
	n := pool.Persistence.VolumesPerServer
	if n < 1 {
		return nil, fmt.Errorf("pool %q: volumesPerServer must be >= 1", pool.Name)
	}
	path := mountPath(tenant, pool)
	mounts := make([]corev1.VolumeMount, 0, n+1)
	for i := int32(0); i < n; i++ {
		mounts = append(mounts, corev1.VolumeMount{
			Name:      VolumeClaimTemplateName(i),
			MountPath: fmt.Sprintf("%s/rustfs%d", path, i),
		})
	}
	mounts = append(mounts, corev1.VolumeMount{Name: "logs", MountPath: "/logs"})
	return mounts, nil
}

func buildVolumeClaimTemplates(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) ([]corev1.PersistentVolumeClaim, error) {
	n := pool.Persistence.VolumesPerServer
	if n < 1 {
		return nil, fmt.Errorf("pool %q: volumesPerServer must be >= 1", pool.Name)
	}
	var template corev1.PersistentVolumeClaimSpec
	if pool.Persistence.VolumeClaimTemplate != nil {
		template = *pool.Persistence.VolumeClaimTemplate.DeepCopy()
	} else {
		template = corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		}
	}

	templates := make([]corev1.PersistentVolumeClaim, 0, n)
	for i := int32(0); i < n; i++ {
		templates = append(templates, corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{
				Name:        VolumeClaimTemplateName(i),
				Labels:      pool.Persistence.Labels,
				Annotations: pool.Persistence.Annotations,
			},
			Spec: *template.DeepCopy(),
		})
	}
	return templates, nil
}
