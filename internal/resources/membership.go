package resources

import (
	"fmt"
	"strings"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
)

// ErrNoNamespace is returned by MembershipString when the tenant has no
// namespace set. StatefulSet returns it unchanged; the reconciler checks the
// namespace itself and reports the NoNamespace error variant before any
// StatefulSet is built.
var ErrNoNamespace = fmt.Errorf("tenant has no namespace")

// MembershipString produces RUSTFS_VOLUMES: a space-joined, one-segment-per-pool
// description of every storage process and its volumes (spec §4.B, invariant
// I6). Pure: fully determined by (tenant, namespace, headless service name,
// pool name, servers, volumesPerServer, path).
func MembershipString(tenant *rustfsv1alpha1.Tenant) (string, error) {
	if tenant.Namespace == "" {
		return "", ErrNoNamespace
	}
	hl := HeadlessServiceName(tenant)
	segments := make([]string, 0, len(tenant.Spec.Pools))
	for _, pool := range tenant.Spec.Pools {
		segments = append(segments, poolMembershipSegment(tenant, &pool, hl))
	}
	return strings.Join(segments, " "), nil
}

func poolMembershipSegment(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, headlessService string) string {
	path := mountPath(tenant, pool)
	ssName := StatefulSetName(tenant, pool)
	volumesPerServer := pool.Persistence.VolumesPerServer
	if volumesPerServer < 1 {
		volumesPerServer = 1
	}
	return fmt.Sprintf(
		"http://%s-{0...%d}.%s.%s.svc.cluster.local:%d%s/rustfs{0...%d}",
		ssName, pool.Servers-1, headlessService, tenant.Namespace, config.IOContainerPort, path, volumesPerServer-1,
	)
}

// mountPath resolves the effective mount path prefix: pool.Persistence.Path
// if set, else tenant.Spec.MountPath as the tenant-wide default, else
// config.DefaultMountPath. Trailing slash stripped.
func mountPath(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) string {
	path := pool.Persistence.Path
	if path == "" {
		path = tenant.Spec.MountPath
	}
	if path == "" {
		path = config.DefaultMountPath
	}
	return strings.TrimSuffix(path, "/")
}
