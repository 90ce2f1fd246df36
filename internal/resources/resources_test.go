package resources

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/rustfserr"
)

func testTenant() *rustfsv1alpha1.Tenant {
	return &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "cluster1",
			Namespace: "storage",
			UID:       types.UID("abc-123"),
		},
		Spec: rustfsv1alpha1.TenantSpec{
			Image: "rustfs/rustfs:v1",
			Pools: []rustfsv1alpha1.Pool{
				{
					Name:    "pool-0",
					Servers: 4,
					Persistence: rustfsv1alpha1.PersistenceSpec{
						VolumesPerServer: 2,
					},
				},
			},
		},
	}
}

// P1: every child object carries a controller ownerReference to the tenant.
func TestOwnerReferenceIsController(t *testing.T) {
	tenant := testTenant()
	owner := OwnerReference(tenant)

	assert.Equal(t, tenant.Name, owner.Name)
	assert.Equal(t, tenant.UID, owner.UID)
	require.NotNil(t, owner.Controller)
	assert.True(t, *owner.Controller)
	require.NotNil(t, owner.BlockOwnerDeletion)
	assert.True(t, *owner.BlockOwnerDeletion)
}

// P2: StatefulSet selector matches its own pod template labels.
func TestStatefulSetSelectorMatchesPodLabels(t *testing.T) {
	tenant := testTenant()
	pool := &tenant.Spec.Pools[0]

	sts, err := StatefulSet(tenant, pool)
	require.NoError(t, err)

	for k, v := range sts.Spec.Selector.MatchLabels {
		assert.Equal(t, v, sts.Spec.Template.Labels[k])
	}
}

// P3: serviceName references the headless service, and volumeClaimTemplates
// has one entry per configured volumesPerServer.
func TestStatefulSetServiceNameAndVolumeClaimTemplateCount(t *testing.T) {
	tenant := testTenant()
	pool := &tenant.Spec.Pools[0]

	sts, err := StatefulSet(tenant, pool)
	require.NoError(t, err)

	assert.Equal(t, HeadlessServiceName(tenant), sts.Spec.ServiceName)
	assert.Len(t, sts.Spec.VolumeClaimTemplates, int(pool.Persistence.VolumesPerServer))
}

// P4: each configured volume gets its own mount, one per VolumesPerServer,
// plus the logs mount.
func TestVolumeMountsCoverEveryVolume(t *testing.T) {
	tenant := testTenant()
	pool := &tenant.Spec.Pools[0]

	sts, err := StatefulSet(tenant, pool)
	require.NoError(t, err)

	mounts := sts.Spec.Template.Spec.Containers[0].VolumeMounts
	assert.Len(t, mounts, int(pool.Persistence.VolumesPerServer)+1)
	for i := int32(0); i < pool.Persistence.VolumesPerServer; i++ {
		expected := fmt.Sprintf("/data/rustfs%d", i)
		found := false
		for _, m := range mounts {
			if m.MountPath == expected {
				found = true
			}
		}
		assert.True(t, found, "expected a mount at %s", expected)
	}
}

// P5: RUSTFS_VOLUMES is present in the container env and contains every
// pool's StatefulSet name.
func TestMembershipEnvVarPresent(t *testing.T) {
	tenant := testTenant()
	tenant.Spec.Pools = append(tenant.Spec.Pools, rustfsv1alpha1.Pool{
		Name:        "pool-1",
		Servers:     2,
		Persistence: rustfsv1alpha1.PersistenceSpec{VolumesPerServer: 1},
	})

	sts, err := StatefulSet(tenant, &tenant.Spec.Pools[0])
	require.NoError(t, err)

	var membership string
	for _, e := range sts.Spec.Template.Spec.Containers[0].Env {
		if e.Name == "RUSTFS_VOLUMES" {
			membership = e.Value
		}
	}
	require.NotEmpty(t, membership)
	for _, pool := range tenant.Spec.Pools {
		assert.Contains(t, membership, StatefulSetName(tenant, &pool))
	}
}

// spec.mountPath is a tenant-wide default for pools that omit persistence.path.
func TestTenantMountPathDefaultsPoolPath(t *testing.T) {
	tenant := testTenant()
	tenant.Spec.MountPath = "/mnt/rustfs"
	pool := &tenant.Spec.Pools[0]

	sts, err := StatefulSet(tenant, pool)
	require.NoError(t, err)

	mounts := sts.Spec.Template.Spec.Containers[0].VolumeMounts
	found := false
	for _, m := range mounts {
		if m.MountPath == "/mnt/rustfs/rustfs0" {
			found = true
		}
	}
	assert.True(t, found, "expected pool volume mounts to honor tenant-wide spec.mountPath")

	membership, err := MembershipString(tenant)
	require.NoError(t, err)
	assert.Contains(t, membership, "/mnt/rustfs/rustfs")

	// An explicit per-pool path still takes precedence.
	pool.Persistence.Path = "/custom"
	sts, err = StatefulSet(tenant, pool)
	require.NoError(t, err)
	mounts = sts.Spec.Template.Spec.Containers[0].VolumeMounts
	found = false
	for _, m := range mounts {
		if m.MountPath == "/custom/rustfs0" {
			found = true
		}
	}
	assert.True(t, found, "pool-level persistence.path must take precedence over tenant-wide spec.mountPath")
}

func TestMembershipStringRequiresNamespace(t *testing.T) {
	tenant := testTenant()
	tenant.Namespace = ""

	_, err := MembershipString(tenant)
	assert.ErrorIs(t, err, ErrNoNamespace)
}

// User-supplied env entries of the same name shadow operator-managed ones,
// without duplicating the entry.
func TestUserEnvShadowsOperatorEnv(t *testing.T) {
	tenant := testTenant()
	tenant.Spec.Env = []corev1.EnvVar{{Name: "RUSTFS_CONSOLE_ENABLE", Value: "false"}}

	sts, err := StatefulSet(tenant, &tenant.Spec.Pools[0])
	require.NoError(t, err)

	env := sts.Spec.Template.Spec.Containers[0].Env
	count := 0
	var value string
	for _, e := range env {
		if e.Name == "RUSTFS_CONSOLE_ENABLE" {
			count++
			value = e.Value
		}
	}
	assert.Equal(t, 1, count, "operator-managed env entry must be replaced, not duplicated")
	assert.Equal(t, "false", value)
}

// ServiceAccountName resolution: defaults to "{tenant}-sa" unless the user
// supplies their own (P7/P8).
func TestServiceAccountNameResolution(t *testing.T) {
	tenant := testTenant()
	assert.Equal(t, "cluster1-sa", ServiceAccountName(tenant))

	tenant.Spec.ServiceAccountName = "custom-sa"
	assert.Equal(t, "custom-sa", ServiceAccountName(tenant))
}

// B1: servers * volumesPerServer below the storage-system minimum of 4 is
// rejected; exactly 4 is accepted.
func TestValidatePoolSizeEnforcesStorageSystemMinimum(t *testing.T) {
	tenant := testTenant()
	pool := &tenant.Spec.Pools[0]
	pool.Servers = 2
	pool.Persistence.VolumesPerServer = 2

	assert.NoError(t, ValidatePoolSize(pool))

	pool.Servers = 1
	pool.Persistence.VolumesPerServer = 3

	err := ValidatePoolSize(pool)
	require.Error(t, err)
	rerr, ok := rustfserr.As(err)
	require.True(t, ok)
	assert.Equal(t, rustfserr.KindPoolSizeInvalid, rerr.Kind)

	_, err = StatefulSet(tenant, pool)
	require.Error(t, err, "StatefulSet must refuse to build for an undersized pool")
}

func TestStatefulSetPoolSuffix(t *testing.T) {
	tenant := testTenant()

	suffix, ok := StatefulSetPoolSuffix(tenant, "cluster1-pool-0")
	assert.True(t, ok)
	assert.Equal(t, "pool-0", suffix)

	_, ok = StatefulSetPoolSuffix(tenant, "other-pool-0")
	assert.False(t, ok)
}
