package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/resources"
	"github.com/rustfs/operator/internal/rustfserr"
)

func testTenant() (*rustfsv1alpha1.Tenant, *rustfsv1alpha1.Pool) {
	tenant := &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster1", Namespace: "storage", UID: types.UID("abc")},
		Spec: rustfsv1alpha1.TenantSpec{
			Image: "rustfs/rustfs:v1",
			Pools: []rustfsv1alpha1.Pool{
				{
					Name:        "pool-0",
					Servers:     4,
					Persistence: rustfsv1alpha1.PersistenceSpec{VolumesPerServer: 2},
				},
			},
		},
	}
	return tenant, &tenant.Spec.Pools[0]
}

func TestNeedsUpdateFalseWhenUnchanged(t *testing.T) {
	tenant, pool := testTenant()
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	needs, err := NeedsUpdate(tenant, pool, existing)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestNeedsUpdateTrueWhenImageChanges(t *testing.T) {
	tenant, pool := testTenant()
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	tenant.Spec.Image = "rustfs/rustfs:v2"

	needs, err := NeedsUpdate(tenant, pool, existing)
	require.NoError(t, err)
	assert.True(t, needs)
}

// Toleration reordering alone must not trigger an update (spec §4.D).
func TestNeedsUpdateIgnoresTolerationOrder(t *testing.T) {
	tenant, pool := testTenant()
	pool.Scheduling.Tolerations = []corev1.Toleration{
		{Key: "a", Operator: corev1.TolerationOpExists},
		{Key: "b", Operator: corev1.TolerationOpExists},
	}
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	pool.Scheduling.Tolerations = []corev1.Toleration{
		{Key: "b", Operator: corev1.TolerationOpExists},
		{Key: "a", Operator: corev1.TolerationOpExists},
	}

	needs, err := NeedsUpdate(tenant, pool, existing)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestNeedsUpdateTrueWhenTolerationSetChanges(t *testing.T) {
	tenant, pool := testTenant()
	pool.Scheduling.Tolerations = []corev1.Toleration{{Key: "a", Operator: corev1.TolerationOpExists}}
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	pool.Scheduling.Tolerations = []corev1.Toleration{{Key: "a", Operator: corev1.TolerationOpExists}, {Key: "b", Operator: corev1.TolerationOpExists}}

	needs, err := NeedsUpdate(tenant, pool, existing)
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestValidateUpdateAllowsNoOpUpdate(t *testing.T) {
	tenant, pool := testTenant()
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	assert.NoError(t, ValidateUpdate(tenant, pool, existing))
}

// B2: changing volumesPerServer must be rejected as an immutable-field change.
func TestValidateUpdateRejectsVolumesPerServerChange(t *testing.T) {
	tenant, pool := testTenant()
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	pool.Persistence.VolumesPerServer = 3

	err = ValidateUpdate(tenant, pool, existing)
	require.Error(t, err)
	rerr, ok := rustfserr.As(err)
	require.True(t, ok)
	assert.Equal(t, rustfserr.KindImmutableFieldModified, rerr.Kind)
}

// B4: changing the storage class on an existing volume claim template must
// be rejected.
func TestValidateUpdateRejectsStorageClassChange(t *testing.T) {
	tenant, pool := testTenant()
	sc := "fast-ssd"
	pool.Persistence.VolumeClaimTemplate = &corev1.PersistentVolumeClaimSpec{StorageClassName: &sc}
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	other := "slow-hdd"
	pool.Persistence.VolumeClaimTemplate = &corev1.PersistentVolumeClaimSpec{StorageClassName: &other}

	err = ValidateUpdate(tenant, pool, existing)
	require.Error(t, err)
	rerr, ok := rustfserr.As(err)
	require.True(t, ok)
	assert.Equal(t, rustfserr.KindImmutableFieldModified, rerr.Kind)
}

// B3: renaming a pool changes the desired selector, which must be rejected
// against the StatefulSet that was built for the old name.
func TestValidateUpdateRejectsPoolRename(t *testing.T) {
	tenant, pool := testTenant()
	existing, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	pool.Name = "pool-renamed"

	err = ValidateUpdate(tenant, pool, existing)
	require.Error(t, err)
	rerr, ok := rustfserr.As(err)
	require.True(t, ok)
	assert.Equal(t, rustfserr.KindImmutableFieldModified, rerr.Kind)
	assert.Equal(t, "spec.selector", rerr.Field)
}

// Asserts that two StatefulSets built for the same (tenant, pool) are
// structurally identical beyond their ResourceVersion, using a structural
// diff rather than reflect.DeepEqual so the failure message pinpoints the
// differing field.
func TestStatefulSetFactoryIsDeterministic(t *testing.T) {
	tenant, pool := testTenant()

	first, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)
	second, err := resources.StatefulSet(tenant, pool)
	require.NoError(t, err)

	diff := cmp.Diff(first, second, cmpopts.IgnoreFields(first.ObjectMeta, "ResourceVersion"))
	assert.Empty(t, diff, "building a StatefulSet twice from the same inputs must be deterministic")
}
