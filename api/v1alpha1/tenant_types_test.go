package v1alpha1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
)

func TestTenantDeepCopyIsIndependent(t *testing.T) {
	original := &Tenant{
		Spec: TenantSpec{
			Pools: []Pool{
				{Name: "pool-0", Servers: 4, Persistence: PersistenceSpec{VolumesPerServer: 2}},
			},
			Env: []corev1.EnvVar{{Name: "EXTRA_FLAG", Value: "1"}},
		},
	}

	clone := original.DeepCopy()
	require.NotNil(t, clone)

	clone.Spec.Pools[0].Name = "pool-mutated"
	clone.Spec.Env[0].Value = "mutated"

	assert.Equal(t, "pool-0", original.Spec.Pools[0].Name, "mutating the copy must not affect the original")
	assert.Equal(t, "1", original.Spec.Env[0].Value)
}

func TestTenantListDeepCopyObjectReturnsRuntimeObject(t *testing.T) {
	list := &TenantList{Items: []Tenant{{}}}
	obj := list.DeepCopyObject()
	clone, ok := obj.(*TenantList)
	require.True(t, ok)
	assert.Len(t, clone.Items, 1)
}
