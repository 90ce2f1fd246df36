package rustfserr

import (
	"errors"
	"testing"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/stretchr/testify/assert"

	"github.com/rustfs/operator/internal/config"
)

func TestRequeueAfter(t *testing.T) {
	notFound := apierrors.NewNotFound(schema.GroupResource{Resource: "secrets"}, "creds")

	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"kube error", Kube(notFound), config.RequeueTransient},
		{"record error", Record(errors.New("boom")), config.RequeueTransient},
		{"credential not found", CredentialSecretNotFound("creds"), config.RequeueUserFixable},
		{"credential missing key", CredentialSecretMissingKey("creds", "accesskey"), config.RequeueUserFixable},
		{"credential invalid encoding", CredentialSecretInvalidEncoding("creds", "accesskey"), config.RequeueUserFixable},
		{"credential too short", CredentialSecretTooShort("creds", "accesskey", 3), config.RequeueUserFixable},
		{"immutable field modified", ImmutableFieldModified("spec.selector", "nope"), config.RequeueUserFixable},
		{"pool size invalid", PoolSizeInvalid("pool-0", 1, 3), config.RequeueUserFixable},
		{"internal error", InternalError("oops"), config.RequeueInternalError},
		{"no namespace", NoNamespace(), config.RequeueInternalError},
		{"plain non-taxonomy error", errors.New("plain"), config.RequeueInternalError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, RequeueAfter(test.err))
		})
	}
}

func TestErrorIsNotFound(t *testing.T) {
	notFound := apierrors.NewNotFound(schema.GroupResource{Resource: "secrets"}, "creds")
	wrapped := Kube(notFound)

	assert.True(t, wrapped.IsNotFound())
	assert.False(t, CredentialSecretNotFound("creds").IsNotFound())
}

func TestAsUnwrapsTaxonomyError(t *testing.T) {
	original := ImmutableFieldModified("spec.serviceName", "nope")
	wrapped := errors.New("context: " + original.Error())

	_, ok := As(wrapped)
	assert.False(t, ok, "a plain error must not be mistaken for a taxonomy error")

	found, ok := As(original)
	assert.True(t, ok)
	assert.Equal(t, KindImmutableFieldModified, found.Kind)
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, ImmutableFieldModified("spec.selector", "pool renamed").Error(), "spec.selector")
	assert.Contains(t, CredentialSecretTooShort("creds", "secretkey", 3).Error(), "secretkey")
	assert.Equal(t, "object has no namespace associated", NoNamespace().Error())
	assert.Contains(t, PoolSizeInvalid("pool-0", 1, 3).Error(), "= 3, must be >= 4")
}
