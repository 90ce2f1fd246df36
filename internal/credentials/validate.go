// Package credentials implements the structural pre-flight check of a
// Tenant's referenced credentials Secret (spec §4.I). It never extracts
// values — runtime credential injection is delegated to the platform via
// secretKeyRef in the container env.
package credentials

import (
	"context"
	"unicode/utf8"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/rustfserr"
)

const (
	keyAccessKey = "accesskey"
	keySecretKey = "secretkey"
	minKeyLength = 8
)

// Validate checks tenant.Spec.CredsSecret, if configured. A nil return means
// either no secret was configured or the configured one is structurally
// valid.
func Validate(ctx context.Context, c client.Client, tenant *rustfsv1alpha1.Tenant) error {
	ref := tenant.Spec.CredsSecret
	if ref == nil || ref.Name == "" {
		return nil
	}

	secret := &corev1.Secret{}
	if err := c.Get(ctx, client.ObjectKey{Namespace: tenant.Namespace, Name: ref.Name}, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return rustfserr.CredentialSecretNotFound(ref.Name)
		}
		return rustfserr.Kube(err)
	}

	if err := validateKey(secret, ref.Name, keyAccessKey); err != nil {
		return err
	}
	return validateKey(secret, ref.Name, keySecretKey)
}

func validateKey(secret *corev1.Secret, secretName, key string) error {
	raw, ok := secret.Data[key]
	if !ok {
		return rustfserr.CredentialSecretMissingKey(secretName, key)
	}
	if !utf8.Valid(raw) {
		return rustfserr.CredentialSecretInvalidEncoding(secretName, key)
	}
	if len(raw) < minKeyLength {
		return rustfserr.CredentialSecretTooShort(secretName, key, len(raw))
	}
	return nil
}
