// Package rustfserr defines the typed error taxonomy the reconciler and its
// collaborators return, and the error policy that maps each variant onto a
// requeue directive (spec §4.H).
package rustfserr

import (
	"errors"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/rustfs/operator/internal/config"
)

// Kind distinguishes the error variants that drive the requeue schedule.
type Kind string

const (
	KindKube                            Kind = "Kube"
	KindRecord                          Kind = "Record"
	KindCredentialSecretNotFound        Kind = "CredentialSecretNotFound"
	KindCredentialSecretMissingKey      Kind = "CredentialSecretMissingKey"
	KindCredentialSecretInvalidEncoding Kind = "CredentialSecretInvalidEncoding"
	KindCredentialSecretTooShort        Kind = "CredentialSecretTooShort"
	KindImmutableFieldModified          Kind = "ImmutableFieldModified"
	KindPoolSizeInvalid                 Kind = "PoolSizeInvalid"
	KindNoNamespace                     Kind = "NoNamespace"
	KindInternalError                   Kind = "InternalError"
)

// Error is the operator's single error type. Every failure path wraps an
// underlying cause (if any) in one of these tagged variants rather than a
// bare string, so the error policy and the event recorder can switch on Kind
// instead of pattern-matching text.
type Error struct {
	Kind Kind

	// Name is the object the error concerns (e.g. a secret or field name context).
	Name string
	// Field is set for ImmutableFieldModified.
	Field string
	// Message is a human-readable detail, used verbatim in events and logs.
	Message string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindImmutableFieldModified:
		return fmt.Sprintf("cannot modify immutable field %q: %s", e.Field, e.Message)
	case KindCredentialSecretNotFound:
		return fmt.Sprintf("credential secret %q not found", e.Name)
	case KindCredentialSecretMissingKey:
		return fmt.Sprintf("credential secret %q missing required key %q", e.Name, e.Field)
	case KindCredentialSecretInvalidEncoding:
		return fmt.Sprintf("credential secret %q has invalid data encoding for key %q", e.Name, e.Field)
	case KindCredentialSecretTooShort:
		return fmt.Sprintf("credential secret %q: %s", e.Name, e.Message)
	case KindPoolSizeInvalid:
		return fmt.Sprintf("pool %q: %s", e.Name, e.Message)
	case KindNoNamespace:
		return "object has no namespace associated"
	case KindInternalError:
		return fmt.Sprintf("internal error: %s", e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether the error (or its wrapped cause) is a
// Kubernetes not-found error.
func (e *Error) IsNotFound() bool {
	return e.Err != nil && apierrors.IsNotFound(e.Err)
}

func Kube(err error) *Error {
	return &Error{Kind: KindKube, Message: "kubernetes API error", Err: err}
}

func Record(err error) *Error {
	return &Error{Kind: KindRecord, Message: "record event error", Err: err}
}

func CredentialSecretNotFound(name string) *Error {
	return &Error{Kind: KindCredentialSecretNotFound, Name: name}
}

func CredentialSecretMissingKey(secretName, key string) *Error {
	return &Error{Kind: KindCredentialSecretMissingKey, Name: secretName, Field: key}
}

func CredentialSecretInvalidEncoding(secretName, key string) *Error {
	return &Error{Kind: KindCredentialSecretInvalidEncoding, Name: secretName, Field: key}
}

func CredentialSecretTooShort(secretName, key string, length int) *Error {
	return &Error{
		Kind:    KindCredentialSecretTooShort,
		Name:    secretName,
		Field:   key,
		Message: fmt.Sprintf("key %q must be at least 8 bytes (got %d bytes)", key, length),
	}
}

func ImmutableFieldModified(field, message string) *Error {
	return &Error{Kind: KindImmutableFieldModified, Field: field, Message: message}
}

// PoolSizeInvalid reports a pool whose servers*volumesPerServer product falls
// below the storage-system minimum (spec §3, §6).
func PoolSizeInvalid(poolName string, servers, volumesPerServer int32) *Error {
	return &Error{
		Kind: KindPoolSizeInvalid,
		Name: poolName,
		Message: fmt.Sprintf("servers(%d) * persistence.volumesPerServer(%d) = %d, must be >= 4",
			servers, volumesPerServer, servers*volumesPerServer),
	}
}

func NoNamespace() *Error {
	return &Error{Kind: KindNoNamespace}
}

func InternalError(msg string) *Error {
	return &Error{Kind: KindInternalError, Message: msg}
}

// As unwraps err looking for a *Error, mirroring errors.As for callers that
// prefer a plain boolean check.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// RequeueAfter implements the error-policy table of spec §4.H. A not-found
// error on the watched object itself is handled by the reconciler before an
// error ever reaches here (§4.G step 1 returns "await change" directly); this
// function only classifies errors actually returned from reconcile.
func RequeueAfter(err error) time.Duration {
	rerr, ok := As(err)
	if !ok {
		return config.RequeueInternalError
	}
	switch rerr.Kind {
	case KindKube, KindRecord:
		return config.RequeueTransient
	case KindCredentialSecretNotFound, KindCredentialSecretMissingKey,
		KindCredentialSecretInvalidEncoding, KindCredentialSecretTooShort,
		KindImmutableFieldModified, KindPoolSizeInvalid:
		return config.RequeueUserFixable
	default:
		return config.RequeueInternalError
	}
}
