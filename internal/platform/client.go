// Package platform provides a typed wrapper over the Kubernetes API used by
// the reconciler: get/list/create/apply/delete/replaceStatus plus an event
// recorder (spec §4.C).
package platform

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/rustfserr"
)

// Client wraps a controller-runtime client and an event recorder with the
// error-taxonomy-aware operations the reconciler needs.
type Client struct {
	client.Client
	Recorder record.EventRecorder
}

// New constructs a Client from a controller-runtime client and event recorder.
func New(c client.Client, recorder record.EventRecorder) *Client {
	return &Client{Client: c, Recorder: recorder}
}

// Apply performs a server-side apply of obj with the operator's field
// manager, matching the idempotent write model of spec §5.
func (p *Client) Apply(ctx context.Context, obj client.Object) error {
	err := p.Patch(ctx, obj, client.Apply, client.FieldOwner(config.FieldManager), client.ForceOwnership)
	if err != nil {
		return rustfserr.Kube(err)
	}
	return nil
}

// Get fetches obj by key, wrapping any error in the Kube variant. Callers
// that need to distinguish not-found should use apierrors.IsNotFound on the
// underlying error via errors.As, or IsNotFound below.
func (p *Client) Get(ctx context.Context, key client.ObjectKey, obj client.Object) error {
	if err := p.Client.Get(ctx, key, obj); err != nil {
		return rustfserr.Kube(err)
	}
	return nil
}

// IsNotFound reports whether err (as returned by this package) wraps a
// Kubernetes not-found error.
func IsNotFound(err error) bool {
	if rerr, ok := rustfserr.As(err); ok {
		return rerr.IsNotFound()
	}
	return apierrors.IsNotFound(err)
}

// statusRetryBackoff allows exactly one retry after a conflict, matching the
// original implementation's update_status: attempt, and on a single conflict
// re-read and retry once more before giving up.
var statusRetryBackoff = wait.Backoff{Steps: 2}

// ReplaceStatus writes tenant.Status with the one-retry conflict protocol of
// spec §5: on 409 Conflict, re-read the tenant, reapply the intended status
// onto the fresh object, and retry once; a second conflict returns Kube.
func (p *Client) ReplaceStatus(ctx context.Context, tenant *rustfsv1alpha1.Tenant, desired rustfsv1alpha1.TenantStatus) error {
	fresh := tenant
	err := retry.OnError(statusRetryBackoff, apierrors.IsConflict, func() error {
		if fresh != tenant {
			if getErr := p.Client.Get(ctx, client.ObjectKeyFromObject(tenant), fresh); getErr != nil {
				return getErr
			}
		}
		fresh.Status = desired
		updateErr := p.Client.Status().Update(ctx, fresh)
		if apierrors.IsConflict(updateErr) {
			fresh = &rustfsv1alpha1.Tenant{}
		}
		return updateErr
	})
	if err != nil {
		return rustfserr.Kube(err)
	}
	*tenant = *fresh
	return nil
}

// RecordEvent emits an event on tenant with the given severity, reason and
// message (spec §4.C).
func (p *Client) RecordEvent(tenant *rustfsv1alpha1.Tenant, eventType, reason, message string) {
	p.Recorder.Event(tenant, eventType, reason, message)
}

// Event type constants mirroring corev1's, re-exported for callers that only
// import this package.
const (
	EventTypeNormal  = corev1.EventTypeNormal
	EventTypeWarning = corev1.EventTypeWarning
)
