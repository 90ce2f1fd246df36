// Package controller implements the Tenant reconciler: the control loop that
// wires the resource factory, diff validator, status builder, stuck-pod
// sub-controller and credential validator together (spec §4.G).
package controller

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/credentials"
	"github.com/rustfs/operator/internal/diff"
	"github.com/rustfs/operator/internal/platform"
	"github.com/rustfs/operator/internal/resources"
	"github.com/rustfs/operator/internal/rustfserr"
	"github.com/rustfs/operator/internal/status"
	"github.com/rustfs/operator/internal/stuckpod"
)

// TenantReconciler implements reconcile.Reconciler for Tenant objects.
type TenantReconciler struct {
	*platform.Client
}

// SetupWithManager registers the reconciler with mgr, watching Tenants and
// their owned Services/StatefulSets/ServiceAccounts/Roles/RoleBindings.
func (r *TenantReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&rustfsv1alpha1.Tenant{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ServiceAccount{}).
		Owns(&rbacv1.Role{}).
		Owns(&rbacv1.RoleBinding{}).
		WithOptions(controller.Options{
			RateLimiter: workqueue.NewItemExponentialFailureRateLimiter(1*time.Second, 10*time.Second),
		}).
		Complete(r)
}

func (r *TenantReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := ctrl.LoggerFrom(ctx)

	// 1. Fetch latest.
	tenant := &rustfsv1alpha1.Tenant{}
	if err := r.Get(ctx, req.NamespacedName, tenant); err != nil {
		if platform.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	// 2. Finalization: ownerReferences handle child-object deletion.
	if !tenant.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	if tenant.Namespace == "" {
		return r.finish(ctx, tenant, nil, rustfserr.NoNamespace())
	}

	// 3. Credential pre-flight.
	if err := credentials.Validate(ctx, r.Client.Client, tenant); err != nil {
		r.RecordEvent(tenant, platform.EventTypeWarning, "CredentialValidationFailed", err.Error())
		return r.finish(ctx, tenant, nil, err)
	}

	// 4. Stuck-pod sub-loop.
	if err := stuckpod.Reconcile(ctx, r.Client, tenant); err != nil {
		return r.finish(ctx, tenant, nil, err)
	}

	// 5. RBAC.
	if err := r.reconcileRBAC(ctx, tenant); err != nil {
		return r.finish(ctx, tenant, nil, err)
	}

	// 6. Services.
	if err := r.reconcileServices(ctx, tenant); err != nil {
		return r.finish(ctx, tenant, nil, err)
	}

	// 7. Orphan detection.
	if err := r.detectOrphanPools(ctx, tenant); err != nil {
		r.RecordEvent(tenant, platform.EventTypeWarning, "StatefulSetUpdateValidationFailed", err.Error())
		return r.finish(ctx, tenant, nil, err)
	}

	// 8. Per-pool reconcile.
	poolStatuses := make([]rustfsv1alpha1.PoolStatus, 0, len(tenant.Spec.Pools))
	for i := range tenant.Spec.Pools {
		pool := &tenant.Spec.Pools[i]
		ps, err := r.reconcilePool(ctx, tenant, pool)
		if err != nil {
			return r.finish(ctx, tenant, poolStatuses, err)
		}
		poolStatuses = append(poolStatuses, ps)
	}

	if dups := status.DuplicateSSNames(poolStatuses); len(dups) > 0 {
		log.Info("duplicate pool ssName detected in status", "names", dups)
	}

	// 9 & 10. Status write + requeue.
	return r.finish(ctx, tenant, poolStatuses, nil)
}

func (r *TenantReconciler) reconcileRBAC(ctx context.Context, tenant *rustfsv1alpha1.Tenant) error {
	customSA := tenant.Spec.ServiceAccountName != ""
	createRBAC := tenant.Spec.CreateServiceAccountRBAC

	if !customSA || createRBAC {
		if err := r.Apply(ctx, resources.Role(tenant)); err != nil {
			return err
		}
	}

	if !customSA {
		if err := r.Apply(ctx, resources.ServiceAccount(tenant)); err != nil {
			return err
		}
	}

	if !customSA || createRBAC {
		if err := r.Apply(ctx, resources.RoleBinding(tenant)); err != nil {
			return err
		}
	}

	return nil
}

func (r *TenantReconciler) reconcileServices(ctx context.Context, tenant *rustfsv1alpha1.Tenant) error {
	if err := r.Apply(ctx, resources.IOService(tenant)); err != nil {
		return err
	}
	if err := r.Apply(ctx, resources.ConsoleService(tenant)); err != nil {
		return err
	}
	return r.Apply(ctx, resources.HeadlessService(tenant))
}

// detectOrphanPools implements spec §4.G step 7: any owned StatefulSet whose
// pool-name suffix is not among spec.pools[*].name is a user error. This
// never auto-deletes the orphan (per spec §3's lifecycle invariant); it only
// surfaces the error.
func (r *TenantReconciler) detectOrphanPools(ctx context.Context, tenant *rustfsv1alpha1.Tenant) error {
	var list appsv1.StatefulSetList
	if err := r.List(ctx, &list, client.InNamespace(tenant.Namespace)); err != nil {
		return rustfserr.Kube(err)
	}

	known := make(map[string]bool, len(tenant.Spec.Pools))
	for _, p := range tenant.Spec.Pools {
		known[p.Name] = true
	}

	for i := range list.Items {
		sts := &list.Items[i]
		if !ownedByTenant(sts, tenant) {
			continue
		}
		poolName, ok := resources.StatefulSetPoolSuffix(tenant, sts.Name)
		if !ok || known[poolName] {
			continue
		}
		return rustfserr.ImmutableFieldModified("spec.pools[].name",
			fmt.Sprintf("StatefulSet %q is owned by tenant %q but no longer matches any pool; pool renames are unsupported", sts.Name, tenant.Name))
	}
	return nil
}

func ownedByTenant(sts *appsv1.StatefulSet, tenant *rustfsv1alpha1.Tenant) bool {
	for _, ref := range sts.OwnerReferences {
		if ref.Kind == "Tenant" && ref.Name == tenant.Name && ref.UID == tenant.UID && ref.Controller != nil && *ref.Controller {
			return true
		}
	}
	return false
}

// reconcilePool implements spec §4.G step 8 for a single pool.
func (r *TenantReconciler) reconcilePool(ctx context.Context, tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool) (rustfsv1alpha1.PoolStatus, error) {
	ssName := resources.StatefulSetName(tenant, pool)

	var existing appsv1.StatefulSet
	err := r.Client.Client.Get(ctx, client.ObjectKey{Namespace: tenant.Namespace, Name: ssName}, &existing)
	switch {
	case err == nil:
		if verr := diff.ValidateUpdate(tenant, pool, &existing); verr != nil {
			r.RecordEvent(tenant, platform.EventTypeWarning, "StatefulSetUpdateValidationFailed", verr.Error())
			return rustfsv1alpha1.PoolStatus{}, verr
		}
		needsUpdate, derr := diff.NeedsUpdate(tenant, pool, &existing)
		if derr != nil {
			return rustfsv1alpha1.PoolStatus{}, derr
		}
		if needsUpdate {
			r.RecordEvent(tenant, platform.EventTypeNormal, "StatefulSetUpdateStarted",
				fmt.Sprintf("updating StatefulSet %s", ssName))
			desired, berr := resources.StatefulSet(tenant, pool)
			if berr != nil {
				return rustfsv1alpha1.PoolStatus{}, berr
			}
			if aerr := r.Apply(ctx, desired); aerr != nil {
				return rustfsv1alpha1.PoolStatus{}, aerr
			}
		}
	case apierrors.IsNotFound(err):
		r.RecordEvent(tenant, platform.EventTypeNormal, "StatefulSetCreated",
			fmt.Sprintf("creating StatefulSet %s", ssName))
		desired, berr := resources.StatefulSet(tenant, pool)
		if berr != nil {
			return rustfsv1alpha1.PoolStatus{}, berr
		}
		if aerr := r.Apply(ctx, desired); aerr != nil {
			return rustfsv1alpha1.PoolStatus{}, aerr
		}
	default:
		return rustfsv1alpha1.PoolStatus{}, rustfserr.Kube(err)
	}

	var fresh appsv1.StatefulSet
	if err := r.Client.Client.Get(ctx, client.ObjectKey{Namespace: tenant.Namespace, Name: ssName}, &fresh); err != nil {
		return rustfsv1alpha1.PoolStatus{}, rustfserr.Kube(err)
	}

	return status.PoolStatus(pool, ssName, &fresh), nil
}

// finish aggregates and writes status (step 9) and returns the requeue
// directive (step 10). If reconcileErr is non-nil, status is still written
// before the error is surfaced (spec §7).
//
// The error is logged here rather than returned: controller-runtime ignores
// Result.RequeueAfter whenever Reconcile also returns a non-nil error,
// re-queuing on the manager's exponential rate limiter instead. Returning nil
// lets the per-Kind schedule from rustfserr.RequeueAfter (spec §4.H) actually
// take effect.
func (r *TenantReconciler) finish(ctx context.Context, tenant *rustfsv1alpha1.Tenant, poolStatuses []rustfsv1alpha1.PoolStatus, reconcileErr error) (ctrl.Result, error) {
	log := ctrl.LoggerFrom(ctx)

	desired := status.Aggregate(tenant.Generation, poolStatuses, tenant.Status.Conditions)
	if err := r.ReplaceStatus(ctx, tenant, desired); err != nil {
		if reconcileErr == nil {
			reconcileErr = err
		}
	}

	if reconcileErr != nil {
		requeueAfter := rustfserr.RequeueAfter(reconcileErr)
		log.Error(reconcileErr, "reconcile failed", "requeueAfter", requeueAfter)
		return ctrl.Result{RequeueAfter: requeueAfter}, nil
	}

	for _, p := range poolStatuses {
		if p.State == rustfsv1alpha1.PoolStateUpdating {
			return ctrl.Result{RequeueAfter: config.RequeuePoolUpdating}, nil
		}
	}
	return ctrl.Result{}, nil
}
