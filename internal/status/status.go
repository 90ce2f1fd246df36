// Package status classifies per-pool rollout state from a StatefulSet's
// status and aggregates it into tenant-level conditions and a summary state
// (spec §4.E).
package status

import (
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
)

// PoolStatus classifies a single pool's rollout state from its StatefulSet.
func PoolStatus(pool *rustfsv1alpha1.Pool, ssName string, sts *appsv1.StatefulSet) rustfsv1alpha1.PoolStatus {
	if sts == nil {
		return rustfsv1alpha1.PoolStatus{
			Name:            pool.Name,
			SSName:          ssName,
			State:           rustfsv1alpha1.PoolStateNotCreated,
			DesiredReplicas: pool.Servers,
		}
	}

	desired := pool.Servers
	if sts.Spec.Replicas != nil {
		desired = *sts.Spec.Replicas
	}
	ready := sts.Status.ReadyReplicas
	current := sts.Status.CurrentReplicas
	updated := sts.Status.UpdatedReplicas
	replicas := sts.Status.Replicas

	return rustfsv1alpha1.PoolStatus{
		Name:            pool.Name,
		SSName:          ssName,
		State:           classify(replicas, desired, ready, current, updated),
		DesiredReplicas: desired,
		Replicas:        replicas,
		ReadyReplicas:   ready,
		CurrentReplicas: current,
		UpdatedReplicas: updated,
		CurrentRevision: sts.Status.CurrentRevision,
		UpdateRevision:  sts.Status.UpdateRevision,
	}
}

// classify implements the per-pool state table of spec §4.E.
func classify(replicas, desired, ready, current, updated int32) rustfsv1alpha1.PoolState {
	switch {
	case replicas == 0:
		return rustfsv1alpha1.PoolStateNotCreated
	case ready == desired && updated == desired:
		return rustfsv1alpha1.PoolStateRolloutComplete
	case updated < desired || current < desired:
		return rustfsv1alpha1.PoolStateUpdating
	case ready < desired:
		return rustfsv1alpha1.PoolStateDegraded
	default:
		return rustfsv1alpha1.PoolStateInitialized
	}
}

// DuplicateSSNames returns the ssName values that appear more than once
// across pools, a defensive consistency check on the controller's own prior
// status writes (adapted from the original implementation's pool-decommission
// bookkeeping; this never deletes anything, it only flags for logging).
func DuplicateSSNames(pools []rustfsv1alpha1.PoolStatus) []string {
	seen := map[string]int{}
	for _, p := range pools {
		seen[p.SSName]++
	}
	var dups []string
	for name, count := range seen {
		if count > 1 {
			dups = append(dups, name)
		}
	}
	return dups
}

// Aggregate rolls per-pool statuses up into the tenant-level conditions and
// summary state (spec §4.E). existingConditions are the tenant's current
// conditions (for lastTransitionTime preservation via meta.SetStatusCondition, which only
// updates the timestamp when the (type, status) pair actually transitions).
func Aggregate(generation int64, pools []rustfsv1alpha1.PoolStatus, existingConditions []metav1.Condition) rustfsv1alpha1.TenantStatus {
	var anyDegraded, anyUpdating bool
	var readyTotal, desiredTotal int32

	for _, p := range pools {
		switch p.State {
		case rustfsv1alpha1.PoolStateDegraded, rustfsv1alpha1.PoolStateRolloutFailed:
			anyDegraded = true
		case rustfsv1alpha1.PoolStateUpdating:
			anyUpdating = true
		}
		readyTotal += p.ReadyReplicas
		desiredTotal += p.DesiredReplicas
	}

	conditions := append([]metav1.Condition(nil), existingConditions...)

	var readyCond metav1.Condition
	switch {
	case anyDegraded:
		readyCond = metav1.Condition{
			Type:    rustfsv1alpha1.TenantConditionReady,
			Status:  metav1.ConditionFalse,
			Reason:  "PoolDegraded",
			Message: "one or more pools are degraded",
		}
	case anyUpdating:
		readyCond = metav1.Condition{
			Type:    rustfsv1alpha1.TenantConditionReady,
			Status:  metav1.ConditionFalse,
			Reason:  "RolloutInProgress",
			Message: "one or more pools are rolling out",
		}
	case desiredTotal > 0 && readyTotal == desiredTotal:
		readyCond = metav1.Condition{
			Type:    rustfsv1alpha1.TenantConditionReady,
			Status:  metav1.ConditionTrue,
			Reason:  "AllPodsReady",
			Message: "all pool replicas are ready",
		}
	default:
		readyCond = metav1.Condition{
			Type:    rustfsv1alpha1.TenantConditionReady,
			Status:  metav1.ConditionFalse,
			Reason:  "PodsNotReady",
			Message: "waiting for pool replicas to become ready",
		}
	}
	readyCond.ObservedGeneration = generation
	meta.SetStatusCondition(&conditions, readyCond)

	progressingStatus := metav1.ConditionFalse
	progressingReason := "AsExpected"
	if anyUpdating {
		progressingStatus = metav1.ConditionTrue
		progressingReason = "RolloutInProgress"
	}
	meta.SetStatusCondition(&conditions, metav1.Condition{
		Type:               rustfsv1alpha1.TenantConditionProgressing,
		Status:             progressingStatus,
		Reason:             progressingReason,
		Message:            "",
		ObservedGeneration: generation,
	})

	degradedStatus := metav1.ConditionFalse
	degradedReason := "AsExpected"
	if anyDegraded {
		degradedStatus = metav1.ConditionTrue
		degradedReason = "PoolDegraded"
	}
	meta.SetStatusCondition(&conditions, metav1.Condition{
		Type:               rustfsv1alpha1.TenantConditionDegraded,
		Status:             degradedStatus,
		Reason:             degradedReason,
		Message:            "",
		ObservedGeneration: generation,
	})

	var currentState string
	switch {
	case anyDegraded:
		currentState = rustfsv1alpha1.TenantStateDegraded
	case anyUpdating:
		currentState = rustfsv1alpha1.TenantStateUpdating
	case desiredTotal > 0 && readyTotal == desiredTotal:
		currentState = rustfsv1alpha1.TenantStateReady
	default:
		currentState = rustfsv1alpha1.TenantStateNotReady
	}

	return rustfsv1alpha1.TenantStatus{
		CurrentState:       currentState,
		AvailableReplicas:  readyTotal,
		ObservedGeneration: generation,
		Pools:              pools,
		Conditions:         conditions,
	}
}
