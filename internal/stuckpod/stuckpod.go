// Package stuckpod implements the policy-driven force-deletion of pods stuck
// terminating on unreachable nodes (spec §4.F). It activates only when
// podDeletionPolicyWhenNodeIsDown is set to something other than DoNothing.
package stuckpod

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/platform"
	"github.com/rustfs/operator/internal/rustfserr"
)

// Event reasons emitted for each policy (spec §6).
const (
	ReasonForceDeletedPodOnDownNode            = "ForceDeletedPodOnDownNode"
	ReasonDeletedPodOnDownNode                 = "DeletedPodOnDownNode"
	ReasonLonghornLikeForceDeletedPodOnDownNode = "LonghornLikeForceDeletedPodOnDownNode"
)

// Reconcile enumerates tenant-owned pods that are terminating on unreachable
// nodes and deletes them per tenant.Spec.PodDeletionPolicyWhenNodeIsDown.
func Reconcile(ctx context.Context, c *platform.Client, tenant *rustfsv1alpha1.Tenant) error {
	policy := tenant.Spec.PodDeletionPolicyWhenNodeIsDown
	if policy == "" || policy == rustfsv1alpha1.PodDeletionPolicyDoNothing {
		return nil
	}

	var pods corev1.PodList
	if err := c.List(ctx, &pods,
		client.InNamespace(tenant.Namespace),
		client.MatchingLabels{config.LabelTenant: tenant.Name},
	); err != nil {
		return rustfserr.Kube(err)
	}

	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.DeletionTimestamp.IsZero() {
			continue
		}
		if !matchesControllerKind(policy, pod) {
			continue
		}

		down, err := nodeIsDown(ctx, c, pod.Spec.NodeName)
		if err != nil {
			return err
		}
		if !down {
			continue
		}

		if err := deletePod(ctx, c, tenant, pod, policy); err != nil {
			return err
		}
	}

	return nil
}

func matchesControllerKind(policy rustfsv1alpha1.PodDeletionPolicy, pod *corev1.Pod) bool {
	switch policy {
	case rustfsv1alpha1.PodDeletionPolicyDelete, rustfsv1alpha1.PodDeletionPolicyForceDelete:
		return true
	case rustfsv1alpha1.PodDeletionPolicyDeleteStatefulSetPod:
		return ownedByKind(pod, "StatefulSet")
	case rustfsv1alpha1.PodDeletionPolicyDeleteDeploymentPod:
		return ownedByKind(pod, "ReplicaSet")
	case rustfsv1alpha1.PodDeletionPolicyDeleteBothStatefulSetAndDeploy:
		return ownedByKind(pod, "StatefulSet") || ownedByKind(pod, "ReplicaSet")
	default:
		return false
	}
}

func ownedByKind(pod *corev1.Pod, kind string) bool {
	for _, ref := range pod.OwnerReferences {
		if ref.Kind == kind {
			return true
		}
	}
	return false
}

// nodeIsDown reports whether nodeName is missing, or its Ready condition is
// False or Unknown.
func nodeIsDown(ctx context.Context, c *platform.Client, nodeName string) (bool, error) {
	if nodeName == "" {
		return false, nil
	}
	var node corev1.Node
	if err := c.Get(ctx, client.ObjectKey{Name: nodeName}, &node); err != nil {
		if platform.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionFalse || cond.Status == corev1.ConditionUnknown, nil
		}
	}
	return false, nil
}

func deletePod(ctx context.Context, c *platform.Client, tenant *rustfsv1alpha1.Tenant, pod *corev1.Pod, policy rustfsv1alpha1.PodDeletionPolicy) error {
	opts := []client.DeleteOption{}
	reason := ReasonDeletedPodOnDownNode

	switch policy {
	case rustfsv1alpha1.PodDeletionPolicyForceDelete:
		opts = forceDeleteOptions()
		reason = ReasonForceDeletedPodOnDownNode
	case rustfsv1alpha1.PodDeletionPolicyDeleteStatefulSetPod,
		rustfsv1alpha1.PodDeletionPolicyDeleteDeploymentPod,
		rustfsv1alpha1.PodDeletionPolicyDeleteBothStatefulSetAndDeploy:
		opts = forceDeleteOptions()
		reason = ReasonLonghornLikeForceDeletedPodOnDownNode
	}

	err := c.Delete(ctx, pod, opts...)
	if err != nil && !apierrors.IsNotFound(err) {
		return rustfserr.Kube(err)
	}

	c.RecordEvent(tenant, platform.EventTypeNormal, reason,
		fmt.Sprintf("deleted pod %s/%s stuck terminating on down node %s", pod.Namespace, pod.Name, pod.Spec.NodeName))
	return nil
}

func forceDeleteOptions() []client.DeleteOption {
	grace := int64(0)
	return []client.DeleteOption{
		client.GracePeriodSeconds(grace),
		client.PropagationPolicy(metav1.DeletePropagationBackground),
	}
}
