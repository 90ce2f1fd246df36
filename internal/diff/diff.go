// Package diff implements the needs-update test and the immutability
// validator for StatefulSets (spec §4.D).
package diff

import (
	"encoding/json"
	"fmt"
	"reflect"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/resources"
	"github.com/rustfs/operator/internal/rustfserr"
)

// NeedsUpdate reports whether existing must be updated to match the desired
// state for (tenant, pool). Deep structural comparison; env list order is
// significant, toleration ordering is not (spec §4.D).
func NeedsUpdate(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, existing *appsv1.StatefulSet) (bool, error) {
	desired, err := resources.StatefulSet(tenant, pool)
	if err != nil {
		return false, err
	}

	if !int32PtrEqual(existing.Spec.Replicas, desired.Spec.Replicas) {
		return true, nil
	}
	if existing.Spec.PodManagementPolicy != desired.Spec.PodManagementPolicy {
		return true, nil
	}
	if !mapEqual(existing.Spec.Template.Labels, desired.Spec.Template.Labels) {
		return true, nil
	}

	existingPod := existing.Spec.Template.Spec
	desiredPod := desired.Spec.Template.Spec

	if existingPod.ServiceAccountName != desiredPod.ServiceAccountName {
		return true, nil
	}
	if existingPod.SchedulerName != desiredPod.SchedulerName {
		return true, nil
	}
	if existingPod.PriorityClassName != desiredPod.PriorityClassName {
		return true, nil
	}
	if !mapEqual(existingPod.NodeSelector, desiredPod.NodeSelector) {
		return true, nil
	}
	if changed, err := jsonDiffers(existingPod.Affinity, desiredPod.Affinity); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}
	// Toleration order is not significant; compared as a multiset below.
	if tolerationsDiffer(existingPod.Tolerations, desiredPod.Tolerations) {
		return true, nil
	}
	if changed, err := jsonDiffers(existingPod.TopologySpreadConstraints, desiredPod.TopologySpreadConstraints); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}

	if len(existingPod.Containers) == 0 || len(desiredPod.Containers) == 0 {
		return false, rustfserr.InternalError("pod spec missing container")
	}
	existingContainer := existingPod.Containers[0]
	desiredContainer := desiredPod.Containers[0]

	if existingContainer.Image != desiredContainer.Image {
		return true, nil
	}
	if existingContainer.ImagePullPolicy != desiredContainer.ImagePullPolicy {
		return true, nil
	}
	if changed, err := jsonDiffers(existingContainer.Env, desiredContainer.Env); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}
	if changed, err := jsonDiffers(existingContainer.Resources, desiredContainer.Resources); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}
	if changed, err := jsonDiffers(existingContainer.Lifecycle, desiredContainer.Lifecycle); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}
	if changed, err := jsonDiffers(existingContainer.VolumeMounts, desiredContainer.VolumeMounts); err != nil {
		return false, err
	} else if changed {
		return true, nil
	}

	return false, nil
}

// ValidateUpdate rejects updates that would change a field the platform
// treats as immutable on a StatefulSet (spec §4.D).
func ValidateUpdate(tenant *rustfsv1alpha1.Tenant, pool *rustfsv1alpha1.Pool, existing *appsv1.StatefulSet) error {
	desired, err := resources.StatefulSet(tenant, pool)
	if err != nil {
		return err
	}

	ssName := existing.Name

	if changed, err := jsonDiffers(existing.Spec.Selector, desired.Spec.Selector); err != nil {
		return err
	} else if changed {
		return rustfserr.ImmutableFieldModified("spec.selector",
			fmt.Sprintf("StatefulSet %q selector cannot be modified; pool name may have changed", ssName))
	}

	if existing.Spec.ServiceName != desired.Spec.ServiceName {
		return rustfserr.ImmutableFieldModified("spec.serviceName",
			fmt.Sprintf("StatefulSet %q serviceName cannot be modified", ssName))
	}

	existingVCTs := existing.Spec.VolumeClaimTemplates
	desiredVCTs := desired.Spec.VolumeClaimTemplates

	if len(existingVCTs) != len(desiredVCTs) {
		return rustfserr.ImmutableFieldModified("spec.volumeClaimTemplates",
			fmt.Sprintf("cannot change volumesPerServer from %d to %d; this would modify volumeClaimTemplates which is immutable",
				len(existingVCTs), len(desiredVCTs)))
	}

	for i := range existingVCTs {
		existingName := existingVCTs[i].Name
		desiredName := desiredVCTs[i].Name
		if existingName != desiredName {
			return rustfserr.ImmutableFieldModified(
				fmt.Sprintf("spec.volumeClaimTemplates[%d].metadata.name", i),
				fmt.Sprintf("volume claim template name changed from %q to %q; this is not allowed", existingName, desiredName))
		}

		existingSC := existingVCTs[i].Spec.StorageClassName
		desiredSC := desiredVCTs[i].Spec.StorageClassName
		if !stringPtrEqual(existingSC, desiredSC) {
			return rustfserr.ImmutableFieldModified(
				fmt.Sprintf("spec.volumeClaimTemplates[%d].spec.storageClassName", i),
				fmt.Sprintf("storage class changed from %v to %v; this is not allowed",
					derefOrNil(existingSC), derefOrNil(desiredSC)))
		}
	}

	return nil
}

func int32PtrEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func mapEqual(a, b map[string]string) bool {
	return reflect.DeepEqual(a, b)
}

// jsonDiffers compares two values through their canonical JSON encoding.
func jsonDiffers(a, b interface{}) (bool, error) {
	aj, err := json.Marshal(a)
	if err != nil {
		return false, fmt.Errorf("%w", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("%w", err)
	}
	return string(aj) != string(bj), nil
}

func tolerationsDiffer(a, b []corev1.Toleration) bool {
	if len(a) != len(b) {
		return true
	}
	ak := map[string]int{}
	bk := map[string]int{}
	for _, t := range a {
		ak[tolerationKey(t)]++
	}
	for _, t := range b {
		bk[tolerationKey(t)]++
	}
	return !reflect.DeepEqual(ak, bk)
}

func tolerationKey(t corev1.Toleration) string {
	return fmt.Sprintf("%s|%s|%s|%s|%v", t.Key, t.Operator, t.Value, t.Effect, t.TolerationSeconds)
}

