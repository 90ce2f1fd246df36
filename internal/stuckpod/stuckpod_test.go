package stuckpod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	rustfsv1alpha1 "github.com/rustfs/operator/api/v1alpha1"
	"github.com/rustfs/operator/internal/config"
	"github.com/rustfs/operator/internal/platform"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, rustfsv1alpha1.AddToScheme(scheme))
	return scheme
}

func downNode(name string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionFalse},
			},
		},
	}
}

func terminatingPod(name, node string, ownerKind string) *corev1.Pod {
	now := metav1.NewTime(time.Now())
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         "storage",
			DeletionTimestamp: &now,
			Labels:            map[string]string{config.LabelTenant: "cluster1"},
			OwnerReferences:   []metav1.OwnerReference{{Kind: ownerKind, Name: "owner", Controller: boolPtr(true)}},
		},
		Spec: corev1.PodSpec{NodeName: node},
	}
}

func boolPtr(b bool) *bool { return &b }

func TestReconcileDoNothingPolicySkipsAllPods(t *testing.T) {
	tenant := &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster1", Namespace: "storage"},
		Spec:       rustfsv1alpha1.TenantSpec{PodDeletionPolicyWhenNodeIsDown: rustfsv1alpha1.PodDeletionPolicyDoNothing},
	}
	pod := terminatingPod("pod-0", "node-1", "StatefulSet")
	c := platform.New(fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(downNode("node-1"), pod).Build(), record.NewFakeRecorder(10))

	require.NoError(t, Reconcile(context.Background(), c, tenant))

	var got corev1.Pod
	require.NoError(t, c.Get(context.Background(), client.ObjectKeyFromObject(pod), &got))
}

func TestReconcileForceDeletesStuckPodOnDownNode(t *testing.T) {
	tenant := &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster1", Namespace: "storage"},
		Spec:       rustfsv1alpha1.TenantSpec{PodDeletionPolicyWhenNodeIsDown: rustfsv1alpha1.PodDeletionPolicyForceDelete},
	}
	pod := terminatingPod("pod-0", "node-1", "StatefulSet")
	c := platform.New(fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(downNode("node-1"), pod).Build(), record.NewFakeRecorder(10))

	require.NoError(t, Reconcile(context.Background(), c, tenant))

	var got corev1.Pod
	err := c.Get(context.Background(), client.ObjectKeyFromObject(pod), &got)
	require.Error(t, err)
	assert.True(t, platform.IsNotFound(err))
}

func TestReconcileLeavesPodOnHealthyNode(t *testing.T) {
	tenant := &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster1", Namespace: "storage"},
		Spec:       rustfsv1alpha1.TenantSpec{PodDeletionPolicyWhenNodeIsDown: rustfsv1alpha1.PodDeletionPolicyForceDelete},
	}
	healthyNode := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
		},
	}
	pod := terminatingPod("pod-0", "node-1", "StatefulSet")
	c := platform.New(fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(healthyNode, pod).Build(), record.NewFakeRecorder(10))

	require.NoError(t, Reconcile(context.Background(), c, tenant))

	var got corev1.Pod
	require.NoError(t, c.Get(context.Background(), client.ObjectKeyFromObject(pod), &got))
}

// DeleteStatefulSetPod only matches pods owned by a StatefulSet, never a
// ReplicaSet-owned pod.
func TestDeleteStatefulSetPodPolicyIgnoresDeploymentPods(t *testing.T) {
	tenant := &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{Name: "cluster1", Namespace: "storage"},
		Spec:       rustfsv1alpha1.TenantSpec{PodDeletionPolicyWhenNodeIsDown: rustfsv1alpha1.PodDeletionPolicyDeleteStatefulSetPod},
	}
	pod := terminatingPod("pod-0", "node-1", "ReplicaSet")
	c := platform.New(fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(downNode("node-1"), pod).Build(), record.NewFakeRecorder(10))

	require.NoError(t, Reconcile(context.Background(), c, tenant))

	var got corev1.Pod
	require.NoError(t, c.Get(context.Background(), client.ObjectKeyFromObject(pod), &got))
}

func TestMatchesControllerKind(t *testing.T) {
	stsPod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{OwnerReferences: []metav1.OwnerReference{{Kind: "StatefulSet"}}}}
	rsPod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{OwnerReferences: []metav1.OwnerReference{{Kind: "ReplicaSet"}}}}

	assert.True(t, matchesControllerKind(rustfsv1alpha1.PodDeletionPolicyDeleteStatefulSetPod, stsPod))
	assert.False(t, matchesControllerKind(rustfsv1alpha1.PodDeletionPolicyDeleteStatefulSetPod, rsPod))
	assert.True(t, matchesControllerKind(rustfsv1alpha1.PodDeletionPolicyDeleteBothStatefulSetAndDeploy, rsPod))
	assert.False(t, matchesControllerKind(rustfsv1alpha1.PodDeletionPolicyDoNothing, stsPod))
}
