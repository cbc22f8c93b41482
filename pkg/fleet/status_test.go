package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
)

func TestClusterStatus_Health(t *testing.T) {
	t.Parallel()

	checked := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tcs := map[string]struct {
		status fleet.ClusterStatus
		want   fleet.Health
		label  string
	}{
		"never checked": {
			status: fleet.ClusterStatus{Name: "prod"},
			want:   fleet.HealthUnknown,
			label:  "Unknown",
		},
		"reachable and clean": {
			status: fleet.ClusterStatus{
				Name:          "prod",
				Reachability:  fleet.ReachabilityReachable,
				LastCheckedAt: checked,
				Nodes:         []kube.Node{{Name: "a", Ready: true}},
			},
			want:  fleet.HealthHealthy,
			label: "Healthy",
		},
		"reachable with node down": {
			status: fleet.ClusterStatus{
				Name:          "prod",
				Reachability:  fleet.ReachabilityReachable,
				LastCheckedAt: checked,
				Nodes:         []kube.Node{{Name: "a", Ready: true}, {Name: "b"}},
			},
			want:  fleet.HealthDegraded,
			label: "Degraded",
		},
		"reachable with failing reconcilers": {
			status: fleet.ClusterStatus{
				Name:          "prod",
				Reachability:  fleet.ReachabilityReachable,
				LastCheckedAt: checked,
				FluxSummary:   &fleet.FluxSummary{FailingReconcilers: 1},
			},
			want:  fleet.HealthDegraded,
			label: "Degraded",
		},
		"reachable with partial fetch error": {
			status: fleet.ClusterStatus{
				Name:          "prod",
				Reachability:  fleet.ReachabilityReachable,
				LastCheckedAt: checked,
				FetchErr:      "nodes: connection reset",
			},
			want:  fleet.HealthDegraded,
			label: "Degraded",
		},
		"unreachable": {
			status: fleet.ClusterStatus{
				Name:              "prod",
				Reachability:      fleet.ReachabilityUnreachable,
				UnreachableReason: "dial tcp: i/o timeout",
				LastCheckedAt:     checked,
			},
			want:  fleet.HealthOffline,
			label: "Offline",
		},
		"checking keeps previous healthy rollup": {
			status: fleet.ClusterStatus{
				Name:          "prod",
				Reachability:  fleet.ReachabilityChecking,
				LastCheckedAt: checked,
				Nodes:         []kube.Node{{Name: "a", Ready: true}},
			},
			want:  fleet.HealthHealthy,
			label: "Healthy",
		},
		"checking keeps previous offline rollup": {
			status: fleet.ClusterStatus{
				Name:              "prod",
				Reachability:      fleet.ReachabilityChecking,
				UnreachableReason: "dial tcp: i/o timeout",
				LastCheckedAt:     checked,
			},
			want:  fleet.HealthOffline,
			label: "Offline",
		},
		"checking before any observation": {
			status: fleet.ClusterStatus{
				Name:         "prod",
				Reachability: fleet.ReachabilityChecking,
			},
			want:  fleet.HealthUnknown,
			label: "Unknown",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.status.Health())
			assert.Equal(t, tc.label, tc.status.StatusLabel())
		})
	}
}

func TestClusterStatus_IsDegraded(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		status fleet.ClusterStatus
		want   bool
	}{
		"clean": {
			status: fleet.ClusterStatus{
				Nodes:       []kube.Node{{Name: "a", Ready: true}},
				FluxSummary: &fleet.FluxSummary{RunningReconcilers: 4},
			},
			want: false,
		},
		"node not ready": {
			status: fleet.ClusterStatus{
				Nodes: []kube.Node{{Name: "a", Ready: true}, {Name: "b"}},
			},
			want: true,
		},
		"failing reconciler": {
			status: fleet.ClusterStatus{
				FluxSummary: &fleet.FluxSummary{FailingReconcilers: 2},
			},
			want: true,
		},
		"fetch error": {
			status: fleet.ClusterStatus{FetchErr: "boom"},
			want:   true,
		},
		"component not ready does not degrade the cluster": {
			status: fleet.ClusterStatus{
				FluxState:   fleet.FluxDegraded,
				FluxSummary: &fleet.FluxSummary{ReadyComponents: 1, TotalComponents: 2},
			},
			want: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.status.IsDegraded())
		})
	}
}

func TestClusterStatus_Clone(t *testing.T) {
	t.Parallel()

	orig := &fleet.ClusterStatus{
		Name:              "prod",
		Reachability:      fleet.ReachabilityReachable,
		KubernetesVersion: "v1.31.2",
		Nodes:             []kube.Node{{Name: "a", Ready: true, Pods: 12}},
		FluxSummary:       &fleet.FluxSummary{RunningReconcilers: 4},
	}

	clone := orig.Clone()
	clone.Nodes[0].Ready = false
	clone.Nodes[0].Pods = 0
	clone.FluxSummary.FailingReconcilers = 7
	clone.KubernetesVersion = "v1.30.0"

	assert.True(t, orig.Nodes[0].Ready)
	assert.Equal(t, 12, orig.Nodes[0].Pods)
	assert.Equal(t, 0, orig.FluxSummary.FailingReconcilers)
	assert.Equal(t, "v1.31.2", orig.KubernetesVersion)

	var nilStatus *fleet.ClusterStatus

	assert.Nil(t, nilStatus.Clone())
}

func TestClusterStatus_ReadyNodes(t *testing.T) {
	t.Parallel()

	st := fleet.ClusterStatus{
		Nodes: []kube.Node{
			{Name: "a", Ready: true},
			{Name: "b"},
			{Name: "c", Ready: true},
		},
	}

	assert.Equal(t, 2, st.ReadyNodes())
	assert.Equal(t, 0, (&fleet.ClusterStatus{}).ReadyNodes())
}
