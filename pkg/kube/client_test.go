package kube_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanprodan/kswitch-sub001/pkg/execs"
	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
)

type kubectlResponse struct {
	stdout string
	stderr string
	exit   int
}

// fakeKubectl writes an executable that answers canned responses keyed on
// its full argument list, so tests also pin the exact arguments sent.
func fakeKubectl(t *testing.T, responses map[string]kubectlResponse) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\ncase \"$*\" in\n")

	for args, resp := range responses {
		fmt.Fprintf(&sb, "%q)\n", args)

		if resp.stdout != "" {
			sb.WriteString("cat <<'KSWITCH_EOF'\n")
			sb.WriteString(strings.TrimSuffix(resp.stdout, "\n"))
			sb.WriteString("\nKSWITCH_EOF\n")
		}

		if resp.stderr != "" {
			sb.WriteString("cat >&2 <<'KSWITCH_EOF'\n")
			sb.WriteString(strings.TrimSuffix(resp.stderr, "\n"))
			sb.WriteString("\nKSWITCH_EOF\n")
		}

		fmt.Fprintf(&sb, "exit %d\n;;\n", resp.exit)
	}

	sb.WriteString("*)\necho \"unexpected args: $*\" >&2\nexit 64\n;;\nesac\n")

	path := filepath.Join(t.TempDir(), "kubectl")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o755))

	return path
}

const configViewJSON = `{
  "kind": "Config",
  "apiVersion": "v1",
  "current-context": "kind-dev",
  "contexts": [
    {"name": "kind-dev", "context": {"cluster": "kind-dev", "user": "kind-dev", "namespace": "default"}},
    {"name": "prod-eu", "context": {"cluster": "prod-eu", "user": "admin"}}
  ]
}`

func TestClient_ListContexts(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"config view -o json": {stdout: configViewJSON},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	contexts, err := client.ListContexts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []kube.Context{
		{Name: "kind-dev", Cluster: "kind-dev", User: "kind-dev", Namespace: "default"},
		{Name: "prod-eu", Cluster: "prod-eu", User: "admin"},
	}, contexts)
}

func TestClient_CurrentContext(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"config view -o json": {stdout: configViewJSON},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	current, err := client.CurrentContext(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "kind-dev", current)
}

func TestClient_SetCurrentContext(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"config use-context prod-eu": {},
		"config use-context bogus": {
			stderr: `error: no context exists with the name: "bogus"`,
			exit:   1,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	require.NoError(t, client.SetCurrentContext(t.Context(), "prod-eu"))

	err := client.SetCurrentContext(t.Context(), "bogus")
	require.ErrorIs(t, err, kube.ErrCommandFailed)
	assert.Contains(t, err.Error(), "no context exists")
}

func TestClient_ServerVersion(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu version -o json": {
			stdout: `{"clientVersion": {"gitVersion": "v1.33.0"}, "serverVersion": {"major": "1", "minor": "32", "gitVersion": "v1.32.3+k3s1"}}`,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	version, err := client.ServerVersion(t.Context(), "prod-eu")
	require.NoError(t, err)
	assert.Equal(t, "v1.32.3+k3s1", version)
}

func TestClient_ServerVersion_Unreachable(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu version -o json": {
			stderr: "Unable to connect to the server: dial tcp 10.0.0.1:6443: i/o timeout",
			exit:   1,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	_, err := client.ServerVersion(t.Context(), "prod-eu")
	require.ErrorIs(t, err, kube.ErrCommandFailed)
	assert.Contains(t, err.Error(), "Unable to connect to the server")
}

func TestClient_Nodes(t *testing.T) {
	t.Parallel()

	nodesJSON := `{
  "items": [
    {
      "metadata": {"name": "node-a"},
      "status": {
        "conditions": [
          {"type": "MemoryPressure", "status": "False"},
          {"type": "Ready", "status": "True"}
        ],
        "capacity": {"cpu": "8", "memory": "16Gi", "pods": "110"}
      }
    },
    {
      "metadata": {"name": "node-b"},
      "status": {
        "conditions": [{"type": "Ready", "status": "False"}],
        "capacity": {"cpu": "500m", "memory": "16265720Ki"}
      }
    }
  ]
}`

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu get nodes -o json": {stdout: nodesJSON},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	nodes, err := client.Nodes(t.Context(), "prod-eu")
	require.NoError(t, err)
	assert.Equal(t, []kube.Node{
		{Name: "node-a", Ready: true, CPUMillis: 8000, MemoryBytes: 16 << 30},
		{Name: "node-b", Ready: false, CPUMillis: 500, MemoryBytes: 16265720 << 10},
	}, nodes)
}

func TestClient_PodCounts(t *testing.T) {
	t.Parallel()

	podsJSON := `{
  "items": [
    {"spec": {"nodeName": "node-a"}, "status": {"phase": "Running"}},
    {"spec": {"nodeName": "node-a"}, "status": {"phase": "Succeeded"}},
    {"spec": {"nodeName": "node-b"}, "status": {"phase": "Running"}},
    {"spec": {"nodeName": "node-b"}, "status": {"phase": "Pending"}},
    {"spec": {"nodeName": "node-b"}, "status": {"phase": "Failed"}},
    {"spec": {"nodeName": ""}, "status": {"phase": "Pending"}}
  ]
}`

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu get pods --all-namespaces -o json": {stdout: podsJSON},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	counts, err := client.PodCounts(t.Context(), "prod-eu")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"node-a": 1, "node-b": 2}, counts)
}

func TestClient_GetFluxReport(t *testing.T) {
	t.Parallel()

	reportJSON := `{
  "items": [
    {
      "apiVersion": "fluxcd.controlplane.io/v1",
      "kind": "FluxReport",
      "metadata": {"name": "flux", "namespace": "flux-system"},
      "spec": {
        "distribution": {"version": "v2.4.0", "status": "Installed", "entitlement": "Issued"},
        "components": [
          {"name": "source-controller", "ready": true, "image": "ghcr.io/fluxcd/source-controller:v1.4.1"},
          {"name": "kustomize-controller", "ready": false}
        ],
        "reconcilers": [
          {"apiVersion": "kustomize.toolkit.fluxcd.io/v1", "kind": "Kustomization", "stats": {"running": 4, "failing": 1, "suspended": 0}},
          {"apiVersion": "source.toolkit.fluxcd.io/v1", "kind": "GitRepository", "stats": {"running": 2, "failing": 0, "suspended": 1}}
        ],
        "sync": {"ready": true, "status": "Applied revision: main@sha1:1234abcd", "source": "https://github.com/org/fleet", "id": "kustomization/flux-system"},
        "operator": {"version": "v0.14.0", "apiVersion": "fluxcd.controlplane.io/v1"}
      }
    }
  ]
}`

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu get fluxreports --all-namespaces -o json": {stdout: reportJSON},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	report, err := client.GetFluxReport(t.Context(), "prod-eu")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "v2.4.0", report.Spec.Distribution.Version)
	assert.Equal(t, "v0.14.0", report.Spec.Operator.Version)
	require.Len(t, report.Spec.Components, 2)
	assert.True(t, report.Spec.Components[0].Ready)
	assert.False(t, report.Spec.Components[1].Ready)
	require.Len(t, report.Spec.Reconcilers, 2)
	assert.Equal(t, 1, report.Spec.Reconcilers[0].Stats.Failing)
	assert.Equal(t, 1, report.Spec.Reconcilers[1].Stats.Suspended)
	require.NotNil(t, report.Spec.Sync)
	assert.True(t, report.Spec.Sync.Ready)
}

func TestClient_GetFluxReport_NotInstalled(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context bare get fluxreports --all-namespaces -o json": {
			stderr: `error: the server doesn't have a resource type "fluxreports"`,
			exit:   1,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	report, err := client.GetFluxReport(t.Context(), "bare")
	require.ErrorIs(t, err, kube.ErrFluxNotInstalled)
	assert.Nil(t, report)
}

func TestClient_GetFluxReport_EmptyList(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context fresh get fluxreports --all-namespaces -o json": {
			stdout: `{"items": []}`,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	_, err := client.GetFluxReport(t.Context(), "fresh")
	require.ErrorIs(t, err, kube.ErrFluxNotInstalled)
}

func TestClient_GetFluxReport_OtherFailure(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context down get fluxreports --all-namespaces -o json": {
			stderr: "The connection to the server 10.0.0.1:6443 was refused",
			exit:   1,
		},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	_, err := client.GetFluxReport(t.Context(), "down")
	require.ErrorIs(t, err, kube.ErrCommandFailed)
	require.NotErrorIs(t, err, kube.ErrFluxNotInstalled)
	assert.Contains(t, err.Error(), "refused")
}

func TestClient_DecodeError(t *testing.T) {
	t.Parallel()

	path := fakeKubectl(t, map[string]kubectlResponse{
		"--context prod-eu get nodes -o json": {stdout: "not json at all"},
	})
	client := kube.NewClient(kube.WithKubectlPath(path))

	_, err := client.Nodes(t.Context(), "prod-eu")
	require.ErrorIs(t, err, kube.ErrDecode)
}

func TestClient_KubectlNotFound(t *testing.T) {
	t.Parallel()

	resolver := execs.NewResolver(
		execs.WithEnviron([]string{"HOME=" + t.TempDir()}),
		execs.WithProbe(func(string) bool { return false }),
	)
	client := kube.NewClient(kube.WithResolver(resolver))

	_, err := client.ListContexts(t.Context())
	require.ErrorIs(t, err, kube.ErrKubectlNotFound)
}
