package kube

import (
	"strconv"
	"strings"
)

// Context is one named cluster connection profile from the kubeconfig.
type Context struct {
	Name      string
	Cluster   string
	User      string
	Namespace string
}

// kubeconfigView matches `kubectl config view -o json`.
type kubeconfigView struct {
	CurrentContext string `json:"current-context"`
	Contexts       []struct {
		Name    string `json:"name"`
		Context struct {
			Cluster   string `json:"cluster"`
			User      string `json:"user"`
			Namespace string `json:"namespace"`
		} `json:"context"`
	} `json:"contexts"`
}

// versionInfo matches `kubectl version -o json`.
type versionInfo struct {
	ServerVersion struct {
		GitVersion string `json:"gitVersion"`
		Major      string `json:"major"`
		Minor      string `json:"minor"`
	} `json:"serverVersion"`
}

// Node is the subset of node state the fleet cares about. Pods is filled in
// from [Client.PodCounts], not from the node object itself.
type Node struct {
	Name        string
	Ready       bool
	CPUMillis   int64
	MemoryBytes int64
	Pods        int
}

type nodeList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Status struct {
			Conditions []struct {
				Type   string `json:"type"`
				Status string `json:"status"`
			} `json:"conditions"`
			Capacity map[string]string `json:"capacity"`
		} `json:"status"`
	} `json:"items"`
}

func (l nodeList) nodes() []Node {
	nodes := make([]Node, 0, len(l.Items))

	for _, item := range l.Items {
		node := Node{
			Name:        item.Metadata.Name,
			CPUMillis:   parseCPU(item.Status.Capacity["cpu"]),
			MemoryBytes: parseMemory(item.Status.Capacity["memory"]),
		}

		for _, cond := range item.Status.Conditions {
			if cond.Type == "Ready" {
				node.Ready = cond.Status == "True"

				break
			}
		}

		nodes = append(nodes, node)
	}

	return nodes
}

// podList decodes only what pod counting needs.
type podList struct {
	Items []struct {
		Spec struct {
			NodeName string `json:"nodeName"`
		} `json:"spec"`
		Status struct {
			Phase string `json:"phase"`
		} `json:"status"`
	} `json:"items"`
}

// FluxReport mirrors the spec of the FluxReport custom resource, the status
// document the Flux operator publishes about its own installation.
type FluxReport struct {
	Spec FluxReportSpec `json:"spec"`
}

type FluxReportSpec struct {
	Distribution FluxDistribution `json:"distribution"`
	Components   []FluxComponent  `json:"components,omitempty"`
	Reconcilers  []FluxReconciler `json:"reconcilers,omitempty"`
	Sync         *FluxSync        `json:"sync,omitempty"`
	Operator     *FluxOperator    `json:"operator,omitempty"`
}

type FluxDistribution struct {
	Version     string `json:"version"`
	Status      string `json:"status"`
	Entitlement string `json:"entitlement"`
	ManagedBy   string `json:"managedBy,omitempty"`
}

type FluxComponent struct {
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Status string `json:"status,omitempty"`
	Ready  bool   `json:"ready"`
}

type FluxReconciler struct {
	APIVersion string              `json:"apiVersion"`
	Kind       string              `json:"kind"`
	Stats      FluxReconcilerStats `json:"stats"`
}

type FluxReconcilerStats struct {
	Running   int `json:"running"`
	Failing   int `json:"failing"`
	Suspended int `json:"suspended"`
}

type FluxSync struct {
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
	Ready  bool   `json:"ready"`
}

type FluxOperator struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Version    string `json:"version,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

type fluxReportList struct {
	Items []FluxReport `json:"items"`
}

// parseCPU converts a Kubernetes CPU quantity ("8", "500m") to millicores.
// Unparsable input yields zero rather than an error; capacity strings come
// from the API server and a bad one should not fail the whole node fetch.
func parseCPU(q string) int64 {
	if q == "" {
		return 0
	}

	if strings.HasSuffix(q, "m") {
		v, err := strconv.ParseInt(strings.TrimSuffix(q, "m"), 10, 64)
		if err != nil {
			return 0
		}

		return v
	}

	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 0
	}

	return int64(v * 1000)
}

// memorySuffixes is ordered binary-first so "Mi" is never misread as "M".
var memorySuffixes = []struct {
	suffix string
	factor int64
}{
	{"Ki", 1 << 10},
	{"Mi", 1 << 20},
	{"Gi", 1 << 30},
	{"Ti", 1 << 40},
	{"Pi", 1 << 50},
	{"k", 1_000},
	{"M", 1_000_000},
	{"G", 1_000_000_000},
	{"T", 1_000_000_000_000},
}

// parseMemory converts a Kubernetes memory quantity ("16265720Ki", "15Gi")
// to bytes. Unparsable input yields zero.
func parseMemory(q string) int64 {
	if q == "" {
		return 0
	}

	for _, s := range memorySuffixes {
		if strings.HasSuffix(q, s.suffix) {
			v, err := strconv.ParseInt(strings.TrimSuffix(q, s.suffix), 10, 64)
			if err != nil {
				return 0
			}

			return v * s.factor
		}
	}

	v, err := strconv.ParseInt(q, 10, 64)
	if err != nil {
		return 0
	}

	return v
}
