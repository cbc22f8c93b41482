package mcp

import (
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
)

// ListClustersParams defines parameters for the list_clusters tool.
type ListClustersParams struct {
	IncludeHidden bool `json:"includeHidden,omitempty" jsonschema:"description=include contexts the operator has hidden from the dashboard"`
}

// ClusterSummary is one cluster row in a list_clusters result.
type ClusterSummary struct {
	Name              string `json:"name"`
	DisplayName       string `json:"displayName,omitempty"`
	Health            string `json:"health"`
	Reachability      string `json:"reachability"`
	FluxState         string `json:"fluxState"`
	KubernetesVersion string `json:"kubernetesVersion,omitempty"`
	LastCheckedAt     string `json:"lastCheckedAt,omitempty"`
	ReadyNodes        int    `json:"readyNodes"`
	TotalNodes        int    `json:"totalNodes"`
	Favorite          bool   `json:"favorite,omitempty"`
	Hidden            bool   `json:"hidden,omitempty"`
	Current           bool   `json:"current,omitempty"`
}

// newClusterSummary builds a summary row from a context and its most recent
// status. A nil status means the cluster has never been checked.
func newClusterSummary(cc fleet.ClusterContext, st *fleet.ClusterStatus, current string) ClusterSummary {
	cs := ClusterSummary{
		Name:        cc.Name,
		DisplayName: cc.DisplayName,
		Favorite:    cc.Favorite,
		Hidden:      cc.Hidden,
		Current:     cc.Name == current,
	}

	if st == nil {
		cs.Health = fleet.HealthUnknown.String()
		cs.Reachability = fleet.ReachabilityUnknown.String()
		cs.FluxState = fleet.FluxUnknown.String()

		return cs
	}

	cs.Health = st.Health().String()
	cs.Reachability = st.Reachability.String()
	cs.FluxState = st.FluxState.String()
	cs.KubernetesVersion = st.KubernetesVersion
	cs.ReadyNodes = st.ReadyNodes()
	cs.TotalNodes = len(st.Nodes)

	if !st.LastCheckedAt.IsZero() {
		cs.LastCheckedAt = st.LastCheckedAt.Format(time.RFC3339)
	}

	return cs
}

// ListClustersResult contains the result of listing cluster contexts.
type ListClustersResult struct {
	CurrentContext string           `json:"currentContext,omitempty"`
	Message        string           `json:"message"`
	Clusters       []ClusterSummary `json:"clusters"`
	ClusterCount   int              `json:"clusterCount"`
}

// createListClustersResult creates the MCP tool result from ListClustersResult.
func createListClustersResult(result ListClustersResult) *mcp.CallToolResultFor[ListClustersResult] {
	msg := fmt.Sprintf("Found %d cluster contexts.", result.ClusterCount)
	if result.CurrentContext != "" {
		msg = fmt.Sprintf("Found %d cluster contexts. Current context: %s.",
			result.ClusterCount, result.CurrentContext)
	}

	result.Message = msg

	return &mcp.CallToolResultFor[ListClustersResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		StructuredContent: result,
	}
}

// GetClusterStatusParams defines parameters for the get_cluster_status tool.
type GetClusterStatusParams struct {
	Name    string `json:"name"              jsonschema:"description=the exact context name from list_clusters"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"description=re-check the cluster now instead of returning the cached status"`
}

// ClusterDetails contains the full status of one cluster context.
type ClusterDetails struct {
	Name              string        `json:"name"`
	DisplayName       string        `json:"displayName,omitempty"`
	Health            string        `json:"health"`
	Reachability      string        `json:"reachability"`
	UnreachableReason string        `json:"unreachableReason,omitempty"`
	KubernetesVersion string        `json:"kubernetesVersion,omitempty"`
	FluxState         string        `json:"fluxState"`
	FluxVersion       string        `json:"fluxVersion,omitempty"`
	FetchError        string        `json:"fetchError,omitempty"`
	LastCheckedAt     string        `json:"lastCheckedAt,omitempty"`
	Flux              *FluxDetails  `json:"flux,omitempty"`
	Nodes             []NodeDetails `json:"nodes,omitempty"`
	Favorite          bool          `json:"favorite,omitempty"`
	Hidden            bool          `json:"hidden,omitempty"`
}

// FluxDetails mirrors [fleet.FluxSummary] for tool output.
type FluxDetails struct {
	DistributionVersion  string `json:"distributionVersion,omitempty"`
	OperatorVersion      string `json:"operatorVersion,omitempty"`
	SyncStatus           string `json:"syncStatus,omitempty"`
	SyncReady            bool   `json:"syncReady"`
	RunningReconcilers   int    `json:"runningReconcilers"`
	FailingReconcilers   int    `json:"failingReconcilers"`
	SuspendedReconcilers int    `json:"suspendedReconcilers"`
	ReadyComponents      int    `json:"readyComponents"`
	TotalComponents      int    `json:"totalComponents"`
}

// NodeDetails is one node row in a cluster status.
type NodeDetails struct {
	Name        string `json:"name"`
	CPUMillis   int64  `json:"cpuMillis,omitempty"`
	MemoryBytes int64  `json:"memoryBytes,omitempty"`
	Pods        int    `json:"pods"`
	Ready       bool   `json:"ready"`
}

func newClusterDetails(cc fleet.ClusterContext, st *fleet.ClusterStatus) *ClusterDetails {
	cd := &ClusterDetails{
		Name:              st.Name,
		DisplayName:       cc.DisplayName,
		Health:            st.Health().String(),
		Reachability:      st.Reachability.String(),
		UnreachableReason: st.UnreachableReason,
		KubernetesVersion: st.KubernetesVersion,
		FluxState:         st.FluxState.String(),
		FluxVersion:       st.FluxVersion,
		FetchError:        st.FetchErr,
		Favorite:          cc.Favorite,
		Hidden:            cc.Hidden,
	}

	if !st.LastCheckedAt.IsZero() {
		cd.LastCheckedAt = st.LastCheckedAt.Format(time.RFC3339)
	}

	if fs := st.FluxSummary; fs != nil {
		cd.Flux = &FluxDetails{
			DistributionVersion:  fs.DistributionVersion,
			OperatorVersion:      fs.OperatorVersion,
			SyncStatus:           fs.SyncStatus,
			SyncReady:            fs.SyncReady,
			RunningReconcilers:   fs.RunningReconcilers,
			FailingReconcilers:   fs.FailingReconcilers,
			SuspendedReconcilers: fs.SuspendedReconcilers,
			ReadyComponents:      fs.ReadyComponents,
			TotalComponents:      fs.TotalComponents,
		}
	}

	for _, n := range st.Nodes {
		cd.Nodes = append(cd.Nodes, NodeDetails{
			Name:        n.Name,
			CPUMillis:   n.CPUMillis,
			MemoryBytes: n.MemoryBytes,
			Pods:        n.Pods,
			Ready:       n.Ready,
		})
	}

	return cd
}

// GetClusterStatusResult contains the result of getting a single cluster's status.
type GetClusterStatusResult struct {
	Cluster *ClusterDetails `json:"cluster,omitempty"`
	Message string          `json:"message"`
	Found   bool            `json:"found"`
}

// createGetClusterStatusResult creates the MCP tool result from GetClusterStatusResult.
func createGetClusterStatusResult(
	result GetClusterStatusResult,
	params GetClusterStatusParams,
) *mcp.CallToolResultFor[GetClusterStatusResult] {
	text := formatClusterMessage(result, params)
	result.Message = text

	return &mcp.CallToolResultFor[GetClusterStatusResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		StructuredContent: result,
	}
}

// formatClusterMessage formats the message for the get_cluster_status tool result.
func formatClusterMessage(result GetClusterStatusResult, params GetClusterStatusParams) string {
	if !result.Found {
		return fmt.Sprintf(
			"INVALID INPUT ERROR: No cluster context named %q. Use an EXACT name from the list_clusters tool.",
			params.Name,
		)
	}

	if result.Cluster == nil {
		return fmt.Sprintf(
			"Cluster %q has not been checked yet. Call get_cluster_status with refresh=true to check it now.",
			params.Name,
		)
	}

	return fmt.Sprintf("Cluster %q is %s. Flux: %s.",
		params.Name, result.Cluster.Health, result.Cluster.FluxState)
}

// SetCurrentContextParams defines parameters for the set_current_context tool.
type SetCurrentContextParams struct {
	Name string `json:"name" jsonschema:"description=the exact context name from list_clusters"`
}

// SetCurrentContextResult contains the result of switching the kubeconfig context.
type SetCurrentContextResult struct {
	PreviousContext string `json:"previousContext,omitempty"`
	CurrentContext  string `json:"currentContext"`
	Message         string `json:"message"`
	Switched        bool   `json:"switched"`
}

// createSetCurrentContextResult creates the MCP tool result from SetCurrentContextResult.
func createSetCurrentContextResult(result SetCurrentContextResult) *mcp.CallToolResultFor[SetCurrentContextResult] {
	text := formatSwitchMessage(result)
	result.Message = text

	return &mcp.CallToolResultFor[SetCurrentContextResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		StructuredContent: result,
	}
}

// formatSwitchMessage formats the message for the set_current_context tool result.
func formatSwitchMessage(result SetCurrentContextResult) string {
	if !result.Switched {
		return fmt.Sprintf(
			"INVALID INPUT ERROR: No cluster context named %q. Use an EXACT name from the list_clusters tool.",
			result.CurrentContext,
		)
	}

	if result.PreviousContext != "" && result.PreviousContext != result.CurrentContext {
		return fmt.Sprintf("Switched current context from %q to %q.",
			result.PreviousContext, result.CurrentContext)
	}

	return fmt.Sprintf("Switched current context to %q.", result.CurrentContext)
}
