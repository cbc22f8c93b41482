// Package mcp exposes the kswitch fleet and task surface over the Model
// Context Protocol, so agents can inspect clusters and run automation
// tasks through the same code paths as the terminal UI.
package mcp

const (
	name         = "kswitch"
	instructions = `MCP Server 'kswitch' enables monitoring a fleet of Kubernetes clusters and running curated automation tasks against them.

When to use these tools:
- Checking which clusters exist, which one is current, and how healthy each one is
- Inspecting Flux installation state, reconciler counts, and node readiness per cluster
- Switching the current kubectl context before running other Kubernetes tooling
- Discovering and executing the operator-curated task scripts with their declared inputs

REQUIRED workflow:
1. Use 'list_clusters' first to see all known clusters with their health summaries
2. STOP and carefully READ the output before acting on any cluster
3. Use 'get_cluster_status' with the EXACT context name from 'list_clusters' output for full detail
4. Use 'list_tasks' before 'run_task', and supply every required input listed for the task
5. After 'run_task', use 'get_task_output' to retrieve the captured output if it was truncated
`
)

// truncateString caps str at maxLen bytes and marks the cut.
func truncateString(str string, maxLen int) string {
	if str == "" {
		return ""
	}
	if len(str) > maxLen {
		return str[:maxLen] + "\n[OUTPUT TRUNCATED]"
	}

	return str
}
