package mcp

import (
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stefanprodan/kswitch-sub001/pkg/ansis"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

// Output limits for task tool results. run_task returns a preview sized for
// a transcript; get_task_output returns the full capture.
const (
	runOutputLimit  = 10000
	fullOutputLimit = 100000
)

// ListTasksParams defines parameters for the list_tasks tool.
type ListTasksParams struct{}

// TaskInputSummary is one declared input of a task.
type TaskInputSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// TaskSummary is one task row in a list_tasks result.
type TaskSummary struct {
	Name        string             `json:"name"`
	Path        string             `json:"path"`
	Description string             `json:"description,omitempty"`
	Inputs      []TaskInputSummary `json:"inputs,omitempty"`
}

func newTaskSummary(t task.Task) TaskSummary {
	ts := TaskSummary{
		Name:        t.Name,
		Path:        t.Path,
		Description: t.Description,
	}

	for _, in := range t.Inputs {
		ts.Inputs = append(ts.Inputs, TaskInputSummary{
			Name:        in.Name,
			Description: in.Description,
			Required:    in.Required,
		})
	}

	return ts
}

// ListTasksResult contains the result of listing tasks.
type ListTasksResult struct {
	Dir       string        `json:"dir,omitempty"`
	Message   string        `json:"message"`
	Tasks     []TaskSummary `json:"tasks"`
	TaskCount int           `json:"taskCount"`
}

// createListTasksResult creates the MCP tool result from ListTasksResult.
func createListTasksResult(result ListTasksResult) *mcp.CallToolResultFor[ListTasksResult] {
	msg := fmt.Sprintf("Found %d tasks.", result.TaskCount)
	if result.TaskCount == 0 && result.Dir != "" {
		msg = fmt.Sprintf("Found no tasks. Add executable scripts under %s to define them.", result.Dir)
	}

	result.Message = msg

	return &mcp.CallToolResultFor[ListTasksResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		StructuredContent: result,
	}
}

// RunTaskParams defines parameters for the run_task tool.
type RunTaskParams struct {
	Inputs map[string]string `json:"inputs,omitempty" jsonschema:"description=input values keyed by the input names from list_tasks"`
	Name   string            `json:"name"             jsonschema:"description=the exact task name or path from list_tasks"`
}

// RunDetails describes one recorded task run. Output is the captured
// stdout and stderr with terminal escape sequences stripped.
type RunDetails struct {
	StartedAt string            `json:"startedAt"`
	Duration  string            `json:"duration"`
	Output    string            `json:"output,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty"`
	ExitCode  int               `json:"exitCode"`
	Succeeded bool              `json:"succeeded"`
	TimedOut  bool              `json:"timedOut"`
	Canceled  bool              `json:"canceled"`
}

func newRunDetails(run *task.Run, outputLimit int) *RunDetails {
	return &RunDetails{
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Duration:  run.Duration.Round(time.Millisecond).String(),
		Output:    truncateString(ansis.Plain(run.RawOutput), outputLimit),
		Inputs:    run.InputValues,
		ExitCode:  run.ExitCode,
		Succeeded: run.Succeeded(),
		TimedOut:  run.TimedOut,
		Canceled:  run.Canceled,
	}
}

// RunTaskResult contains the result of running a task. Ran is false when
// the task never started, with Message explaining why.
type RunTaskResult struct {
	Run     *RunDetails `json:"run,omitempty"`
	Task    string      `json:"task"`
	Message string      `json:"message"`
	Ran     bool        `json:"ran"`
}

// createRunTaskResult creates the MCP tool result from RunTaskResult. The
// message is set by the handler; run outcomes have too many causes to
// derive it here.
func createRunTaskResult(result RunTaskResult) *mcp.CallToolResultFor[RunTaskResult] {
	return &mcp.CallToolResultFor[RunTaskResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.Message},
		},
		StructuredContent: result,
	}
}

// GetTaskOutputParams defines parameters for the get_task_output tool.
type GetTaskOutputParams struct {
	Name string `json:"name" jsonschema:"description=the exact task name or path from list_tasks"`
}

// GetTaskOutputResult contains the last recorded run of a task.
type GetTaskOutputResult struct {
	Run     *RunDetails `json:"run,omitempty"`
	Task    string      `json:"task"`
	Message string      `json:"message"`
	Found   bool        `json:"found"`
}

// createGetTaskOutputResult creates the MCP tool result from GetTaskOutputResult.
func createGetTaskOutputResult(result GetTaskOutputResult) *mcp.CallToolResultFor[GetTaskOutputResult] {
	return &mcp.CallToolResultFor[GetTaskOutputResult]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.Message},
		},
		StructuredContent: result,
	}
}

// formatRunMessage formats the outcome of a completed run.
func formatRunMessage(taskName string, run *RunDetails) string {
	switch {
	case run.Succeeded:
		return fmt.Sprintf("Task %q succeeded in %s.", taskName, run.Duration)
	case run.TimedOut:
		return fmt.Sprintf("Task %q timed out after %s.", taskName, run.Duration)
	case run.Canceled:
		return fmt.Sprintf("Task %q was canceled after %s.", taskName, run.Duration)
	default:
		return fmt.Sprintf("Task %q failed with exit code %d.", taskName, run.ExitCode)
	}
}
