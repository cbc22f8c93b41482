package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/log"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
	"github.com/stefanprodan/kswitch-sub001/pkg/version"
)

// configResourceURI identifies the active configuration resource.
const configResourceURI = "kswitch://config"

// FleetService is the cluster surface the tools consume.
// [*fleet.Fleet] implements it.
type FleetService interface {
	Contexts() []fleet.ClusterContext
	Context(name string) (fleet.ClusterContext, bool)
	Snapshot() map[string]*fleet.ClusterStatus
	Status(name string) (*fleet.ClusterStatus, bool)
	Current(ctx context.Context) (string, error)
	Use(ctx context.Context, name string) error
	Refresh(ctx context.Context, name string) *fleet.ClusterStatus
}

// TaskCatalog lists the curated task scripts.
// [*task.Catalog] implements it.
type TaskCatalog interface {
	Dir() string
	Tasks() []task.Task
	Find(ref string) (task.Task, bool)
}

// TaskRunner executes tasks and keeps their most recent runs.
// [*task.Executor] implements it.
type TaskRunner interface {
	Run(ctx context.Context, t task.Task, inputs map[string]string) (*task.Run, error)
	LastRun(path string) (*task.Run, bool)
}

// Server implements the MCP server for kswitch.
type Server struct {
	fleet      FleetService
	catalog    TaskCatalog
	runner     TaskRunner
	server     *mcp.Server
	tracer     trace.Tracer
	address    string
	configYAML []byte
}

// ServerOpt configures a [Server].
type ServerOpt func(*Server)

// WithConfigYAML exposes the given configuration document as an MCP
// resource, so clients can inspect the active settings.
func WithConfigYAML(data []byte) ServerOpt {
	return func(s *Server) {
		s.configYAML = data
	}
}

// NewServer creates a new MCP server instance. An empty address selects the
// stdio transport; otherwise [Server.Serve] listens for streamable HTTP
// connections on it.
func NewServer(address string, flt FleetService, catalog TaskCatalog, runner TaskRunner, opts ...ServerOpt) *Server {
	impl := &mcp.Implementation{
		Name:    name,
		Version: version.GetVersion(),
	}

	s := &Server{
		address: address,
		server:  mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
		fleet:   flt,
		catalog: catalog,
		runner:  runner,
		tracer:  otel.Tracer("mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()

	return s
}

// registerTools registers all available tools with the MCP server.
func (s *Server) registerTools() {
	// Register the list_clusters tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_clusters",
		Description: "List every known cluster context with its health summary. Hidden contexts are omitted unless includeHidden is true.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"includeHidden": {
					Type:        "boolean",
					Description: "Include contexts the operator has hidden from the dashboard.",
				},
			},
		},
	}, traced(s.tracer, s.handleListClusters))

	// Register the get_cluster_status tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_cluster_status",
		Description: "Get the full status of one cluster: reachability, Kubernetes version, nodes, and Flux installation detail. You MUST use an EXACT context name from a list_clusters output.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "The exact context name from list_clusters.",
				},
				"refresh": {
					Type:        "boolean",
					Description: "Re-check the cluster now instead of returning the cached status.",
				},
			},
			Required: []string{"name"},
		},
	}, traced(s.tracer, s.handleGetClusterStatus))

	// Register the set_current_context tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_current_context",
		Description: "Switch the active kubeconfig context, affecting every subsequent kubectl invocation. You MUST use an EXACT context name from a list_clusters output.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "The exact context name from list_clusters.",
				},
			},
			Required: []string{"name"},
		},
	}, traced(s.tracer, s.handleSetCurrentContext))

	// Register the list_tasks tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List the curated automation tasks with their declared inputs. Call this before run_task.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
		},
	}, traced(s.tracer, s.handleListTasks))

	// Register the run_task tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_task",
		Description: "Run a task and wait for it to complete. You MUST supply every required input listed for the task in a list_tasks output.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "The exact task name or path from list_tasks.",
				},
				"inputs": {
					Type:                 "object",
					Description:          "Input values keyed by the input names from list_tasks.",
					AdditionalProperties: &jsonschema.Schema{Type: "string"},
				},
			},
			Required: []string{"name"},
		},
	}, traced(s.tracer, s.handleRunTask))

	// Register the get_task_output tool.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_task_output",
		Description: "Get the last recorded run of a task, including its full captured output.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "The exact task name or path from list_tasks.",
				},
			},
			Required: []string{"name"},
		},
	}, traced(s.tracer, s.handleGetTaskOutput))
}

// registerResources registers MCP resources with the server.
func (s *Server) registerResources() {
	if len(s.configYAML) == 0 {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         configResourceURI,
		Name:        "config",
		Description: "The active kswitch configuration, rendered as YAML.",
		MIMEType:    "application/yaml",
	}, s.handleConfigResource)
}

// handleListClusters handles the list_clusters tool call.
func (s *Server) handleListClusters(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[ListClustersParams],
) (*mcp.CallToolResultFor[ListClustersResult], error) {
	current, err := s.fleet.Current(ctx)
	if err != nil {
		// The listing is still useful without it.
		log.WithContext(ctx).DebugContext(ctx, "current context unavailable", slog.Any("error", err))
	}

	snapshot := s.fleet.Snapshot()

	result := ListClustersResult{
		CurrentContext: current,
		Clusters:       []ClusterSummary{},
	}

	for _, cc := range s.fleet.Contexts() {
		if cc.Hidden && !params.Arguments.IncludeHidden {
			continue
		}

		result.Clusters = append(result.Clusters, newClusterSummary(cc, snapshot[cc.Name], current))
	}

	result.ClusterCount = len(result.Clusters)

	return createListClustersResult(result), nil
}

// handleGetClusterStatus handles the get_cluster_status tool call.
func (s *Server) handleGetClusterStatus(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GetClusterStatusParams],
) (*mcp.CallToolResultFor[GetClusterStatusResult], error) {
	args := params.Arguments

	cc, ok := s.fleet.Context(args.Name)
	if !ok {
		return createGetClusterStatusResult(GetClusterStatusResult{}, args), nil
	}

	var st *fleet.ClusterStatus
	if args.Refresh {
		st = s.fleet.Refresh(ctx, args.Name)
	} else {
		st, _ = s.fleet.Status(args.Name)
	}

	result := GetClusterStatusResult{Found: true}
	if st != nil {
		result.Cluster = newClusterDetails(cc, st)
	}

	return createGetClusterStatusResult(result, args), nil
}

// handleSetCurrentContext handles the set_current_context tool call.
func (s *Server) handleSetCurrentContext(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[SetCurrentContextParams],
) (*mcp.CallToolResultFor[SetCurrentContextResult], error) {
	name := params.Arguments.Name

	if _, ok := s.fleet.Context(name); !ok {
		return createSetCurrentContextResult(SetCurrentContextResult{CurrentContext: name}), nil
	}

	previous, err := s.fleet.Current(ctx)
	if err != nil {
		// Only reported back to the caller, never required.
		log.WithContext(ctx).DebugContext(ctx, "current context unavailable", slog.Any("error", err))
	}

	err = s.fleet.Use(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("set current context: %w", err)
	}

	return createSetCurrentContextResult(SetCurrentContextResult{
		PreviousContext: previous,
		CurrentContext:  name,
		Switched:        true,
	}), nil
}

// handleListTasks handles the list_tasks tool call.
func (s *Server) handleListTasks(
	_ context.Context,
	_ *mcp.ServerSession,
	_ *mcp.CallToolParamsFor[ListTasksParams],
) (*mcp.CallToolResultFor[ListTasksResult], error) {
	result := ListTasksResult{
		Dir:   s.catalog.Dir(),
		Tasks: []TaskSummary{},
	}

	for _, t := range s.catalog.Tasks() {
		result.Tasks = append(result.Tasks, newTaskSummary(t))
	}

	result.TaskCount = len(result.Tasks)

	return createListTasksResult(result), nil
}

// handleRunTask handles the run_task tool call. The call blocks until the
// task completes, times out, or is canceled.
func (s *Server) handleRunTask(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[RunTaskParams],
) (*mcp.CallToolResultFor[RunTaskResult], error) {
	args := params.Arguments

	t, ok := s.catalog.Find(args.Name)
	if !ok {
		return createRunTaskResult(RunTaskResult{
			Task: args.Name,
			Message: fmt.Sprintf(
				"INVALID INPUT ERROR: No task named %q. Use an EXACT name from the list_tasks tool.",
				args.Name,
			),
		}), nil
	}

	run, err := s.runner.Run(ctx, t, args.Inputs)

	switch {
	case errors.Is(err, task.ErrMissingInput):
		return createRunTaskResult(RunTaskResult{
			Task: t.Name,
			Message: fmt.Sprintf(
				"INVALID INPUT ERROR: %v. Supply every required input from the list_tasks output.", err),
		}), nil

	case errors.Is(err, task.ErrAlreadyRunning):
		return createRunTaskResult(RunTaskResult{
			Task: t.Name,
			Message: fmt.Sprintf(
				"Task %q is already running. Wait for it to finish, then use the get_task_output tool.", t.Name),
		}), nil

	case err != nil:
		return nil, fmt.Errorf("run task: %w", err)
	}

	details := newRunDetails(run, runOutputLimit)

	return createRunTaskResult(RunTaskResult{
		Run:     details,
		Task:    t.Name,
		Message: formatRunMessage(t.Name, details),
		Ran:     true,
	}), nil
}

// handleGetTaskOutput handles the get_task_output tool call.
func (s *Server) handleGetTaskOutput(
	_ context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GetTaskOutputParams],
) (*mcp.CallToolResultFor[GetTaskOutputResult], error) {
	args := params.Arguments

	t, ok := s.catalog.Find(args.Name)
	if !ok {
		return createGetTaskOutputResult(GetTaskOutputResult{
			Task: args.Name,
			Message: fmt.Sprintf(
				"INVALID INPUT ERROR: No task named %q. Use an EXACT name from the list_tasks tool.",
				args.Name,
			),
		}), nil
	}

	run, ok := s.runner.LastRun(t.Path)
	if !ok {
		return createGetTaskOutputResult(GetTaskOutputResult{
			Task:    t.Name,
			Message: fmt.Sprintf("Task %q has not run yet. Use the run_task tool to run it.", t.Name),
		}), nil
	}

	details := newRunDetails(run, fullOutputLimit)

	return createGetTaskOutputResult(GetTaskOutputResult{
		Run:     details,
		Task:    t.Name,
		Message: formatRunMessage(t.Name, details),
		Found:   true,
	}), nil
}

// handleConfigResource serves the active configuration resource.
func (s *Server) handleConfigResource(
	_ context.Context,
	_ *mcp.ServerSession,
	_ *mcp.ReadResourceParams,
) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      configResourceURI,
			MIMEType: "application/yaml",
			Text:     string(s.configYAML),
		}},
	}, nil
}

func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve Stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP()
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP() error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func (s *Server) serveStdio(ctx context.Context) error {
	t := mcp.NewLoggingTransport(mcp.NewStdioTransport(), os.Stderr)
	err := s.server.Run(ctx, t)
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
