package kube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/execs"
	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

var (
	// ErrKubectlNotFound indicates that no kubectl binary could be located.
	ErrKubectlNotFound = errors.New("kubectl not found")

	// ErrCommandFailed indicates a non-zero exit from a spawned kubectl,
	// carrying the captured diagnostic text.
	ErrCommandFailed = errors.New("kubectl command failed")

	// ErrDecode indicates kubectl output that did not match the expected
	// JSON shape.
	ErrDecode = errors.New("decode kubectl output")

	// ErrFluxNotInstalled indicates a cluster without the FluxReport custom
	// resource. It is an expected outcome, not a failure.
	ErrFluxNotInstalled = errors.New("flux not installed")
)

// fluxNotInstalledPhrase is the diagnostic kubectl prints when a cluster
// does not know a resource type. Matching it is a heuristic, but it is the
// only signal that distinguishes an absent CRD from a real failure.
// TODO: revisit the match if kubectl ever rewords this diagnostic.
const fluxNotInstalledPhrase = "doesn't have a resource type"

// Client issues kubectl commands against cluster contexts. Calls that
// target a cluster inject --context instead of mutating shared kubeconfig
// state, so concurrent calls against different contexts never interfere.
type Client struct {
	tracer      trace.Tracer
	resolver    *execs.Resolver
	kubectlPath string
	kubeconfigs []string
	timeout     time.Duration
}

// ClientOpt configures a [Client].
type ClientOpt func(*Client)

// WithKubectlPath pins the kubectl binary, bypassing discovery.
func WithKubectlPath(path string) ClientOpt {
	return func(c *Client) {
		c.kubectlPath = path
	}
}

// WithKubeconfigs sets the kubeconfig files passed to every invocation.
func WithKubeconfigs(paths ...string) ClientOpt {
	return func(c *Client) {
		c.kubeconfigs = paths
	}
}

// WithCallTimeout bounds each kubectl invocation.
func WithCallTimeout(d time.Duration) ClientOpt {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithResolver replaces the default executable resolver.
func WithResolver(r *execs.Resolver) ClientOpt {
	return func(c *Client) {
		c.resolver = r
	}
}

// NewClient creates a kubectl client.
func NewClient(opts ...ClientOpt) *Client {
	c := &Client{
		tracer:  otel.Tracer("kube"),
		timeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.resolver == nil {
		c.resolver = execs.NewResolver()
	}

	return c
}

// kubectl returns the binary path, preferring the configured override.
// Discovery misses are not cached by the resolver, so a kubectl installed
// later is picked up without a restart.
func (c *Client) kubectl(ctx context.Context) (string, error) {
	if c.kubectlPath != "" {
		return c.kubectlPath, nil
	}

	if path, ok := c.resolver.Find(ctx, "kubectl"); ok {
		return path, nil
	}

	return "", ErrKubectlNotFound
}

// ListContexts returns the contexts declared in the kubeconfig, in file
// order.
func (c *Client) ListContexts(ctx context.Context) ([]Context, error) {
	ctx, span := c.tracer.Start(ctx, "kube.ListContexts")
	defer span.End()

	view, err := c.configView(ctx)
	if err != nil {
		return nil, err
	}

	contexts := make([]Context, 0, len(view.Contexts))
	for _, item := range view.Contexts {
		contexts = append(contexts, Context{
			Name:      item.Name,
			Cluster:   item.Context.Cluster,
			User:      item.Context.User,
			Namespace: item.Context.Namespace,
		})
	}

	return contexts, nil
}

// CurrentContext returns the active context name, or empty when none is
// set.
func (c *Client) CurrentContext(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "kube.CurrentContext")
	defer span.End()

	view, err := c.configView(ctx)
	if err != nil {
		return "", err
	}

	return view.CurrentContext, nil
}

// SetCurrentContext switches the active kubeconfig context.
func (c *Client) SetCurrentContext(ctx context.Context, name string) error {
	ctx, span := c.tracer.Start(ctx, "kube.SetCurrentContext",
		trace.WithAttributes(attribute.String("kube.context", name)))
	defer span.End()

	res, err := c.run(ctx, "", "config", "use-context", name)
	if err != nil {
		return err
	}

	if !res.Succeeded() {
		return c.commandFailed(ctx, res)
	}

	log.WithContext(ctx).InfoContext(ctx, "switched context",
		slog.String("context", name),
	)

	return nil
}

// ServerVersion returns the control plane version reported by the given
// context. A failure here is the primary unreachability signal.
func (c *Client) ServerVersion(ctx context.Context, kubeContext string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "kube.ServerVersion",
		trace.WithAttributes(attribute.String("kube.context", kubeContext)))
	defer span.End()

	res, err := c.run(ctx, kubeContext, "version", "-o", "json")
	if err != nil {
		return "", err
	}

	if !res.Succeeded() {
		return "", c.commandFailed(ctx, res)
	}

	var info versionInfo
	if err := c.decode(ctx, res.Stdout, &info); err != nil {
		return "", err
	}

	return info.ServerVersion.GitVersion, nil
}

// Nodes returns the nodes of the given context. Pod counts come separately
// from [Client.PodCounts].
func (c *Client) Nodes(ctx context.Context, kubeContext string) ([]Node, error) {
	ctx, span := c.tracer.Start(ctx, "kube.Nodes",
		trace.WithAttributes(attribute.String("kube.context", kubeContext)))
	defer span.End()

	res, err := c.run(ctx, kubeContext, "get", "nodes", "-o", "json")
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		return nil, c.commandFailed(ctx, res)
	}

	var list nodeList
	if err := c.decode(ctx, res.Stdout, &list); err != nil {
		return nil, err
	}

	return list.nodes(), nil
}

// PodCounts returns the number of active pods per node name. Succeeded and
// failed pods are excluded.
func (c *Client) PodCounts(ctx context.Context, kubeContext string) (map[string]int, error) {
	ctx, span := c.tracer.Start(ctx, "kube.PodCounts",
		trace.WithAttributes(attribute.String("kube.context", kubeContext)))
	defer span.End()

	res, err := c.run(ctx, kubeContext, "get", "pods", "--all-namespaces", "-o", "json")
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		return nil, c.commandFailed(ctx, res)
	}

	var list podList
	if err := c.decode(ctx, res.Stdout, &list); err != nil {
		return nil, err
	}

	counts := make(map[string]int)

	for _, item := range list.Items {
		if item.Spec.NodeName == "" {
			continue
		}

		if item.Status.Phase == "Succeeded" || item.Status.Phase == "Failed" {
			continue
		}

		counts[item.Spec.NodeName]++
	}

	return counts, nil
}

// GetFluxReport fetches the FluxReport resource of the given context. A
// cluster without the CRD returns [ErrFluxNotInstalled]; that outcome is
// expected and only traced at debug level, while any other failure is
// logged as an error.
func (c *Client) GetFluxReport(ctx context.Context, kubeContext string) (*FluxReport, error) {
	ctx, span := c.tracer.Start(ctx, "kube.GetFluxReport",
		trace.WithAttributes(attribute.String("kube.context", kubeContext)))
	defer span.End()

	res, err := c.run(ctx, kubeContext, "get", "fluxreports", "--all-namespaces", "-o", "json")
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		if strings.Contains(res.Output(), fluxNotInstalledPhrase) {
			log.WithContext(ctx).DebugContext(ctx, "flux not installed",
				slog.String("context", kubeContext),
			)

			return nil, ErrFluxNotInstalled
		}

		return nil, c.commandFailed(ctx, res)
	}

	var list fluxReportList
	if err := c.decode(ctx, res.Stdout, &list); err != nil {
		return nil, err
	}

	if len(list.Items) == 0 {
		// CRD registered but no report published yet.
		return nil, ErrFluxNotInstalled
	}

	return &list.Items[0], nil
}

// configView returns the merged kubeconfig as kubectl sees it, honoring
// the configured kubeconfig list.
func (c *Client) configView(ctx context.Context) (*kubeconfigView, error) {
	res, err := c.run(ctx, "", "config", "view", "-o", "json")
	if err != nil {
		return nil, err
	}

	if !res.Succeeded() {
		return nil, c.commandFailed(ctx, res)
	}

	var view kubeconfigView
	if err := c.decode(ctx, res.Stdout, &view); err != nil {
		return nil, err
	}

	return &view, nil
}

// run executes kubectl with the given arguments, injecting --context when a
// context is targeted. The child environment is explicit: essential caller
// variables plus KUBECONFIG, nothing else.
func (c *Client) run(ctx context.Context, kubeContext string, args ...string) (*execs.Result, error) {
	path, err := c.kubectl(ctx)
	if err != nil {
		return nil, err
	}

	cmd := execs.NewCommand(os.Environ())
	cmd.Command = path

	if kubeContext != "" {
		cmd.Args = append(cmd.Args, "--context", kubeContext)
	}

	cmd.Args = append(cmd.Args, args...)

	if len(c.kubeconfigs) > 0 {
		cmd.AddEnvVar(execs.EnvVar{
			Name:  "KUBECONFIG",
			Value: strings.Join(c.kubeconfigs, string(os.PathListSeparator)),
		})
	} else {
		cmd.AddEnvFrom([]execs.EnvFromSource{
			{CallerRef: &execs.CallerRef{Name: "KUBECONFIG"}},
		})
	}

	executor := execs.NewExecutorWith(cmd, nil, execs.WithTimeout(c.timeout))

	return executor.Exec(ctx, "")
}

// commandFailed converts a non-zero result into an error and logs it.
func (c *Client) commandFailed(ctx context.Context, res *execs.Result) error {
	msg := strings.TrimSpace(res.Output())
	if msg == "" {
		msg = fmt.Sprintf("exit code %d", res.ExitCode)
	}

	var err error
	if res.TimedOut {
		err = fmt.Errorf("%w: timed out: %s", ErrCommandFailed, msg)
	} else {
		err = fmt.Errorf("%w: %s", ErrCommandFailed, msg)
	}

	log.WithContext(ctx).ErrorContext(ctx, "kubectl command failed",
		slog.Int("exit_code", res.ExitCode),
		slog.Bool("timed_out", res.TimedOut),
		slog.Any("error", err),
	)

	return err
}

// decode unmarshals kubectl JSON output. The payload is logged by length
// only, never inline.
func (c *Client) decode(ctx context.Context, payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		log.WithContext(ctx).ErrorContext(ctx, "undecodable kubectl output",
			slog.Int("payload_bytes", len(payload)),
			slog.Any("error", err),
		)

		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return nil
}
