package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// Client is the cluster-facing surface the fleet needs. [*kube.Client]
// implements it; tests substitute fakes.
type Client interface {
	ListContexts(ctx context.Context) ([]kube.Context, error)
	CurrentContext(ctx context.Context) (string, error)
	SetCurrentContext(ctx context.Context, name string) error
	ServerVersion(ctx context.Context, kubeContext string) (string, error)
	Nodes(ctx context.Context, kubeContext string) ([]kube.Node, error)
	PodCounts(ctx context.Context, kubeContext string) (map[string]int, error)
	GetFluxReport(ctx context.Context, kubeContext string) (*kube.FluxReport, error)
}

// Fleet owns the cluster status table. It is the single writer; everything
// handed out is a clone.
type Fleet struct {
	tracer      trace.Tracer
	client      Client
	notifier    Notifier
	include     *Rule
	statuses    map[string]*ClusterStatus
	notifyRules []*Rule
	watchPaths  []string
	contexts    []ClusterContext
	listeners   []chan<- Event
	interval    time.Duration
	mu          sync.Mutex
}

// FleetOpt configures a [Fleet].
type FleetOpt func(*Fleet)

// WithNotifier sets the alert delivery. The default logs transitions as
// warnings.
func WithNotifier(n Notifier) FleetOpt {
	return func(f *Fleet) {
		f.notifier = n
	}
}

// WithRefreshInterval overrides how often [Fleet.Watch] sweeps.
func WithRefreshInterval(d time.Duration) FleetOpt {
	return func(f *Fleet) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithIncludeRule restricts sweeps to contexts matching the rule.
func WithIncludeRule(r *Rule) FleetOpt {
	return func(f *Fleet) {
		f.include = r
	}
}

// WithNotifyRules restricts alert delivery to clusters matching at least
// one rule.
func WithNotifyRules(rules ...*Rule) FleetOpt {
	return func(f *Fleet) {
		f.notifyRules = rules
	}
}

// WithKubeconfigWatch makes [Fleet.Watch] observe the given kubeconfig
// files and re-sync contexts when they change.
func WithKubeconfigWatch(paths ...string) FleetOpt {
	return func(f *Fleet) {
		f.watchPaths = paths
	}
}

// WithContexts seeds the fleet with a persisted context list, typically
// loaded from disk before the first sync.
func WithContexts(saved []ClusterContext) FleetOpt {
	return func(f *Fleet) {
		f.ApplyCustomizations(saved)
	}
}

// NewFleet creates a [Fleet] over the given client.
func NewFleet(client Client, opts ...FleetOpt) *Fleet {
	f := &Fleet{
		tracer:   otel.Tracer("fleet"),
		client:   client,
		notifier: LogNotifier{},
		interval: DefaultRefreshInterval,
		statuses: make(map[string]*ClusterStatus),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// SyncContexts merges the kubeconfig context list into the fleet. Existing
// entries keep their customizations; contexts that disappeared upstream are
// marked absent but never removed.
func (f *Fleet) SyncContexts(ctx context.Context) ([]ClusterContext, error) {
	ctx, span := f.tracer.Start(ctx, "sync_contexts")
	defer span.End()

	listed, err := f.client.ListContexts(ctx)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("list contexts: %w", err)
	}

	f.mu.Lock()

	known := make(map[string]int, len(f.contexts))
	for i, cc := range f.contexts {
		known[cc.Name] = i
	}

	seen := make(map[string]bool, len(listed))
	for _, item := range listed {
		seen[item.Name] = true

		if i, ok := known[item.Name]; ok {
			f.contexts[i].PresentInSource = true
		} else {
			f.contexts = append(f.contexts, ClusterContext{
				Name:            item.Name,
				PresentInSource: true,
			})
		}
	}

	for i := range f.contexts {
		if !seen[f.contexts[i].Name] {
			f.contexts[i].PresentInSource = false
		}
	}

	out := slices.Clone(f.contexts)
	f.mu.Unlock()

	log.WithContext(ctx).DebugContext(ctx, "synced contexts",
		slog.Int("known", len(out)),
		slog.Int("in_kubeconfig", len(listed)),
	)

	f.broadcast(NewEventContexts(ctx, out))

	return out, nil
}

// ApplyCustomizations merges a persisted context list into the fleet.
// Entries are matched by name; unknown names are added as-is.
func (f *Fleet) ApplyCustomizations(saved []ClusterContext) {
	f.mu.Lock()
	defer f.mu.Unlock()

	known := make(map[string]int, len(f.contexts))
	for i, cc := range f.contexts {
		known[cc.Name] = i
	}

	for _, cc := range saved {
		if i, ok := known[cc.Name]; ok {
			f.contexts[i] = cc
		} else {
			f.contexts = append(f.contexts, cc)
		}
	}
}

// Contexts returns every known context, favorites first, otherwise in
// kubeconfig order.
func (f *Fleet) Contexts() []ClusterContext {
	f.mu.Lock()
	out := slices.Clone(f.contexts)
	f.mu.Unlock()

	slices.SortStableFunc(out, func(a, b ClusterContext) int {
		switch {
		case a.Favorite && !b.Favorite:
			return -1
		case !a.Favorite && b.Favorite:
			return 1
		default:
			return 0
		}
	})

	return out
}

// Context returns the named context.
func (f *Fleet) Context(name string) (ClusterContext, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.contextLocked(name)
}

func (f *Fleet) contextLocked(name string) (ClusterContext, bool) {
	for _, cc := range f.contexts {
		if cc.Name == name {
			return cc, true
		}
	}

	return ClusterContext{}, false
}

// UpdateContext applies fn to the named context and reports whether it
// exists. The name field is not updatable; it is the entry's identity.
func (f *Fleet) UpdateContext(name string, fn func(*ClusterContext)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.contexts {
		if f.contexts[i].Name == name {
			fn(&f.contexts[i])
			f.contexts[i].Name = name

			return true
		}
	}

	return false
}

// RemoveContext forgets a context entirely, status included. This is the
// only way an entry leaves the fleet; kubeconfig re-syncs never delete.
func (f *Fleet) RemoveContext(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, cc := range f.contexts {
		if cc.Name == name {
			f.contexts = slices.Delete(f.contexts, i, i+1)
			delete(f.statuses, name)

			return true
		}
	}

	return false
}

// Current returns the active kubeconfig context name.
func (f *Fleet) Current(ctx context.Context) (string, error) {
	name, err := f.client.CurrentContext(ctx)
	if err != nil {
		return "", fmt.Errorf("current context: %w", err)
	}

	return name, nil
}

// Use switches the active kubeconfig context.
func (f *Fleet) Use(ctx context.Context, name string) error {
	err := f.client.SetCurrentContext(ctx, name)
	if err != nil {
		return fmt.Errorf("use context %q: %w", name, err)
	}

	return nil
}

// RefreshAll sweeps every eligible context concurrently and returns the
// resulting snapshot. Hidden contexts, contexts gone from the kubeconfig,
// and contexts excluded by the include rule are skipped.
func (f *Fleet) RefreshAll(ctx context.Context) map[string]*ClusterStatus {
	ctx, span := f.tracer.Start(ctx, "refresh_all")
	defer span.End()

	names := f.refreshable()

	f.broadcast(NewEventSweepStart(ctx, names))

	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)

		go func() {
			defer wg.Done()

			f.Refresh(ctx, name)
		}()
	}

	wg.Wait()

	f.broadcast(NewEventSweepEnd(ctx))
	log.WithContext(ctx).DebugContext(ctx, "sweep finished",
		slog.Int("contexts", len(names)),
	)

	return f.Snapshot()
}

// Refresh checks one context and atomically replaces its status. It never
// returns an error: failures are recorded on the status itself, so one
// cluster's problem cannot disturb another's refresh.
func (f *Fleet) Refresh(ctx context.Context, name string) *ClusterStatus {
	ctx, span := f.tracer.Start(ctx, "refresh", trace.WithAttributes(
		attribute.String("kube.context", name),
	))
	defer span.End()

	prev, next := f.beginChecking(ctx, name)

	version, err := f.client.ServerVersion(ctx, name)
	if err != nil {
		// Everything known stays on the status; only the reachability and
		// reason change. Flux was not checked this round.
		next.Reachability = ReachabilityUnreachable
		next.UnreachableReason = reasonOf(err)
		next.FluxState = prev.FluxState
		next.LastCheckedAt = time.Now()

		f.commit(ctx, prev, next)

		return next.Clone()
	}

	next.Reachability = ReachabilityReachable
	next.UnreachableReason = ""
	next.KubernetesVersion = version
	next.FetchErr = ""

	f.fetchNodes(ctx, name, next)
	f.fetchFlux(ctx, name, prev, next)

	next.LastCheckedAt = time.Now()

	f.commit(ctx, prev, next)

	return next.Clone()
}

// Snapshot returns a deep copy of the status table keyed by context name.
func (f *Fleet) Snapshot() map[string]*ClusterStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]*ClusterStatus, len(f.statuses))
	for name, st := range f.statuses {
		out[name] = st.Clone()
	}

	return out
}

// Status returns a copy of one cluster's status.
func (f *Fleet) Status(name string) (*ClusterStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.statuses[name]
	if !ok {
		return nil, false
	}

	return st.Clone(), true
}

// Subscribe allows other components to listen for fleet events.
func (f *Fleet) Subscribe(ch chan<- Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners = append(f.listeners, ch)
}

// beginChecking swaps in a checking status that retains all previously
// known data, and returns the previous status plus a private working copy.
func (f *Fleet) beginChecking(ctx context.Context, name string) (prev, next *ClusterStatus) {
	f.mu.Lock()

	prev = f.statuses[name]
	if prev == nil {
		prev = &ClusterStatus{Name: name}
	}

	checking := prev.Clone()
	checking.Reachability = ReachabilityChecking
	checking.FluxState = FluxChecking
	f.statuses[name] = checking

	f.mu.Unlock()

	f.broadcast(NewEventStatus(ctx, checking.Clone()))

	return prev, checking.Clone()
}

// commit atomically replaces the stored status and fires events and
// notifications derived from the transition.
func (f *Fleet) commit(ctx context.Context, prev, next *ClusterStatus) {
	f.mu.Lock()
	f.statuses[next.Name] = next.Clone()
	f.mu.Unlock()

	f.broadcast(NewEventStatus(ctx, next.Clone()))

	if prev.Reachability == ReachabilityUnreachable && next.Reachability == ReachabilityReachable {
		log.WithContext(ctx).InfoContext(ctx, "cluster recovered",
			slog.String("context", next.Name),
		)
		f.broadcast(NewEventRecovered(ctx, next.Name))
	}

	if !f.mayNotify(next) {
		return
	}

	if prev.Reachability == ReachabilityReachable && next.Reachability == ReachabilityUnreachable {
		f.notifier.BecameUnreachable(ctx, next.Name, next.UnreachableReason)
	}

	if next.FailingReconcilers() > prev.FailingReconcilers() {
		f.notifier.ReconciliationFailuresIncreased(ctx, next.Name, next.FailingReconcilers())
	}
}

func (f *Fleet) mayNotify(st *ClusterStatus) bool {
	if f.notifier == nil {
		return false
	}
	if len(f.notifyRules) == 0 {
		return true
	}

	f.mu.Lock()
	cc, _ := f.contextLocked(st.Name)
	f.mu.Unlock()

	for _, r := range f.notifyRules {
		if r.Match(cc, st) {
			return true
		}
	}

	return false
}

func (f *Fleet) fetchNodes(ctx context.Context, name string, next *ClusterStatus) {
	nodes, err := f.client.Nodes(ctx, name)
	if err != nil {
		// Previous nodes stay visible; the error marks the view stale.
		next.FetchErr = reasonOf(err)

		return
	}

	counts, err := f.client.PodCounts(ctx, name)
	if err != nil {
		log.WithContext(ctx).DebugContext(ctx, "pod counts unavailable",
			slog.String("context", name),
			slog.Any("error", err),
		)
	} else {
		for i := range nodes {
			nodes[i].Pods = counts[nodes[i].Name]
		}
	}

	next.Nodes = nodes
}

func (f *Fleet) fetchFlux(ctx context.Context, name string, prev, next *ClusterStatus) {
	report, err := f.client.GetFluxReport(ctx, name)

	switch {
	case errors.Is(err, kube.ErrFluxNotInstalled):
		next.FluxState = FluxNotInstalled
		next.FluxVersion = ""
		next.FluxSummary = nil
	case err != nil:
		next.FetchErr = reasonOf(err)
		next.FluxState = prev.FluxState
	default:
		summary := summarize(report)
		next.FluxSummary = &summary
		next.FluxState, next.FluxVersion = fluxStateOf(report, summary)
	}
}

func (f *Fleet) refreshable() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string

	for _, cc := range f.contexts {
		if cc.Hidden || !cc.PresentInSource {
			continue
		}
		if f.include != nil && !f.include.Match(cc, f.statuses[cc.Name]) {
			continue
		}

		names = append(names, cc.Name)
	}

	return names
}

func (f *Fleet) broadcast(evt Event) {
	ctx := evt.GetContext()

	log.WithContext(ctx).DebugContext(ctx, "broadcasting event",
		slog.String("event", fmt.Sprintf("%T", evt)),
	)

	f.mu.Lock()
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, ch := range listeners {
		ch <- evt
	}
}

// reasonOf flattens an error into a single display line.
func reasonOf(err error) string {
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}

	return msg
}
