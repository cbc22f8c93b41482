package fleet

import (
	"slices"
	"time"

	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
)

// Reachability is the connectivity state of one cluster context.
type Reachability int

const (
	// ReachabilityUnknown means the context has never been checked.
	ReachabilityUnknown Reachability = iota
	// ReachabilityChecking means a refresh is in flight.
	ReachabilityChecking
	// ReachabilityReachable means the API server answered the last check.
	ReachabilityReachable
	// ReachabilityUnreachable means the last check failed; the reason is
	// kept on the status.
	ReachabilityUnreachable
)

func (r Reachability) String() string {
	switch r {
	case ReachabilityChecking:
		return "checking"
	case ReachabilityReachable:
		return "reachable"
	case ReachabilityUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// FluxState describes the Flux installation on one cluster.
type FluxState int

const (
	// FluxUnknown means Flux has never been checked.
	FluxUnknown FluxState = iota
	// FluxChecking means the report fetch is in flight.
	FluxChecking
	// FluxNotInstalled means the cluster does not have the report resource.
	FluxNotInstalled
	// FluxOperatorOnly means the operator runs but reports no reconcilers
	// or components yet.
	FluxOperatorOnly
	// FluxInstalled means Flux is installed and healthy.
	FluxInstalled
	// FluxDegraded means a reconciler is failing or a component is not
	// ready.
	FluxDegraded
)

func (f FluxState) String() string {
	switch f {
	case FluxChecking:
		return "checking"
	case FluxNotInstalled:
		return "not installed"
	case FluxOperatorOnly:
		return "operator only"
	case FluxInstalled:
		return "installed"
	case FluxDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Health is the display rollup of one cluster's state.
type Health int

const (
	// HealthUnknown means the cluster has never been successfully checked.
	HealthUnknown Health = iota
	// HealthHealthy means reachable and nothing needs attention.
	HealthHealthy
	// HealthDegraded means reachable but something is failing or not ready.
	HealthDegraded
	// HealthOffline means the cluster cannot be reached.
	HealthOffline
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// FluxSummary aggregates the numbers a display cares about from a Flux
// report.
type FluxSummary struct {
	DistributionVersion  string
	OperatorVersion      string
	SyncStatus           string
	SyncReady            bool
	RunningReconcilers   int
	FailingReconcilers   int
	SuspendedReconcilers int
	ReadyComponents      int
	TotalComponents      int
}

// ClusterStatus is the live view of one cluster context. Fields filled by a
// successful fetch are sticky: entering a new check never clears them, so a
// display never flashes empty mid-refresh. The fleet owns every instance;
// consumers get clones.
type ClusterStatus struct {
	LastCheckedAt     time.Time
	Name              string
	UnreachableReason string
	KubernetesVersion string
	FetchErr          string
	Nodes             []kube.Node
	FluxSummary       *FluxSummary
	FluxVersion       string
	Reachability      Reachability
	FluxState         FluxState
}

// Clone returns a deep copy safe to hand to readers.
func (s *ClusterStatus) Clone() *ClusterStatus {
	if s == nil {
		return nil
	}

	out := *s
	out.Nodes = slices.Clone(s.Nodes)

	if s.FluxSummary != nil {
		summary := *s.FluxSummary
		out.FluxSummary = &summary
	}

	return &out
}

// IsDegraded reports whether anything needs attention: a failing
// reconciler, a node that is not ready, or a partial error from the most
// recent fetch. It is independent of raw reachability, so a stale view of
// an offline cluster can still convey what was wrong with it.
func (s *ClusterStatus) IsDegraded() bool {
	if s.FetchErr != "" {
		return true
	}

	for _, n := range s.Nodes {
		if !n.Ready {
			return true
		}
	}

	return s.FluxSummary != nil && s.FluxSummary.FailingReconcilers > 0
}

// FailingReconcilers returns the failing count from the last summary, zero
// when Flux was never observed.
func (s *ClusterStatus) FailingReconcilers() int {
	if s.FluxSummary == nil {
		return 0
	}

	return s.FluxSummary.FailingReconcilers
}

// ReadyNodes returns how many nodes are ready.
func (s *ClusterStatus) ReadyNodes() int {
	ready := 0

	for _, n := range s.Nodes {
		if n.Ready {
			ready++
		}
	}

	return ready
}

// Health derives the display rollup. While a check is in flight the rollup
// reflects the previous observation, so a refresh never turns a row gray.
func (s *ClusterStatus) Health() Health {
	switch s.Reachability {
	case ReachabilityUnreachable:
		return HealthOffline
	case ReachabilityReachable:
		if s.IsDegraded() {
			return HealthDegraded
		}

		return HealthHealthy
	default:
		if s.UnreachableReason != "" {
			return HealthOffline
		}
		if s.LastCheckedAt.IsZero() {
			return HealthUnknown
		}
		if s.IsDegraded() {
			return HealthDegraded
		}

		return HealthHealthy
	}
}

// StatusLabel is the short human label for the rollup state.
func (s *ClusterStatus) StatusLabel() string {
	switch s.Health() {
	case HealthHealthy:
		return "Healthy"
	case HealthDegraded:
		return "Degraded"
	case HealthOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// summarize flattens a Flux report into a [FluxSummary].
func summarize(report *kube.FluxReport) FluxSummary {
	s := FluxSummary{
		DistributionVersion: report.Spec.Distribution.Version,
		TotalComponents:     len(report.Spec.Components),
	}

	if report.Spec.Operator != nil {
		s.OperatorVersion = report.Spec.Operator.Version
	}

	if report.Spec.Sync != nil {
		s.SyncStatus = report.Spec.Sync.Status
		s.SyncReady = report.Spec.Sync.Ready
	}

	for _, c := range report.Spec.Components {
		if c.Ready {
			s.ReadyComponents++
		}
	}

	for _, r := range report.Spec.Reconcilers {
		s.RunningReconcilers += r.Stats.Running
		s.FailingReconcilers += r.Stats.Failing
		s.SuspendedReconcilers += r.Stats.Suspended
	}

	return s
}

// fluxStateOf classifies a summary per the report it came from.
func fluxStateOf(report *kube.FluxReport, s FluxSummary) (FluxState, string) {
	if len(report.Spec.Reconcilers) == 0 && len(report.Spec.Components) == 0 {
		return FluxOperatorOnly, s.OperatorVersion
	}

	if s.FailingReconcilers > 0 || s.ReadyComponents < s.TotalComponents {
		return FluxDegraded, s.DistributionVersion
	}

	return FluxInstalled, s.DistributionVersion
}
