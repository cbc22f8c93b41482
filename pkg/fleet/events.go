package fleet

import "context"

// Event is a notification about fleet state. Events carry the context of
// the operation that produced them, so subscribers can correlate log lines
// and traces with a specific sweep.
type Event interface {
	GetContext() context.Context
}

// EventSweepStart indicates a refresh sweep has started for the named
// contexts.
type EventSweepStart struct {
	ctx   context.Context
	Names []string
}

// NewEventSweepStart creates a new [EventSweepStart].
func NewEventSweepStart(ctx context.Context, names []string) EventSweepStart {
	return EventSweepStart{ctx: ctx, Names: names}
}

func (e EventSweepStart) GetContext() context.Context { return e.ctx }

// EventSweepEnd indicates a refresh sweep has finished.
type EventSweepEnd struct {
	ctx context.Context
}

// NewEventSweepEnd creates a new [EventSweepEnd].
func NewEventSweepEnd(ctx context.Context) EventSweepEnd {
	return EventSweepEnd{ctx: ctx}
}

func (e EventSweepEnd) GetContext() context.Context { return e.ctx }

// EventStatus carries a fresh clone of one cluster's status. It is emitted
// on every atomic status write, including the transition into checking.
type EventStatus struct {
	ctx    context.Context
	Status *ClusterStatus
}

// NewEventStatus creates a new [EventStatus].
func NewEventStatus(ctx context.Context, status *ClusterStatus) EventStatus {
	return EventStatus{ctx: ctx, Status: status}
}

func (e EventStatus) GetContext() context.Context { return e.ctx }

// EventRecovered indicates a cluster came back after being unreachable.
type EventRecovered struct {
	ctx  context.Context
	Name string
}

// NewEventRecovered creates a new [EventRecovered].
func NewEventRecovered(ctx context.Context, name string) EventRecovered {
	return EventRecovered{ctx: ctx, Name: name}
}

func (e EventRecovered) GetContext() context.Context { return e.ctx }

// EventContexts carries the context list after a kubeconfig re-sync.
type EventContexts struct {
	ctx      context.Context
	Contexts []ClusterContext
}

// NewEventContexts creates a new [EventContexts].
func NewEventContexts(ctx context.Context, contexts []ClusterContext) EventContexts {
	return EventContexts{ctx: ctx, Contexts: contexts}
}

func (e EventContexts) GetContext() context.Context { return e.ctx }
