package fleet

import (
	"context"
	"log/slog"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// Notifier delivers operator-facing alerts about cluster transitions. The
// fleet calls it from refresh goroutines, so implementations must be safe
// for concurrent use.
type Notifier interface {
	// BecameUnreachable fires when a previously reachable cluster stops
	// answering.
	BecameUnreachable(ctx context.Context, name, reason string)
	// ReconciliationFailuresIncreased fires when a cluster reports more
	// failing reconcilers than on the previous check.
	ReconciliationFailuresIncreased(ctx context.Context, name string, count int)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) BecameUnreachable(context.Context, string, string) {}

func (NopNotifier) ReconciliationFailuresIncreased(context.Context, string, int) {}

// LogNotifier reports transitions as warning log lines. It is the default
// delivery when no system notifier is wired in.
type LogNotifier struct{}

func (LogNotifier) BecameUnreachable(ctx context.Context, name, reason string) {
	log.WithContext(ctx).WarnContext(ctx, "cluster became unreachable",
		slog.String("context", name),
		slog.String("reason", reason),
	)
}

func (LogNotifier) ReconciliationFailuresIncreased(ctx context.Context, name string, count int) {
	log.WithContext(ctx).WarnContext(ctx, "reconciliation failures increased",
		slog.String("context", name),
		slog.Int("failing", count),
	)
}
