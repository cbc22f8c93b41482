// Package fleet tracks the health of every cluster context an operator
// cares about.
//
// The [Fleet] owns a table of [ClusterStatus], one per kubeconfig context.
// It refreshes contexts concurrently, isolating failures so one broken
// cluster never delays or aborts the others, and swaps each status in
// atomically so readers always see a complete view. Previously fetched data
// stays visible while a new check is in flight.
//
// Consumers receive immutable snapshots and a broadcast event stream; the
// fleet is the only writer. Transitions into unreachability and increases
// in failing reconcilers are reported to a [Notifier].
package fleet
