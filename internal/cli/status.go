package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/dustin/go-humanize"
	"github.com/muesli/ansi"
	"github.com/spf13/cobra"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/kube"
)

func NewStatusCmd(args *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [context]",
		Short: "Check clusters once and print their status",
		Long: `Check clusters once and print their status.

Without arguments every context is swept and rendered as a table. With a
context name, only that cluster is checked and shown in detail.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: contextCompletion(args),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			cfg, _, err := loadConfig(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			flt := newFleet(cfg)

			_, err = flt.SyncContexts(ctx)
			if err != nil {
				return fmt.Errorf("sync contexts: %w", err)
			}

			if len(posArgs) == 1 {
				return runStatusDetail(ctx, cmd.OutOrStdout(), flt, posArgs[0])
			}

			return runStatusTable(ctx, cmd.OutOrStdout(), flt)
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func runStatusTable(ctx context.Context, w io.Writer, flt *fleet.Fleet) error {
	statuses := flt.RefreshAll(ctx)

	current, err := flt.Current(ctx)
	if err != nil {
		current = ""
	}

	mustN(fmt.Fprint(w, fleetTable(flt.Contexts(), statuses, current)))

	return nil
}

func runStatusDetail(ctx context.Context, w io.Writer, flt *fleet.Fleet, name string) error {
	cc, ok := flt.Context(name)
	if !ok {
		return fmt.Errorf("unknown context %q", name)
	}

	st := flt.Refresh(ctx, name)

	mustN(fmt.Fprint(w, clusterDetail(cc, st)))

	return nil
}

// fleetTable renders one plain-text row per context. The current context is
// marked with an asterisk in the first column.
func fleetTable(ccs []fleet.ClusterContext, statuses map[string]*fleet.ClusterStatus, current string) string {
	rows := [][]string{{"", "NAME", "STATUS", "KUBERNETES", "NODES", "FLUX", "LAST CHECKED"}}

	for _, cc := range ccs {
		st := statuses[cc.Name]

		mark := ""
		if cc.Name == current {
			mark = "*"
		}

		rows = append(rows, []string{
			mark,
			cc.Title(),
			statusText(st),
			kubernetesText(st),
			nodesSummaryText(st),
			fluxSummaryText(st),
			checkedText(st),
		})
	}

	return renderColumns(rows)
}

// clusterDetail renders the full view of a single cluster.
func clusterDetail(cc fleet.ClusterContext, st *fleet.ClusterStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "cluster:      %s\n", cc.Title())
	fmt.Fprintf(&b, "status:       %s\n", statusText(st))

	if st == nil {
		return b.String()
	}

	if st.UnreachableReason != "" {
		fmt.Fprintf(&b, "reason:       %s\n", st.UnreachableReason)
	}
	if st.FetchErr != "" {
		fmt.Fprintf(&b, "fetch error:  %s\n", st.FetchErr)
	}
	if st.KubernetesVersion != "" {
		fmt.Fprintf(&b, "kubernetes:   %s\n", st.KubernetesVersion)
	}

	fmt.Fprintf(&b, "last checked: %s\n", checkedText(st))

	if len(st.Nodes) > 0 {
		b.WriteString("\nnodes:\n")
		b.WriteString(indent(nodeTable(st.Nodes)))

		if notReady := notReadyNodes(st.Nodes); len(notReady) > 0 {
			verb := "is"
			if len(notReady) > 1 {
				verb = "are"
			}

			fmt.Fprintf(&b, "  %s %s not ready\n", xstrings.EnglishJoin(notReady, true), verb)
		}
	}

	if st.FluxState != fleet.FluxUnknown {
		b.WriteString("\nflux:\n")
		fmt.Fprintf(&b, "  state:       %s\n", st.FluxState)

		if st.FluxVersion != "" {
			fmt.Fprintf(&b, "  version:     %s\n", st.FluxVersion)
		}

		if s := st.FluxSummary; s != nil {
			if s.OperatorVersion != "" {
				fmt.Fprintf(&b, "  operator:    %s\n", s.OperatorVersion)
			}
			if s.SyncStatus != "" {
				ready := "not ready"
				if s.SyncReady {
					ready = "ready"
				}

				fmt.Fprintf(&b, "  sync:        %s (%s)\n", s.SyncStatus, ready)
			}

			fmt.Fprintf(&b, "  reconcilers: %d running, %d failing, %d suspended\n",
				s.RunningReconcilers, s.FailingReconcilers, s.SuspendedReconcilers)
			fmt.Fprintf(&b, "  components:  %d of %d ready\n",
				s.ReadyComponents, s.TotalComponents)
		}
	}

	return b.String()
}

// nodeTable renders one row per node with capacity columns.
func nodeTable(nodes []kube.Node) string {
	rows := [][]string{{"NAME", "READY", "CPU", "MEMORY", "PODS"}}

	for _, n := range nodes {
		ready := "yes"
		if !n.Ready {
			ready = "no"
		}

		rows = append(rows, []string{
			n.Name,
			ready,
			fmt.Sprintf("%dm", n.CPUMillis),
			humanize.IBytes(uint64(n.MemoryBytes)), //nolint:gosec // Capacities are non-negative.
			fmt.Sprintf("%d", n.Pods),
		})
	}

	return renderColumns(rows)
}

// renderColumns pads every cell to its column width. Widths are measured in
// display cells, so names with wide or combining runes stay aligned.
func renderColumns(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], ansi.PrintableRuneWidth(cell))
		}
	}

	var b strings.Builder

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}

			b.WriteString(cell)

			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-ansi.PrintableRuneWidth(cell)))
			}
		}

		b.WriteString("\n")
	}

	return b.String()
}

func statusText(st *fleet.ClusterStatus) string {
	if st == nil {
		return "Unknown"
	}

	return st.StatusLabel()
}

func kubernetesText(st *fleet.ClusterStatus) string {
	if st == nil || st.KubernetesVersion == "" {
		return "-"
	}

	return st.KubernetesVersion
}

func nodesSummaryText(st *fleet.ClusterStatus) string {
	if st == nil || len(st.Nodes) == 0 {
		return "-"
	}

	return fmt.Sprintf("%d/%d", st.ReadyNodes(), len(st.Nodes))
}

func fluxSummaryText(st *fleet.ClusterStatus) string {
	if st == nil {
		return "-"
	}

	if st.FluxState == fleet.FluxDegraded {
		return fmt.Sprintf("degraded (%d)", st.FailingReconcilers())
	}

	return st.FluxState.String()
}

func checkedText(st *fleet.ClusterStatus) string {
	if st == nil || st.LastCheckedAt.IsZero() {
		return "never"
	}

	return humanize.Time(st.LastCheckedAt)
}

func notReadyNodes(nodes []kube.Node) []string {
	var names []string

	for _, n := range nodes {
		if !n.Ready {
			names = append(names, n.Name)
		}
	}

	return names
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}

	return strings.Join(lines, "\n") + "\n"
}
