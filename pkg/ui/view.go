package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
)

const (
	markColWidth   = 2
	statusColWidth = 10
	k8sColWidth    = 10
	nodesColWidth  = 6
	fluxColWidth   = 14
	ageColWidth    = 15
)

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	header := m.headerView()
	footer := m.footerView()

	parts := []string{header, "", m.tableView()}
	if m.showOutput && m.output.hasContent() {
		parts = append(parts, "", m.output.view(m.styles, m.spinner.View()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	// Pin the footer to the bottom of the screen.
	pad := m.height - lipgloss.Height(content) - lipgloss.Height(footer)

	return content + strings.Repeat("\n", max(pad+1, 1)) + footer
}

func (m *Model) headerView() string {
	ccs := m.visibleContexts()

	var healthy, degraded, offline int

	for _, cc := range ccs {
		st, ok := m.statuses[cc.Name]
		if !ok {
			continue
		}

		switch st.Health() {
		case fleet.HealthHealthy:
			healthy++
		case fleet.HealthDegraded:
			degraded++
		case fleet.HealthOffline:
			offline++
		}
	}

	parts := []string{m.styles.Header.Render(fmt.Sprintf("%d contexts", len(ccs)))}
	if healthy > 0 {
		parts = append(parts, m.styles.Healthy.Render(fmt.Sprintf("%d healthy", healthy)))
	}

	if degraded > 0 {
		parts = append(parts, m.styles.Degraded.Render(fmt.Sprintf("%d degraded", degraded)))
	}

	if offline > 0 {
		parts = append(parts, m.styles.Offline.Render(fmt.Sprintf("%d offline", offline)))
	}

	line := m.styles.Logo.Render(" kswitch ") + "  " + strings.Join(parts, m.styles.Subtle.Render(" · "))
	if m.sweeping {
		line += "  " + m.spinner.View() + m.styles.Checking.Render(" checking")
	}

	return truncate.String(line, uint(m.width))
}

func (m *Model) tableView() string {
	ccs := m.visibleContexts()
	if len(ccs) == 0 {
		msg := "no contexts"
		if m.filter.Value() != "" {
			msg = fmt.Sprintf("no contexts match %q", m.filter.Value())
		}

		return m.styles.Subtle.Render(msg)
	}

	maxRows := m.maxTableRows()

	start := 0
	if m.selected >= maxRows {
		start = m.selected - maxRows + 1
	}

	end := min(start+maxRows, len(ccs))

	rows := make([]string, 0, end-start+1)
	rows = append(rows, m.columnsView())

	for i := start; i < end; i++ {
		rows = append(rows, m.rowView(ccs[i], i == m.selected))
	}

	return strings.Join(rows, "\n")
}

// maxTableRows is how many context rows fit between the header and the
// footer, leaving room for the output pane when it is open.
func (m *Model) maxTableRows() int {
	h := m.height - 4 // Header, surrounding blanks, column titles.
	h -= 2            // Footer.

	if m.showOutput && m.output.hasContent() {
		h -= m.output.viewport.Height + 2
	}

	return max(h, 3)
}

func (m *Model) columnsView() string {
	cols := []string{
		cell("", markColWidth),
		cell("NAME", m.nameColWidth()),
		cell("STATUS", statusColWidth),
		cell("K8S", k8sColWidth),
		cell("NODES", nodesColWidth),
		cell("FLUX", fluxColWidth),
		"AGE",
	}

	line := m.styles.ColumnTitle.Render(strings.Join(cols, " "))

	return truncate.String(line, uint(m.width))
}

func (m *Model) rowView(cc fleet.ClusterContext, selected bool) string {
	st := m.statuses[cc.Name]

	cols := []string{
		m.markCell(cc, selected),
		m.nameCell(cc, selected),
		m.statusCell(st),
		cell(k8sText(st), k8sColWidth),
		cell(nodesText(st), nodesColWidth),
		cell(fluxText(st), fluxColWidth),
		m.styles.Subtle.Render(cell(ageText(st), ageColWidth)),
	}

	return truncate.String(strings.Join(cols, " "), uint(m.width))
}

// markCell renders the two-glyph margin: the selection pointer, or the
// current-context dot and the favorite star.
func (m *Model) markCell(cc fleet.ClusterContext, selected bool) string {
	if selected {
		return m.styles.Selected.Render(cell("›", markColWidth))
	}

	cur, fav := " ", " "
	if cc.Name == m.current {
		cur = m.styles.CurrentMark.Render("●")
	}

	if cc.Favorite {
		fav = m.styles.FavoriteMark.Render("★")
	}

	return cur + fav
}

func (m *Model) nameCell(cc fleet.ClusterContext, selected bool) string {
	c := cell(cc.Title(), m.nameColWidth())

	switch {
	case selected:
		return m.styles.Selected.Render(c)
	case cc.Name == m.current:
		return m.styles.CurrentMark.Render(c)
	case cc.Hidden:
		return m.styles.Subtle.Render(c)
	}

	return c
}

func (m *Model) statusCell(st *fleet.ClusterStatus) string {
	switch {
	case st == nil:
		return m.styles.Unknown.Render(cell("Unknown", statusColWidth))
	case st.Reachability == fleet.ReachabilityChecking:
		return cell(m.spinner.View()+" "+m.styles.Checking.Render("Checking"), statusColWidth)
	}

	label := st.StatusLabel()

	return m.styles.healthStyle(label).Render(cell(label, statusColWidth))
}

func k8sText(st *fleet.ClusterStatus) string {
	if st == nil || st.KubernetesVersion == "" {
		return "-"
	}

	return st.KubernetesVersion
}

func nodesText(st *fleet.ClusterStatus) string {
	if st == nil || len(st.Nodes) == 0 {
		return "-"
	}

	return fmt.Sprintf("%d/%d", st.ReadyNodes(), len(st.Nodes))
}

func fluxText(st *fleet.ClusterStatus) string {
	if st == nil {
		return "-"
	}

	if st.FluxState == fleet.FluxDegraded && st.FailingReconcilers() > 0 {
		return fmt.Sprintf("degraded (%d)", st.FailingReconcilers())
	}

	return st.FluxState.String()
}

func ageText(st *fleet.ClusterStatus) string {
	if st == nil || st.LastCheckedAt.IsZero() {
		return "never"
	}

	return humanize.Time(st.LastCheckedAt)
}

func (m *Model) nameColWidth() int {
	w := m.width - markColWidth - statusColWidth - k8sColWidth - nodesColWidth - fluxColWidth - ageColWidth - 6

	return min(max(w, 14), 32)
}

func (m *Model) footerView() string {
	var lines []string

	if m.filtering || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
	}

	if m.statusMsg != "" {
		style := m.styles.StatusInfo
		if m.statusErr {
			style = m.styles.StatusError
		}

		lines = append(lines, style.Render(m.statusMsg))
	}

	lines = append(lines, m.help.View(m.keys))

	return strings.Join(lines, "\n")
}

// cell pads s to width, truncating with an ellipsis when it is too long.
// Padding and truncation both measure display width, so styled or wide
// content stays aligned.
func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(truncate.StringWithTail(s, uint(width), "…"))
}
