// Package ui provides the compact cluster dashboard behind the watch
// command. It renders the fleet's status table, follows task output live,
// and lets the operator switch contexts or trigger refreshes without
// leaving the terminal.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stefanprodan/kswitch-sub001/pkg/fleet"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

const (
	// statusMessageTimeout is how long transient status messages show.
	statusMessageTimeout = 3 * time.Second

	// durationPrecision rounds run durations for display.
	durationPrecision = 100 * time.Millisecond

	minPaneHeight = 6
)

// NewProgram returns a new Tea program running the dashboard.
func NewProgram(m *Model) *tea.Program {
	slog.Debug("starting kswitch dashboard")

	return tea.NewProgram(m, tea.WithAltScreen())
}

// FleetView is the fleet surface the dashboard consumes.
// [*fleet.Fleet] implements it.
type FleetView interface {
	Contexts() []fleet.ClusterContext
	Snapshot() map[string]*fleet.ClusterStatus
	Current(ctx context.Context) (string, error)
	Use(ctx context.Context, name string) error
	Refresh(ctx context.Context, name string) *fleet.ClusterStatus
	RefreshAll(ctx context.Context) map[string]*fleet.ClusterStatus
}

type (
	// currentContextMsg carries the active kubeconfig context name.
	currentContextMsg string

	// contextSwitchedMsg reports the outcome of a context switch.
	contextSwitchedMsg struct {
		err  error
		name string
	}

	// statusRefreshedMsg carries the status returned by an on-demand
	// refresh.
	statusRefreshedMsg struct {
		status *fleet.ClusterStatus
	}

	// snapshotMsg carries the snapshot produced by a full sweep.
	snapshotMsg map[string]*fleet.ClusterStatus

	// statusMessageTimeoutMsg clears the transient status message it was
	// armed for.
	statusMessageTimeoutMsg struct {
		id int
	}
)

// Model is the dashboard's top-level bubbletea model.
type Model struct {
	fleet       FleetView
	statuses    map[string]*fleet.ClusterStatus
	contexts    []fleet.ClusterContext
	current     string
	statusMsg   string
	styles      Styles
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	filter      textinput.Model
	output      outputPane
	statusMsgID int
	selected    int
	width       int
	height      int
	sweeping    bool
	filtering   bool
	showHidden  bool
	showOutput  bool
	statusErr   bool
}

// NewModel creates the dashboard model over the given fleet. The fleet's
// current contexts and statuses seed the table; everything after that
// arrives as events.
func NewModel(flt FleetView) *Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = styles.Checking

	fi := textinput.New()
	fi.Prompt = "/"
	fi.PromptStyle = styles.FilterPrompt
	fi.CharLimit = 64

	return &Model{
		fleet:    flt,
		styles:   styles,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  sp,
		filter:   fi,
		output:   newOutputPane(),
		contexts: flt.Contexts(),
		statuses: flt.Snapshot(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCurrentContext())
}

func (m *Model) loadCurrentContext() tea.Cmd {
	return func() tea.Msg {
		name, err := m.fleet.Current(context.Background())
		if err != nil {
			return currentContextMsg("")
		}

		return currentContextMsg(name)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()

	case currentContextMsg:
		m.current = string(msg)

	case contextSwitchedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setStatusMessage(fmt.Sprintf("switch failed: %v", msg.err), true))
		} else {
			m.current = msg.name
			cmds = append(cmds, m.setStatusMessage("switched to "+msg.name, false))
		}

	case statusRefreshedMsg:
		m.upsertStatus(msg.status)

	case snapshotMsg:
		m.statuses = msg
		m.sweeping = false

	case fleet.EventStatus:
		m.upsertStatus(msg.Status)

	case fleet.EventSweepStart:
		m.sweeping = true
		cmds = append(cmds, m.spinner.Tick)

	case fleet.EventSweepEnd:
		m.sweeping = false

	case fleet.EventContexts:
		m.contexts = msg.Contexts
		m.clampSelection()

	case fleet.EventRecovered:
		cmds = append(cmds, m.setStatusMessage(msg.Name+" recovered", false))

	case task.EventStart:
		m.output.start(msg.Task)
		m.showOutput = true
		m.layout()
		cmds = append(cmds, m.spinner.Tick)

	case task.EventOutput:
		m.output.appendChunk(msg.Chunk)

	case task.EventEnd:
		m.output.finish(msg.Run, msg.Err)

	case task.EventCancel:
		m.output.cancel(msg.Run)

	case statusMessageTimeoutMsg:
		if msg.id == m.statusMsgID {
			m.statusMsg = ""
		}

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd

			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// The filter input owns its cursor blinking even when the message is
	// not a key press.
	if m.filtering {
		var cmd tea.Cmd

		m.filter, cmd = m.filter.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.clampSelection()
		}

		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true

		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}

		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.visibleContexts())-1 {
			m.selected++
		}

		return m, nil

	case key.Matches(msg, m.keys.Use):
		return m, m.useSelected()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshSelected()

	case key.Matches(msg, m.keys.RefreshAll):
		return m, m.refreshAll()

	case key.Matches(msg, m.keys.ShowHidden):
		m.showHidden = !m.showHidden
		m.clampSelection()

		return m, nil

	case key.Matches(msg, m.keys.Output):
		if m.output.hasContent() {
			m.showOutput = !m.showOutput
			m.layout()
		}

		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

		return m, nil
	}

	// Unclaimed keys scroll the output pane when it is open.
	if m.showOutput {
		var cmd tea.Cmd

		m.output.viewport, cmd = m.output.viewport.Update(msg)
		m.output.follow = m.output.viewport.AtBottom()

		return m, cmd
	}

	return m, nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.clampSelection()

		return m, nil

	case msg.Type == tea.KeyEnter:
		// Keep the filter applied and return focus to the table.
		m.filtering = false
		m.filter.Blur()

		return m, nil
	}

	var cmd tea.Cmd

	m.filter, cmd = m.filter.Update(msg)
	m.selected = 0

	return m, cmd
}

// useSelected switches the kubeconfig to the selected context.
func (m *Model) useSelected() tea.Cmd {
	cc, ok := m.selectedContext()
	if !ok {
		return nil
	}

	return func() tea.Msg {
		err := m.fleet.Use(context.Background(), cc.Name)

		return contextSwitchedMsg{name: cc.Name, err: err}
	}
}

// refreshSelected re-checks the selected cluster. The row flips to
// checking immediately; the refreshed status replaces it when the check
// completes.
func (m *Model) refreshSelected() tea.Cmd {
	cc, ok := m.selectedContext()
	if !ok {
		return nil
	}

	m.markChecking(cc.Name)

	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return statusRefreshedMsg{status: m.fleet.Refresh(context.Background(), cc.Name)}
		},
	)
}

// refreshAll sweeps every eligible cluster.
func (m *Model) refreshAll() tea.Cmd {
	m.sweeping = true

	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return snapshotMsg(m.fleet.RefreshAll(context.Background()))
		},
	)
}

func (m *Model) markChecking(name string) {
	if m.statuses == nil {
		m.statuses = make(map[string]*fleet.ClusterStatus)
	}

	st, ok := m.statuses[name]
	if !ok {
		st = &fleet.ClusterStatus{Name: name}
		m.statuses[name] = st
	}

	st.Reachability = fleet.ReachabilityChecking
}

func (m *Model) upsertStatus(st *fleet.ClusterStatus) {
	if st == nil {
		return
	}

	if m.statuses == nil {
		m.statuses = make(map[string]*fleet.ClusterStatus)
	}

	m.statuses[st.Name] = st
}

// busy reports whether any activity warrants spinner ticks.
func (m *Model) busy() bool {
	if m.sweeping || m.output.running {
		return true
	}

	for _, st := range m.statuses {
		if st.Reachability == fleet.ReachabilityChecking {
			return true
		}
	}

	return false
}

// visibleContexts returns the rows the table shows, in fleet order,
// reduced by the hidden flag and the fuzzy filter.
func (m *Model) visibleContexts() []fleet.ClusterContext {
	ccs := make([]fleet.ClusterContext, 0, len(m.contexts))

	for _, cc := range m.contexts {
		if cc.Hidden && !m.showHidden {
			continue
		}

		ccs = append(ccs, cc)
	}

	if query := m.filter.Value(); query != "" {
		ccs = filterContexts(ccs, query)
	}

	return ccs
}

func (m *Model) selectedContext() (fleet.ClusterContext, bool) {
	ccs := m.visibleContexts()
	if len(ccs) == 0 || m.selected >= len(ccs) {
		return fleet.ClusterContext{}, false
	}

	return ccs[m.selected], true
}

func (m *Model) clampSelection() {
	if n := len(m.visibleContexts()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m *Model) layout() {
	if m.showOutput {
		m.output.setSize(m.width, max(m.height/3, minPaneHeight))
	}
}

// setStatusMessage shows a transient message in the footer. The id guards
// against an older timeout clearing a newer message.
func (m *Model) setStatusMessage(text string, isErr bool) tea.Cmd {
	m.statusMsg = text
	m.statusErr = isErr
	m.statusMsgID++

	id := m.statusMsgID

	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}
