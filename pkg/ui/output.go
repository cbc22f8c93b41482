package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/stefanprodan/kswitch-sub001/pkg/ansis"
	"github.com/stefanprodan/kswitch-sub001/pkg/task"
)

// outputPane shows the live output of the most recent task run. Raw chunks
// arrive in process order and are re-rendered through ansis, so progress
// bars and colored diagnostics display as the script intended.
type outputPane struct {
	taskName string
	result   string
	raw      []byte
	viewport viewport.Model
	running  bool
	follow   bool
}

func newOutputPane() outputPane {
	return outputPane{
		viewport: viewport.New(0, 0),
		follow:   true,
	}
}

func (p *outputPane) start(t task.Task) {
	p.taskName = t.Name
	p.raw = p.raw[:0]
	p.result = ""
	p.running = true
	p.follow = true
	p.viewport.SetContent("")
	p.viewport.GotoTop()
}

func (p *outputPane) appendChunk(chunk []byte) {
	p.raw = append(p.raw, chunk...)
	p.refresh()
}

func (p *outputPane) finish(run *task.Run, err error) {
	p.running = false

	switch {
	case err != nil:
		p.result = fmt.Sprintf("failed: %v", err)
	case run == nil:
		p.result = "done"
	case run.Succeeded():
		p.result = fmt.Sprintf("succeeded in %s", run.Duration.Round(durationPrecision))
	case run.TimedOut:
		p.result = fmt.Sprintf("timed out after %s", run.Duration.Round(durationPrecision))
	case run.Canceled:
		p.result = "canceled"
	default:
		p.result = fmt.Sprintf("exit code %d", run.ExitCode)
	}

	p.refresh()
}

func (p *outputPane) cancel(run *task.Run) {
	p.running = false
	p.result = "canceled"

	if run != nil {
		p.raw = append(p.raw[:0], run.RawOutput...)
	}

	p.refresh()
}

func (p *outputPane) refresh() {
	p.viewport.SetContent(ansis.Render(ansis.Parse(p.raw)))

	if p.follow {
		p.viewport.GotoBottom()
	}
}

func (p *outputPane) setSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = max(height-1, 1) // One line for the title bar.
	p.refresh()
}

// hasContent reports whether there is anything worth showing.
func (p *outputPane) hasContent() bool {
	return p.taskName != ""
}

func (p *outputPane) title(st Styles, sp string) string {
	switch {
	case p.running:
		return st.PaneTitle.Render("task: "+p.taskName) + " " + st.Checking.Render(sp+" running")
	case p.result != "":
		return st.PaneTitle.Render("task: "+p.taskName) + " " + st.Subtle.Render(p.result)
	default:
		return st.PaneTitle.Render("task: " + p.taskName)
	}
}

func (p *outputPane) view(st Styles, sp string) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		p.title(st, sp),
		p.viewport.View(),
	)
}
