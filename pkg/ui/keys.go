package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the dashboard keybindings.
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Use        key.Binding
	Refresh    key.Binding
	RefreshAll key.Binding
	Filter     key.Binding
	ShowHidden key.Binding
	Output     key.Binding
	Help       key.Binding
	Quit       key.Binding
	Escape     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Use: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "use context"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		RefreshAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh all"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		ShowHidden: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "show hidden"),
		),
		Output: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "task output"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear filter"),
		),
	}
}

// ShortHelp implements [help.KeyMap].
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Use, k.Refresh, k.Filter, k.Help, k.Quit}
}

// FullHelp implements [help.KeyMap].
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Use},
		{k.Refresh, k.RefreshAll, k.ShowHidden},
		{k.Filter, k.Output, k.Escape},
		{k.Help, k.Quit},
	}
}
