package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the card's key bindings. Left and right emulate dragging
// the slider; release sends the dragged value.
type keyMap struct {
	Left     key.Binding
	Right    key.Binding
	Release  key.Binding
	Plus     key.Binding
	Minus    key.Binding
	Commit   key.Binding
	Mode     key.Binding
	MoreInfo key.Binding
	Dismiss  key.Binding
	Close    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Release, k.Plus, k.Minus, k.Mode, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Release},
		{k.Plus, k.Minus, k.Commit},
		{k.Mode, k.MoreInfo, k.Dismiss, k.Close},
		{k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "drag down"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "drag up"),
		),
		Release: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "release"),
		),
		Plus: key.NewBinding(
			key.WithKeys("+", "=", "up", "k"),
			key.WithHelp("+", "step up"),
		),
		Minus: key.NewBinding(
			key.WithKeys("-", "down", "j"),
			key.WithHelp("-", "step down"),
		),
		Commit: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "send now"),
		),
		Mode: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "mode"),
		),
		MoreInfo: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "more info"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss alert"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close panel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
