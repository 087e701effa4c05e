package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists the board's bindings. Action keys use ctrl chords so they
// never collide with text typed into a focused field.
type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Less    key.Binding
	More    key.Binding
	Clear   key.Binding
	Send    key.Binding
	Submit  key.Binding
	Propose key.Binding
	Walk    key.Binding
	Accept  key.Binding
	Reject  key.Binding
	Scroll  key.Binding
	Quit    key.Binding
}

var defaultKeyMap = keyMap{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Less: key.NewBinding(
		key.WithKeys("left", "-"),
		key.WithHelp("←/-", "less"),
	),
	More: key.NewBinding(
		key.WithKeys("right", "+", "="),
		key.WithHelp("→/+", "more"),
	),
	Clear: key.NewBinding(
		key.WithKeys("backspace", "delete"),
		key.WithHelp("del", "clear share"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "submit"),
	),
	Propose: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("C-p", "propose deal"),
	),
	Walk: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "walk away"),
	),
	Accept: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("C-y", "accept"),
	),
	Reject: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("C-n", "reject"),
	),
	Scroll: key.NewBinding(
		key.WithKeys("pgup", "pgdown"),
		key.WithHelp("pgup/pgdn", "scroll chat"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

// phaseKeys narrows the help line to the bindings that do something in the
// current form.
type phaseKeys []key.Binding

func (p phaseKeys) ShortHelp() []key.Binding { return p }

func (p phaseKeys) FullHelp() [][]key.Binding { return [][]key.Binding{p} }
