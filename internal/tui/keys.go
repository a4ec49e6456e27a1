package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap groups bindings by where they act: the timer (any view), list
// views, and navigation.
type keyMap struct {
	// Timer
	Start, Pause, Skip, Stop, Reset, Category key.Binding

	// Lists and forms
	New, Edit, Delete, Cascade, Export, Filter key.Binding

	// Navigation
	Views                        []key.Binding // jump to a view by number
	Tab, Help, Enter, Back, Quit key.Binding
	Up, Down, Left, Right        key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// viewBindings maps "1".."5" onto viewNames.
func viewBindings() []key.Binding {
	out := make([]key.Binding, len(viewNames))
	for i, name := range viewNames {
		n := strconv.Itoa(i + 1)
		out[i] = bind(n, name, n)
	}
	return out
}

var keys = keyMap{
	Start:    bind("s", "start", "s"),
	Pause:    bind("space", "pause/resume", " "),
	Skip:     bind("f", "skip", "f"),
	Stop:     bind("x", "stop", "x"),
	Reset:    bind("X", "stop, reset cycle", "X"),
	Category: bind("c", "category", "c"),

	New:     bind("n", "new", "n"),
	Edit:    bind("e", "edit", "e"),
	Delete:  bind("d", "delete", "d"),
	Cascade: bind("D", "delete with intervals", "D"),
	Export:  bind("E", "export", "E"),
	Filter:  bind("p", "filter phase", "p"),

	Views: viewBindings(),
	Tab:   bind("tab", "next view", "tab"),
	Help:  bind("?", "help", "?"),
	Enter: bind("enter", "select", "enter"),
	Back:  bind("esc", "back", "esc"),
	Quit:  bind("q", "quit", "q", "ctrl+c"),
	Up:    bind("↑/k", "up", "up", "k"),
	Down:  bind("↓/j", "down", "down", "j"),
	Left:  bind("←/h", "left", "left", "h"),
	Right: bind("→/l", "right", "right", "l"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Skip, k.Stop, k.Category, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Skip, k.Stop, k.Reset, k.Category},
		{k.New, k.Edit, k.Delete, k.Cascade, k.Export, k.Filter},
		k.Views,
		{k.Up, k.Down, k.Enter, k.Back, k.Quit},
	}
}
