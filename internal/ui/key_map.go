package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter    key.Binding
	back     key.Binding
	next     key.Binding
	prev     key.Binding
	register key.Binding
	create   key.Binding
	remove   key.Binding
	add      key.Binding
	songs    key.Binding
	refresh  key.Binding
	logout   key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		register: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "register")),
		create:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new playlist")),
		remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add songs")),
		songs:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "songs")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
