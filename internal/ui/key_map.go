package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	hide  key.Binding
	heart key.Binding
	like  key.Binding
	laugh key.Binding
	wow   key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		hide:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hide")),
		heart: key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("ctrl+h", "heart")),
		like:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "like")),
		laugh: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "laugh")),
		wow:   key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "wow")),
		quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.heart, k.like, k.laugh, k.wow},
		{k.back, k.hide, k.quit},
	}
}
