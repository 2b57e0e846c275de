package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Send          key.Binding
	NewSession    key.Binding
	NextSession   key.Binding
	PrevSession   key.Binding
	DeleteSession key.Binding
	ResetSession  key.Binding
	ClearAll      key.Binding
	NextModel     key.Binding
	EditLast      key.Binding
	CancelEdit    key.Binding
	ScrollUp      key.Binding
	ScrollDown    key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	Send:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	NewSession:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
	NextSession:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next chat")),
	PrevSession:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous chat")),
	DeleteSession: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete chat")),
	ResetSession:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset chat")),
	ClearAll:      key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear all")),
	NextModel:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "next model")),
	EditLast:      key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "edit last")),
	CancelEdit:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel edit")),
	ScrollUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
	Help:          key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
	Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.NewSession, k.NextSession, k.EditLast, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.EditLast, k.CancelEdit},
		{k.NewSession, k.NextSession, k.PrevSession, k.DeleteSession},
		{k.ResetSession, k.ClearAll, k.NextModel},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
