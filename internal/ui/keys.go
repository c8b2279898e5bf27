package ui

import "charm.land/bubbles/v2/key"

// keyMap holds the bindings of the window table
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Main        key.Binding
	Scatter     key.Binding
	Clear       key.Binding
	Open        key.Binding
	Reconstruct key.Binding
	Save        key.Binding
	Copy        key.Binding
	Focus       key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Main:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "set main")),
		Scatter:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "set scatter")),
		Clear:       key.NewBinding(key.WithKeys("c", "backspace"), key.WithHelp("c", "clear label")),
		Open:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open study")),
		Reconstruct: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconstruct")),
		Save:        key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		Focus:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "focus")),
		Confirm:     key.NewBinding(key.WithKeys("enter")),
		Cancel:      key.NewBinding(key.WithKeys("esc")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// shortHelp lists the bindings shown in the footer
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Main, k.Scatter, k.Clear, k.Open, k.Reconstruct, k.Save, k.Copy, k.Focus, k.Quit}
}
