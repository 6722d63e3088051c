package dashboard

import "github.com/charmbracelet/bubbles/key"

// pageKeys holds the key bindings for the pipeline page.
type pageKeys struct {
	Groups  key.Binding
	Pause   key.Binding
	Sidebar key.Binding
	Focus   key.Binding
	Copy    key.Binding
	Browse  key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns the page bindings for the help bar.
func (k pageKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Groups, k.Pause, k.Focus, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns the page bindings grouped for expanded help.
func (k pageKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Groups, k.Pause, k.Sidebar},
		{k.Focus, k.Copy, k.Browse},
		{k.Refresh, k.Help, k.Quit},
	}
}

// pageKeyMap returns the key bindings for the pipeline page.
func pageKeyMap() pageKeys {
	return pageKeys{
		// "1-9" is a display-only key for the help bar; actual digit
		// handling is done in handleKey so shifted digits can be caught
		// as exclusive selection.
		Groups: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1-9", "toggle group"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "teams"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f", "F"),
			key.WithHelp("f", "reset focus"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy URL"),
		),
		Browse: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in browser"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
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
