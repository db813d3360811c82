package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Back      key.Binding
	Submit    key.Binding

	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Open  key.Binding

	Search      key.Binding
	Category    key.Binding
	Sort        key.Binding
	Reset       key.Binding
	More        key.Binding
	Favorite    key.Binding
	Grid        key.Binding
	Theme       key.Binding
	Retry       key.Binding
	RetryFailed key.Binding
	Online      key.Binding

	Notifications key.Binding
	Favorites     key.Binding
	Logs          key.Binding
	Refresh       key.Binding

	Helpful   key.Binding
	Rating    key.Binding
	All       key.Binding
	Delete    key.Binding
	DeleteAll key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Submit:    key.NewBinding(key.WithKeys("enter")),

		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("j/k", "move")),
		Down:  key.NewBinding(key.WithKeys("down", "j")),
		Left:  key.NewBinding(key.WithKeys("left", "h")),
		Right: key.NewBinding(key.WithKeys("right", "l")),
		Open:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "reviews")),

		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Category:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
		Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Reset:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		More:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "more")),
		Favorite:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		Grid:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid")),
		Theme:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Retry:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "retry")),
		RetryFailed: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry failed")),
		Online:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "check network")),

		Notifications: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "inbox")),
		Favorites:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "favorites")),
		Logs:          key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logs")),
		Refresh:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),

		Helpful:   key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "helpful")),
		Rating:    key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5"), key.WithHelp("0-5", "rating")),
		All:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "read all")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		DeleteAll: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete all")),
	}
}

// hints returns the command bar bindings for mode.
func (k keyMap) hints(mode Mode) []key.Binding {
	switch mode {
	case ModeSearch:
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			k.Back,
		}
	case ModeReviews:
		return []key.Binding{k.Up, k.Helpful, k.Rating, k.More, k.Back}
	case ModeNotifications:
		return []key.Binding{
			k.Up,
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read")),
			k.All, k.Delete, k.DeleteAll, k.RetryFailed, k.Back,
		}
	case ModeFavorites:
		return []key.Binding{k.Up, k.Delete, k.DeleteAll, k.Back}
	case ModeLogs:
		return []key.Binding{k.Up, k.Refresh, k.Back}
	default:
		return []key.Binding{
			k.Search, k.Category, k.Sort, k.Reset, k.More, k.Favorite,
			k.Grid, k.Theme, k.Open, k.Notifications, k.Favorites, k.Logs, k.Quit,
		}
	}
}
