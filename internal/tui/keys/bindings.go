package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/inbox/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Label is the key as shown in the menu.
func (a *Action) Label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

// Registry holds keybindings organized by page.
type Registry struct {
	Global map[string]*Action
	Views  map[string]map[string]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		Global: make(map[string]*Action),
		Views:  make(map[string]map[string]*Action),
	}
}

// AddGlobal registers a global keybinding.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.Global[name] = action
}

// AddView registers a page-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	if r.Views[view] == nil {
		r.Views[view] = make(map[string]*Action)
	}
	r.Views[view][name] = action
}

// Hints returns the visible bindings of view followed by the global ones,
// each group sorted by key.
func (r *Registry) Hints(view string) []ui.MenuHint {
	collect := func(m map[string]*Action) []ui.MenuHint {
		var out []ui.MenuHint
		for _, a := range m {
			if a.Visible {
				out = append(out, ui.MenuHint{Key: a.Label(), Description: a.Description})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out
	}
	return append(collect(r.Views[view]), collect(r.Global)...)
}

// HandleEvent dispatches a key event to the matching action in the given
// page. Page bindings win over global ones. Returns true if a handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	if viewBindings, ok := r.Views[view]; ok {
		for _, a := range viewBindings {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	for _, a := range r.Global {
		if a.Matches(ev) {
			a.Handler()
			return true
		}
	}
	return false
}
