// Package keys maps key events to page actions.
package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/tui/ui"
)

// Action is a key binding.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string // key as shown in the menu
	Help    string
	Hidden  bool
	Numeric bool
	Handler func()
}

// Matches reports whether ev triggers the action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds global and per-page bindings.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active on one page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints returns the visible bindings of page, page bindings first.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	add := func(actions []*Action) {
		start := len(hints)
		for _, a := range actions {
			if !a.Hidden {
				hints = append(hints, ui.MenuHint{Key: a.Label, Description: a.Help, Numeric: a.Numeric})
			}
		}
		sort.SliceStable(hints[start:], func(i, j int) bool {
			return hints[start+i].Key < hints[start+j].Key
		})
	}
	add(r.pages[page])
	add(r.global)
	return hints
}

// HandleEvent runs the first binding of page, then the first global
// binding, matching ev. It reports whether one ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, actions := range [][]*Action{r.pages[page], r.global} {
		for _, a := range actions {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
