package ui

import "github.com/rivo/tview"

// MenuHint is one shortcut shown in the header.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 1-9 jumps, rendered in their own color
}

// Component is a page the navigator can show.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}

// Navigator shows one registered page at a time and remembers how the user
// got there. The first page opened by Root stays at the bottom.
type Navigator struct {
	*tview.Pages
	pages    map[string]Component
	stack    []string
	onChange func(top string, trail []string)
}

// NewNavigator creates an empty navigator.
func NewNavigator() *Navigator {
	return &Navigator{Pages: tview.NewPages(), pages: make(map[string]Component)}
}

// Register adds c under id without showing it.
func (n *Navigator) Register(id string, c Component) {
	n.pages[id] = c
	n.AddPage(id, c, true, false)
}

// SetOnChange registers fn, called with the top page id and the display
// names of the stack after every change.
func (n *Navigator) SetOnChange(fn func(top string, trail []string)) {
	n.onChange = fn
}

// Root discards the history and shows id.
func (n *Navigator) Root(id string) {
	n.stack = append(n.stack[:0], id)
	n.show()
}

// Open shows id on top. If id is already on the stack the pages above it
// are dropped instead of opening it twice.
func (n *Navigator) Open(id string) {
	for i, s := range n.stack {
		if s == id {
			if i == len(n.stack)-1 {
				return
			}
			n.stack = n.stack[:i+1]
			n.show()
			return
		}
	}
	n.stack = append(n.stack, id)
	n.show()
}

// Back returns to the previous page. It reports false at the root.
func (n *Navigator) Back() bool {
	if len(n.stack) <= 1 {
		return false
	}
	n.stack = n.stack[:len(n.stack)-1]
	n.show()
	return true
}

// Top returns the id of the visible page.
func (n *Navigator) Top() string {
	if len(n.stack) == 0 {
		return ""
	}
	return n.stack[len(n.stack)-1]
}

// TopComponent returns the visible page.
func (n *Navigator) TopComponent() (Component, bool) {
	c, ok := n.pages[n.Top()]
	return c, ok
}

// Trail returns the display names of the stack, bottom first.
func (n *Navigator) Trail() []string {
	trail := make([]string, 0, len(n.stack))
	for _, id := range n.stack {
		if c, ok := n.pages[id]; ok {
			trail = append(trail, c.Name())
		}
	}
	return trail
}

func (n *Navigator) show() {
	top := n.Top()
	n.SwitchToPage(top)
	if n.onChange != nil {
		n.onChange(top, n.Trail())
	}
}
