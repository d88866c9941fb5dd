package ui

import (
	"fmt"
	"strings"

	"github.com/matheus3301/freechat/internal/status"
	"github.com/rivo/tview"
)

// StatusLine shows where the user is and the sync state of the open
// conversation.
type StatusLine struct {
	*tview.TextView
	theme *Theme
	trail []string
	sync  status.State
}

// NewStatusLine creates an empty status line.
func NewStatusLine(theme *Theme) *StatusLine {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.Bg)
	return &StatusLine{TextView: tv, theme: theme}
}

// SetTrail replaces the page trail.
func (s *StatusLine) SetTrail(trail []string) {
	s.trail = trail
	s.render()
}

// SetSync replaces the sync badge. An empty state hides it.
func (s *StatusLine) SetSync(state status.State) {
	if state == s.sync {
		return
	}
	s.sync = state
	s.render()
}

func (s *StatusLine) render() {
	s.Clear()
	t := s.theme
	parts := make([]string, 0, len(s.trail)+1)
	for i, name := range s.trail {
		bg, attr := t.TrailBg, ""
		if i == len(s.trail)-1 {
			bg, attr = t.TrailTopBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Tag(t.TrailFg), Tag(bg), attr, tview.Escape(name)))
	}
	if s.sync != "" {
		parts = append(parts, fmt.Sprintf("[%s::b]● %s[-:-:-]", Tag(t.SyncColor(s.sync)), strings.ToLower(string(s.sync))))
	}
	_, _ = fmt.Fprint(s, strings.Join(parts, " "))
}
