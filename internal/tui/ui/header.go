package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

const (
	headerRows = 6
	infoWidth  = 34
	logoWidth  = 14
)

const logoArt = `╔═╗┬─┐┌─┐┌─┐
╠╣ ├┬┘├┤ ├┤ 
╚  ┴└─└─┘└─┘`

// Summary is what the header reports about the running client.
type Summary struct {
	Profile       string
	User          string
	Server        string
	Conversations int
	Unread        int
}

// Header is the top band: client summary, key hints and the logo.
type Header struct {
	*tview.Flex
	theme *Theme
	info  *tview.TextView
	hints *tview.TextView
}

// NewHeader builds the header.
func NewHeader(theme *Theme) *Header {
	text := func() *tview.TextView {
		tv := tview.NewTextView().SetDynamicColors(true)
		tv.SetBackgroundColor(theme.Bg)
		return tv
	}
	h := &Header{theme: theme, info: text(), hints: text()}
	h.info.SetBorderPadding(0, 0, 1, 1)
	h.hints.SetBorderPadding(0, 0, 2, 0)

	logo := text()
	logo.SetBorderPadding(1, 0, 0, 1)
	_, _ = fmt.Fprintf(logo, "[%s::b]%s[-:-:-]\n[%s]  chat[-]", Tag(theme.Title), logoArt, Tag(theme.Muted))

	h.Flex = tview.NewFlex().
		AddItem(h.info, infoWidth, 0, false).
		AddItem(h.hints, 0, 1, false).
		AddItem(logo, logoWidth, 0, false)
	return h
}

// Height is the number of rows the header needs.
func (h *Header) Height() int { return headerRows }

// SetSummary renders s in the left column.
func (h *Header) SetSummary(s Summary) {
	label, value := Tag(h.theme.Fg), Tag(h.theme.Accent)
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		_, _ = fmt.Fprintf(h.info, "[%s::b]%-9s[-:-:-][%s]%s[-]\n", label, k, value, tview.Escape(v))
	}
	h.info.Clear()
	row("Profile", s.Profile)
	row("User", s.User)
	row("Server", s.Server)
	row("Chats", fmt.Sprint(s.Conversations))
	row("Unread", fmt.Sprint(s.Unread))
}

// SetHints lays hints out in columns of at most headerRows entries.
func (h *Header) SetHints(hints []MenuHint) {
	h.hints.Clear()
	_, _ = fmt.Fprint(h.hints, layoutHints(hints, headerRows, h.theme))
}

func layoutHints(hints []MenuHint, rows int, theme *Theme) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + rows - 1) / rows
	width := 0
	for _, hint := range hints {
		width = max(width, len(hint.Key)+len(hint.Description)+4)
	}

	lines := make([]string, min(rows, len(hints)))
	for i, hint := range hints {
		color := theme.Key
		if hint.Numeric {
			color = theme.NumericKey
		}
		cell := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", Tag(color), tview.Escape(hint.Key), hint.Description)
		if i/rows < cols-1 {
			cell += strings.Repeat(" ", width-len(hint.Key)-len(hint.Description)-3)
		}
		lines[i%rows] += cell
	}
	return strings.Join(lines, "\n")
}
