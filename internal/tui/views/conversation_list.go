package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the table of visible conversations.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	convs    []model.Conversation
	activeID int64
	filter   string
	total    int
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.Border)
	table.SetBackgroundColor(theme.Bg)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.CursorFg).
		Background(theme.CursorBg))
	table.SetTitleColor(theme.Title)

	cl := &ConversationList{
		Table: table,
		theme: theme,
	}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "enter", Description: "Open"},
		{Key: "/", Description: "Search"},
		{Key: ":", Description: "Command"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the rows. convs is already filtered; total is the
// unfiltered count shown in the title.
func (cl *ConversationList) Update(convs []model.Conversation, activeID int64, filter string, total int) {
	selected, hadSelection := cl.Selected()
	cl.convs = convs
	cl.activeID = activeID
	cl.filter = filter
	cl.total = total
	cl.render()

	target := activeID
	if hadSelection {
		target = selected.ID
	}
	for i, c := range convs {
		if c.ID == target {
			cl.Select(i+1, 0)
			return
		}
	}
	if len(convs) > 0 {
		cl.Select(1, 0)
	}
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" NAME", 1},
		{" TYPE", 0},
		{" CREATED", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.HeaderFg).
			SetBackgroundColor(cl.theme.HeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := time.Now()
	for i, c := range cl.convs {
		row := i + 1
		marker := " "
		color := cl.theme.Fg
		if c.ID == cl.activeID {
			marker = "*"
			color = cl.theme.Own
		}
		kind := "DM"
		if c.IsGroup {
			kind = "GROUP"
		}
		name := c.DisplayName()
		if !c.HasName() {
			color = cl.theme.Muted
		}

		cl.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%s%d", marker, row)).SetTextColor(cl.theme.Muted))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitize(name))).SetExpansion(1).SetTextColor(color))
		cl.SetCell(row, 2, tview.NewTableCell(" "+kind).SetTextColor(cl.theme.Fg))
		cl.SetCell(row, 3, tview.NewTableCell(" "+formatTime(c.CreatedAt.Time, now)).SetTextColor(cl.theme.Muted).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) /%s ", len(cl.convs), cl.total, tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", cl.total))
	}
}

// Selected returns the conversation under the cursor.
func (cl *ConversationList) Selected() (model.Conversation, bool) {
	row, _ := cl.GetSelection()
	return cl.ByIndex(row)
}

// ByIndex returns the nth visible conversation, counting from 1.
func (cl *ConversationList) ByIndex(n int) (model.Conversation, bool) {
	if n < 1 || n > len(cl.convs) {
		return model.Conversation{}, false
	}
	return cl.convs[n-1], true
}
