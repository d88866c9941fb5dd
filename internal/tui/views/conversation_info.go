package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays details about the active conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.Title)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "esc", Description: "Back"},
	}
}

// Update renders details for conv with the counts of its loaded log.
func (ci *ConversationInfo) Update(conv model.Conversation, messages, unread int) {
	ci.Clear()

	fg := ui.Tag(ci.theme.Fg)
	ct := ui.Tag(ci.theme.Accent)

	kind := "Direct message"
	if conv.IsGroup {
		kind = "Group"
	}
	created := formatTime(conv.CreatedAt.Time, time.Now())
	if created == "" {
		created = "-"
	}

	rows := [][2]string{
		{"Name:", conv.DisplayName()},
		{"ID:", fmt.Sprint(conv.ID)},
		{"Type:", kind},
		{"Created by:", fmt.Sprintf("user %d", conv.CreatedBy)},
		{"Created:", created},
		{"Messages:", fmt.Sprint(messages)},
		{"Unread:", fmt.Sprint(unread)},
	}
	_, _ = fmt.Fprintln(ci)
	for _, r := range rows {
		_, _ = fmt.Fprintf(ci, " [%s::b]%-12s[-:-:-] [%s]%s[-]\n", fg, r[0], ct, tview.Escape(sanitize(r[1])))
	}
	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(sanitize(conv.DisplayName()))))
}
