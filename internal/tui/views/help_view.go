package views

import (
	"fmt"

	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays the key binding and command reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.Title)

	kc := ui.Tag(theme.Key)
	key := func(k string) string { return fmt.Sprintf("[%s]%-16s[-:-:-]", kc, tview.Escape(k)) }
	section := func(title string) { _, _ = fmt.Fprintf(tv, "\n  [::b]%s[-:-:-]\n\n", title) }
	line := func(k, desc string) { _, _ = fmt.Fprintf(tv, "  %s %s\n", key(k), desc) }

	section("Global")
	line(":", "Command mode")
	line("/", "Search conversations and people")
	line("?", "Help")
	line("esc", "Back")
	line("ctrl-c", "Quit")

	section("Conversations")
	line("enter", "Open conversation")
	line("1-9", "Open the Nth conversation")
	line("p", "Show people matching the search")

	section("Thread")
	line("i", "Focus the composer")
	line("enter", "Send the draft (in composer)")
	line("d", "Conversation details")

	section("Commands")
	line(":attach <path>", "Attach a file to the draft")
	line(":detach", "Remove the attachment")
	line(":cancel", "Discard the draft")
	line(":open <n|name>", "Open a conversation")
	line(":refresh", "Reload the conversation list")
	line(":retry", "Reload the active conversation")
	line(":quit", "Quit")

	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "esc", Description: "Back"},
	}
}
