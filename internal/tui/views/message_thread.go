package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/compose"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/matheus3301/freechat/internal/status"
	intsync "github.com/matheus3301/freechat/internal/sync"
	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ThreadState is everything the thread renders for the active conversation.
type ThreadState struct {
	Conversation model.Conversation
	Sync         status.State
	SyncErr      error
	Entries      []readstate.Entry
	Draft        compose.Draft
	Compose      status.State
	ComposeErr   error
}

// MessageThread shows the active conversation's log and its composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField

	convID      int64
	onSend      func()
	onDraft     func(text string)
	suppressing bool
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.Border)
	messages.SetBackgroundColor(theme.Bg)
	messages.SetTextColor(theme.Fg)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.Title)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("type a message, :attach <path> to add a file")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.Border)
	composer.SetBackgroundColor(theme.Bg)
	composer.SetFieldBackgroundColor(theme.Bg)
	composer.SetFieldTextColor(theme.Fg)
	composer.SetPlaceholderTextColor(theme.Muted)
	composer.SetLabelColor(theme.Key)
	composer.SetTitleColor(theme.Title)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if !mt.suppressing && mt.onDraft != nil {
			mt.onDraft(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			mt.onSend()
		}
	})

	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string { return "Thread" }

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "enter", Description: "Send (in composer)"},
		{Key: "d", Description: "Details"},
		{Key: "esc", Description: "Back"},
	}
}

// SetOnSend sets the callback for Enter in the composer.
func (mt *MessageThread) SetOnSend(fn func()) { mt.onSend = fn }

// SetOnDraft sets the callback for edits in the composer.
func (mt *MessageThread) SetOnDraft(fn func(text string)) { mt.onDraft = fn }

// Update renders s. The composer text is only replaced when the
// conversation changes.
func (mt *MessageThread) Update(s ThreadState) {
	mt.messages.SetTitle(fmt.Sprintf(" %s [%s] ", tview.Escape(sanitize(s.Conversation.DisplayName())), syncLabel(s.Sync)))
	mt.renderLog(s)

	if s.Conversation.ID != mt.convID {
		mt.convID = s.Conversation.ID
		mt.setComposer(s.Draft.Text)
	}

	mt.composer.SetDisabled(s.Compose == compose.Uploading || s.Compose == compose.Sending)
	mt.composer.SetTitle(composerTitle(s))
}

func (mt *MessageThread) renderLog(s ThreadState) {
	mt.messages.Clear()
	now := time.Now()

	switch {
	case s.Sync == intsync.Loading && len(s.Entries) == 0:
		_, _ = fmt.Fprintf(mt.messages, "[%s]loading messages...[-]", ui.Tag(mt.theme.Muted))
		return
	case s.Sync == intsync.Failed:
		_, _ = fmt.Fprintf(mt.messages, "[%s]%s[-]\n[%s]:retry to try again[-]\n\n",
			ui.Tag(mt.theme.FlashErr), tview.Escape(errText(s.SyncErr)), ui.Tag(mt.theme.Muted))
	}

	var b strings.Builder
	for _, e := range s.Entries {
		m := e.Message
		color := mt.theme.Peer
		if e.Own {
			color = mt.theme.Own
		}
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [%s]%s[-]",
			ui.Tag(color), tview.Escape(senderLabel(m, e.Own)),
			ui.Tag(mt.theme.Muted), formatTime(m.Timestamp.Time, now))
		if e.Own {
			markColor := mt.theme.Muted
			if e.Mark == readstate.Read {
				markColor = mt.theme.Read
			}
			fmt.Fprintf(&b, " [%s]%s[-]", ui.Tag(markColor), e.Mark.Glyph())
		}
		b.WriteString("\n")
		if m.Content != "" {
			b.WriteString(tview.Escape(sanitize(m.Content)))
			b.WriteString("\n")
		}
		if label := attachmentLabel(m.Attachment); label != "" {
			fmt.Fprintf(&b, "[%s]%s[-]\n", ui.Tag(mt.theme.Accent), tview.Escape(label))
		}
		b.WriteString("\n")
	}
	_, _ = fmt.Fprint(mt.messages, b.String())
	mt.messages.ScrollToEnd()
}

// Messages returns the log view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView { return mt.messages }

// Composer returns the composer input (for focus management).
func (mt *MessageThread) Composer() *tview.InputField { return mt.composer }

// ClearComposer empties the composer after the draft of conversationID was sent.
func (mt *MessageThread) ClearComposer(conversationID int64) {
	if conversationID == mt.convID {
		mt.setComposer("")
	}
}

// setComposer replaces the composer text without reporting it as an edit.
func (mt *MessageThread) setComposer(text string) {
	if mt.composer.GetText() == text {
		return
	}
	mt.suppressing = true
	mt.composer.SetText(text)
	mt.suppressing = false
}

func composerTitle(s ThreadState) string {
	parts := []string{"Compose"}
	if s.Draft.File != nil {
		parts = append(parts, "file: "+tview.Escape(sanitize(s.Draft.File.Name)))
	}
	switch s.Compose {
	case compose.Uploading:
		parts = append(parts, "uploading...")
	case compose.Sending:
		parts = append(parts, "sending...")
	}
	if s.ComposeErr != nil {
		parts = append(parts, "failed: "+tview.Escape(s.ComposeErr.Error()))
	}
	return " " + strings.Join(parts, " | ") + " "
}

func syncLabel(st status.State) string {
	switch st {
	case intsync.Live:
		return "live"
	case intsync.Loading:
		return "loading"
	case intsync.Reconnecting:
		return "reconnecting"
	case intsync.Failed:
		return "failed"
	case intsync.Closed:
		return "closed"
	}
	return "idle"
}

func senderLabel(m model.Message, own bool) string {
	switch {
	case own:
		return "You"
	case m.SenderID == 0:
		return "system"
	}
	return fmt.Sprintf("user %d", m.SenderID)
}

func attachmentLabel(a *model.Attachment) string {
	if a == nil {
		return ""
	}
	name := a.Name
	if name == "" {
		name = a.URL
	}
	return "[file: " + name + "]"
}

func errText(err error) string {
	if err == nil {
		return "unavailable"
	}
	return err.Error()
}
