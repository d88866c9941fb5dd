// Package tui is the terminal interface of the chat client.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/compose"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/live"
	"github.com/matheus3301/freechat/internal/readstate"
	intsync "github.com/matheus3301/freechat/internal/sync"
	"github.com/matheus3301/freechat/internal/tui/keys"
	"github.com/matheus3301/freechat/internal/tui/ui"
	"github.com/matheus3301/freechat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	pageConversations = "conversations"
	pageThread        = "thread"
	pagePeople        = "people"
	pageDetails       = "details"
	pageHelp          = "help"
)

// Options configures the header and search hints.
type Options struct {
	Profile        string
	Server         string
	MinQueryLength int
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	sess     *client.Session
	bus      *bus.Bus
	logger   *zap.Logger
	opts     Options
	registry *keys.Registry

	nav      *ui.Navigator
	header   *ui.Header
	status   *ui.StatusLine
	flash    *ui.Flash
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	body     *tview.Flex
	promptOn bool

	convList *views.ConversationList
	thread   *views.MessageThread
	people   *views.SearchView
	details  *views.ConversationInfo
	help     *views.HelpView

	view client.View
}

// New creates the TUI over a started session.
func New(sess *client.Session, b *bus.Bus, logger *zap.Logger, opts Options) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()
	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		sess:     sess,
		bus:      b,
		logger:   logger,
		opts:     opts,
		registry: keys.NewRegistry(),
		nav:      ui.NewNavigator(),
		header:   ui.NewHeader(theme),
		status:   ui.NewStatusLine(theme),
		flash:    ui.NewFlash(),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		convList: views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme),
		people:   views.NewSearchView(theme),
		details:  views.NewConversationInfo(theme),
		help:     views.NewHelpView(theme),
	}
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Help: "Command",
		Handler: func() { a.showPrompt(ui.PromptCommand, "") },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Help: "Search",
		Handler: func() { a.showPrompt(ui.PromptSearch, a.view.Query) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Help: "Help",
		Handler: func() { a.nav.Open(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyEscape, Label: "esc", Help: "Back", Hidden: true,
		Handler: a.back,
	})

	a.registry.AddPage(pageConversations, &keys.Action{
		Key: tcell.KeyRune, Rune: 'p', Label: "p", Help: "People",
		Handler: func() { a.nav.Open(pagePeople) },
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddPage(pageConversations, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n), Label: "1-9", Help: "Jump",
			Numeric: true, Hidden: n > 1,
			Handler: func() {
				if conv, ok := a.convList.ByIndex(n); ok {
					a.open(conv.ID)
				}
			},
		})
	}

	a.registry.AddPage(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Help: "Compose",
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Label: "d", Help: "Details",
		Handler: func() { a.nav.Open(pageDetails) },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, _ int) {
		if conv, ok := a.convList.ByIndex(row); ok {
			a.open(conv.ID)
		}
	})

	a.people.SetSelectedFunc(func(int, int) {
		u, ok := a.people.Selected()
		if !ok {
			return
		}
		if err := a.sess.StartConversation(u); err != nil {
			a.flash.Report(err)
			return
		}
		a.flash.Info("Opening conversation with " + u.Name)
		a.nav.Root(pageConversations)
		a.nav.Open(pageThread)
	})

	a.thread.SetOnDraft(func(text string) {
		if err := a.sess.SetDraft(text); err != nil && !errors.Is(err, errs.ErrBusy) {
			a.flash.Report(err)
		}
	})
	a.thread.SetOnSend(func() {
		if err := a.sess.Send(); err != nil {
			a.flash.Report(err)
		}
	})

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptSearch {
			if err := a.sess.SetQuery(text); err != nil {
				a.flash.Report(err)
			}
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand {
			a.runCommand(ParseCommand(text))
			return
		}
		a.nav.Root(pageConversations)
		a.app.SetFocus(a.convList)
	})
	a.prompt.SetOnCancel(func(mode ui.PromptMode) {
		a.hidePrompt()
		if mode == ui.PromptSearch {
			_ = a.sess.SetQuery("")
		}
	})

	a.nav.SetOnChange(func(_ string, trail []string) {
		a.status.SetTrail(trail)
		a.header.SetHints(a.hints())
		a.focusPage()
	})
}

func (a *App) setupLayout() {
	a.nav.Register(pageConversations, a.convList)
	a.nav.Register(pageThread, a.thread)
	a.nav.Register(pagePeople, a.people)
	a.nav.Register(pageDetails, a.details)
	a.nav.Register(pageHelp, a.help)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nav, 0, 1, true)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, a.header.Height(), 0, false).
		AddItem(a.status, 1, 0, false).
		AddItem(a.body, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.nav.Root(pageConversations)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Input fields handle their own keys; Esc leaves the composer.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			if event.Key() == tcell.KeyEscape && !a.promptOn {
				a.focusPage()
				return nil
			}
			return event
		}
		if a.registry.HandleEvent(a.nav.Top(), event) {
			return nil
		}
		return event
	})
}

func (a *App) hints() []ui.MenuHint {
	hints := a.registry.Hints(a.nav.Top())
	if c, ok := a.nav.TopComponent(); ok {
		seen := make(map[string]bool, len(hints))
		for _, h := range hints {
			seen[h.Key] = true
		}
		for _, h := range c.Hints() {
			if !seen[h.Key] {
				hints = append(hints, h)
			}
		}
	}
	return hints
}

func (a *App) focusPage() {
	switch a.nav.Top() {
	case pageThread:
		a.app.SetFocus(a.thread.Messages())
	case pagePeople:
		a.app.SetFocus(a.people)
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	default:
		a.app.SetFocus(a.convList)
	}
}

func (a *App) back() {
	if !a.nav.Back() && a.view.Query != "" {
		_ = a.sess.SetQuery("")
	}
}

func (a *App) showPrompt(mode ui.PromptMode, text string) {
	a.prompt.Activate(mode, text)
	if !a.promptOn {
		a.body.AddItem(a.prompt, 3, 0, false)
		a.promptOn = true
	}
	if mode == ui.PromptSearch && a.nav.Top() != pageConversations {
		a.nav.Root(pageConversations)
	}
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if a.promptOn {
		a.body.RemoveItem(a.prompt)
		a.promptOn = false
	}
	a.focusPage()
}

func (a *App) open(id int64) {
	if err := a.sess.Select(id); err != nil {
		a.flash.Report(err)
		return
	}
	a.nav.Open(pageThread)
}

func (a *App) runCommand(cmd Command) {
	var err error
	switch cmd.Name {
	case "quit":
		a.app.Stop()
		return
	case "help":
		a.nav.Open(pageHelp)
	case "attach":
		if cmd.Args == "" {
			err = errors.New("usage: :attach <path>")
			break
		}
		path := expandHome(cmd.Args)
		if err = a.sess.Attach(path); err == nil {
			a.flash.Info("Attached " + filepath.Base(path))
		}
	case "detach":
		if err = a.sess.Detach(); err == nil {
			a.flash.Info("Attachment removed")
		}
	case "cancel":
		if err = a.sess.CancelDraft(); err == nil {
			a.thread.ClearComposer(a.activeID())
		}
	case "open":
		err = a.openByRef(cmd.Args)
	case "refresh":
		err = a.sess.Refresh()
	case "retry":
		if id := a.activeID(); id != 0 {
			err = a.sess.Select(id)
		}
	case "":
	default:
		err = fmt.Errorf("unknown command %q", cmd.Name)
	}
	if err != nil {
		a.flash.Report(err)
	}
}

// openByRef opens a conversation by list position or name prefix.
func (a *App) openByRef(ref string) error {
	if n, err := strconv.Atoi(ref); err == nil {
		conv, ok := a.convList.ByIndex(n)
		if !ok {
			return fmt.Errorf("no conversation #%d", n)
		}
		a.open(conv.ID)
		return nil
	}
	ref = strings.ToLower(ref)
	for _, c := range a.view.Conversations {
		if c.HasName() && strings.HasPrefix(strings.ToLower(*c.Name), ref) {
			a.open(c.ID)
			return nil
		}
	}
	return fmt.Errorf("no conversation named %q", ref)
}

func (a *App) activeID() int64 {
	if a.view.Active == nil {
		return 0
	}
	return a.view.Active.ID
}

// render applies a session snapshot. Runs on the tview goroutine.
func (a *App) render(v client.View) {
	a.view = v

	var activeID int64
	if v.Active != nil {
		activeID = v.Active.ID
	}
	a.convList.Update(v.Conversations, activeID, v.Query, v.Total)

	a.people.Update(views.SearchState{
		Query:     v.Query,
		Results:   v.Results,
		Searching: v.Searching,
		Creating:  v.Creating,
		Err:       v.SearchErr,
		MinLength: a.opts.MinQueryLength,
	})

	if v.Active != nil {
		a.thread.Update(views.ThreadState{
			Conversation: *v.Active,
			Sync:         v.Sync,
			SyncErr:      v.SyncErr,
			Entries:      v.Entries,
			Draft:        v.Draft,
			Compose:      v.Compose,
			ComposeErr:   v.ComposeErr,
		})
		a.details.Update(*v.Active, len(v.Entries), unread(v.Entries))
	}

	a.header.SetSummary(ui.Summary{
		Profile:       a.opts.Profile,
		User:          v.Self.Name,
		Server:        a.opts.Server,
		Conversations: v.Total,
		Unread:        unread(v.Entries),
	})
	a.status.SetSync(v.Sync)
	a.flashBar.Update(a.flash.Current())
}

func unread(entries []readstate.Entry) int {
	n := 0
	for _, e := range entries {
		if !e.Own && !e.Message.IsRead {
			n++
		}
	}
	return n
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := a.bus.Subscribe("", 256)
	defer unsubscribe()

	go a.watch(ctx, events)
	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()

	a.refresh()
	return a.app.Run()
}

// watch turns bus events into flashes and redraws.
func (a *App) watch(ctx context.Context, events <-chan bus.Event) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		case evt, ok := <-events:
			if !ok {
				return
			}
			a.notify(evt)
			// Coalesce bursts into one snapshot.
			for drained := false; !drained; {
				select {
				case evt, ok := <-events:
					if !ok {
						return
					}
					a.notify(evt)
				default:
					drained = true
				}
			}
			a.refresh()
		}
	}
}

func (a *App) notify(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case compose.SendResult:
		convID := p.Message.ConversationID
		a.app.QueueUpdateDraw(func() { a.thread.ClearComposer(convID) })
	case compose.SendFailure:
		a.flash.Report(fmt.Errorf("send failed while %s: %w", strings.ToLower(string(p.Stage)), p.Err))
	case intsync.Failure:
		if !errs.IsAuth(p.Err) {
			a.flash.Report(p.Err)
		}
	case intsync.Notice:
		switch p.Event.Kind {
		case live.KindSystem:
			a.flash.Info(p.Event.Text)
		case live.KindTyping:
			a.flash.Info(fmt.Sprintf("user %d is typing...", p.Event.UserID))
		}
	case error:
		switch evt.Kind {
		case bus.SessionHalted:
			a.flash.Sticky("Signed out: run `freechatctl login` and restart")
		case bus.SearchFailed, bus.DirectoryLoadFailed:
			a.flash.Report(p)
		}
	}
}

func (a *App) refresh() {
	v, err := a.sess.View()
	if err != nil {
		a.logger.Debug("session view unavailable", zap.Error(err))
		return
	}
	a.app.QueueUpdateDraw(func() { a.render(v) })
}

// expandHome resolves a leading ~/ against the home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
