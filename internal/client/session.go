// Package client wires the engine components into one session driven by the
// event loop, and exposes a goroutine-safe API to user interfaces.
package client

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/compose"
	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/directory"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/matheus3301/freechat/internal/search"
	"github.com/matheus3301/freechat/internal/status"
	intsync "github.com/matheus3301/freechat/internal/sync"
	"go.uber.org/zap"
)

// Identity resolves the user the credential belongs to.
type Identity interface {
	Me(ctx context.Context) (model.User, error)
}

// Components groups the engine parts a Session drives.
type Components struct {
	Directory *directory.Store
	Search    *search.Engine
	Sync      *intsync.Engine
	Compose   *compose.Pipeline
	Tracker   *readstate.Tracker
}

// Session is the client engine of one signed-in user.
type Session struct {
	loop   *loop.Loop
	me     Identity
	creds  credential.Provider
	c      Components
	bus    *bus.Bus
	logger *zap.Logger

	halted atomic.Bool
	self   model.User
}

// New creates a session and connects directory selection to the sync engine.
func New(l *loop.Loop, me Identity, creds credential.Provider, c Components, b *bus.Bus, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{loop: l, me: me, creds: creds, c: c, bus: b, logger: logger}
	c.Directory.OnSelect(c.Sync.Select)
	c.Directory.OnClear(c.Sync.Close)
	return s
}

// Start resolves the current user and loads the conversation list. The loop
// must already be running. A missing or rejected credential is returned as
// an ErrAuth error.
func (s *Session) Start(ctx context.Context) error {
	s.creds.OnInvalidated(func() { s.loop.Post(s.halt) })
	if _, ok := s.creds.Token(); !ok {
		return fmt.Errorf("start session: %w", errs.ErrAuth)
	}

	user, err := s.me.Me(ctx)
	if err != nil {
		if errs.IsAuth(err) {
			return fmt.Errorf("start session: %w", err)
		}
		s.logger.Warn("could not resolve current user", zap.Error(err))
	}

	return s.loop.Do(func() {
		s.self = user
		s.c.Tracker.SetSelf(user.ID)
		s.c.Sync.SetSelf(user.ID)
		s.c.Directory.Load(context.Background())
		s.logger.Info("session started", zap.Int64("user_id", user.ID))
	})
}

// Stop tears down the live channel and abandons in-flight work.
func (s *Session) Stop() {
	_ = s.loop.Do(func() {
		s.c.Sync.Close()
		s.c.Compose.Close()
		s.c.Search.Reset()
	})
}

// halt ends the session after the credential became invalid. Runs on the loop.
func (s *Session) halt() {
	if s.halted.Swap(true) {
		return
	}
	s.logger.Error("credential invalidated, halting session")
	s.c.Sync.Close()
	s.c.Compose.Close()
	s.c.Search.Reset()
	s.bus.Emit(bus.SessionHalted, errs.ErrHalted)
}

// Halted reports whether the session stopped on an auth failure.
func (s *Session) Halted() bool { return s.halted.Load() }

// act runs fn on the loop unless the session is halted.
func (s *Session) act(fn func() error) error {
	if s.halted.Load() {
		return errs.ErrHalted
	}
	var err error
	if derr := s.loop.Do(func() {
		if s.halted.Load() {
			err = errs.ErrHalted
			return
		}
		err = fn()
	}); derr != nil {
		return derr
	}
	return err
}

func (s *Session) active() (int64, error) {
	conv, ok := s.c.Directory.Active()
	if !ok {
		return 0, errs.ErrUnknownConversation
	}
	return conv.ID, nil
}

// Refresh reloads the conversation list.
func (s *Session) Refresh() error {
	return s.act(func() error {
		s.c.Directory.Load(context.Background())
		return nil
	})
}

// Select makes a conversation active. Selecting the active conversation
// again retries it if its sync failed.
func (s *Session) Select(id int64) error {
	return s.act(func() error { return s.c.Directory.Select(id) })
}

// SetQuery drives both the conversation filter and the user search.
func (s *Session) SetQuery(text string) error {
	return s.act(func() error {
		s.c.Directory.SetFilter(text)
		s.c.Search.SetQuery(text)
		return nil
	})
}

// StartConversation opens a one-to-one conversation with a search result.
func (s *Session) StartConversation(u model.User) error {
	return s.act(func() error {
		s.c.Search.SelectResult(u)
		return nil
	})
}

// SetDraft replaces the active conversation's draft text.
func (s *Session) SetDraft(text string) error {
	return s.act(func() error {
		id, err := s.active()
		if err != nil {
			return err
		}
		return s.c.Compose.SetText(id, text)
	})
}

// Attach attaches a local file to the active conversation's draft.
func (s *Session) Attach(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("attach %s: not a regular file", path)
	}
	file := model.FileRef{
		Path:     path,
		Name:     filepath.Base(path),
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
	}
	return s.act(func() error {
		id, err := s.active()
		if err != nil {
			return err
		}
		return s.c.Compose.Attach(id, file)
	})
}

// Detach removes the attachment of the active conversation's draft.
func (s *Session) Detach() error {
	return s.act(func() error {
		id, err := s.active()
		if err != nil {
			return err
		}
		return s.c.Compose.Detach(id)
	})
}

// CancelDraft clears the active conversation's draft.
func (s *Session) CancelDraft() error {
	return s.act(func() error {
		id, err := s.active()
		if err != nil {
			return err
		}
		return s.c.Compose.Cancel(id)
	})
}

// Send sends the active conversation's draft. An empty draft is ignored.
func (s *Session) Send() error {
	err := s.act(func() error {
		id, err := s.active()
		if err != nil {
			return err
		}
		return s.c.Compose.Send(id)
	})
	if errors.Is(err, errs.ErrValidation) {
		return nil
	}
	return err
}

// View is a consistent snapshot of the whole session state.
type View struct {
	Self model.User

	Conversations    []model.Conversation
	Total            int
	Active           *model.Conversation
	DirectoryLoading bool
	DirectoryErr     error

	Query     string
	Results   []model.User
	Searching bool
	Creating  bool
	SearchErr error

	Sync    status.State
	Entries []readstate.Entry
	SyncErr error

	Draft      compose.Draft
	Compose    status.State
	ComposeErr error
	CanSend    bool

	Halted bool
}

// View reads the session state on the loop.
func (s *Session) View() (View, error) {
	var v View
	err := s.loop.Do(func() {
		v = View{
			Self:             s.self,
			Conversations:    s.c.Directory.Visible(),
			Total:            len(s.c.Directory.All()),
			DirectoryLoading: s.c.Directory.Loading(),
			DirectoryErr:     s.c.Directory.Err(),
			Query:            s.c.Search.Query(),
			Results:          s.c.Search.Results(),
			Searching:        s.c.Search.Searching(),
			Creating:         s.c.Search.Creating(),
			SearchErr:        s.c.Search.Err(),
			Sync:             s.c.Sync.State(),
			Entries:          s.c.Tracker.Annotate(s.c.Sync.Log()),
			SyncErr:          s.c.Sync.Err(),
			Compose:          compose.Empty,
			Halted:           s.halted.Load(),
		}
		if conv, ok := s.c.Directory.Active(); ok {
			v.Active = &conv
			v.Draft = s.c.Compose.Draft(conv.ID)
			v.Compose = s.c.Compose.State(conv.ID)
			v.ComposeErr = s.c.Compose.Err(conv.ID)
			v.CanSend = s.c.Compose.CanSend(conv.ID)
		}
	})
	return v, err
}
