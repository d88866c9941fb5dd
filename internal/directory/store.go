// Package directory holds the user's conversation set and the active selection.
package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/model"
	"go.uber.org/zap"
)

// Lister fetches the full conversation set.
type Lister interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
}

// Update is the payload of bus.DirectoryUpdated.
type Update struct {
	Count    int
	ActiveID int64
}

// Store is the ordered conversation set. Methods must run on the event loop.
type Store struct {
	loop   loop.Poster
	lister Lister
	bus    *bus.Bus
	logger *zap.Logger

	convs     []model.Conversation
	activeID  int64
	hasActive bool
	filter    string
	err       error
	loading   bool
	loadGen   uint64

	onSelect func(model.Conversation)
	onClear  func()
}

// New creates an empty store.
func New(l loop.Poster, lister Lister, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{loop: l, lister: lister, bus: b, logger: logger}
}

// OnSelect registers the hook run whenever the active conversation changes.
func (s *Store) OnSelect(fn func(model.Conversation)) { s.onSelect = fn }

// OnClear registers the hook run when the store drops its active conversation.
func (s *Store) OnClear(fn func()) { s.onClear = fn }

// Load fetches the conversation set and replaces the store contents. Only the
// latest Load applies; an earlier one resolving late is discarded.
func (s *Store) Load(ctx context.Context) {
	s.loadGen++
	gen := s.loadGen
	s.loading = true
	go func() {
		convs, err := s.lister.ListConversations(ctx)
		s.loop.Post(func() { s.onLoaded(gen, convs, err) })
	}()
}

func (s *Store) onLoaded(gen uint64, convs []model.Conversation, err error) {
	if gen != s.loadGen {
		s.logger.Debug("dropping stale conversation list", zap.Uint64("generation", gen))
		return
	}
	s.loading = false
	if err != nil {
		s.convs = nil
		s.clearActive()
		s.err = fmt.Errorf("load conversations: %w", err)
		s.logger.Error("failed to load conversations", zap.Error(err))
		s.bus.Emit(bus.DirectoryLoadFailed, s.err)
		return
	}
	s.err = nil
	s.convs = convs
	s.logger.Info("conversations loaded", zap.Int("count", len(convs)))

	if s.hasActive && s.indexOf(s.activeID) < 0 {
		s.clearActive()
	}
	if !s.hasActive && len(s.convs) > 0 {
		s.activate(s.convs[0])
		return
	}
	s.publish()
}

// Select makes the conversation with id active.
func (s *Store) Select(id int64) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("select %d: %w", id, errs.ErrUnknownConversation)
	}
	s.activate(s.convs[i])
	return nil
}

// Insert puts a newly created conversation at the front, clears the filter
// and makes it active.
func (s *Store) Insert(c model.Conversation) {
	s.filter = ""
	s.convs = slices.DeleteFunc(s.convs, func(x model.Conversation) bool { return x.ID == c.ID })
	s.convs = slices.Insert(s.convs, 0, c)
	s.activate(c)
}

// SetFilter narrows Visible to conversations whose name contains text,
// case-insensitively. Unnamed conversations only show with an empty filter.
func (s *Store) SetFilter(text string) {
	s.filter = text
	s.publish()
}

// Filter returns the current filter text.
func (s *Store) Filter() string { return s.filter }

// Visible returns the conversations matching the filter, in store order.
func (s *Store) Visible() []model.Conversation {
	q := strings.ToLower(strings.TrimSpace(s.filter))
	if q == "" {
		return slices.Clone(s.convs)
	}
	var out []model.Conversation
	for _, c := range s.convs {
		if c.HasName() && strings.Contains(strings.ToLower(*c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

// All returns every conversation in store order.
func (s *Store) All() []model.Conversation { return slices.Clone(s.convs) }

// Active returns the active conversation.
func (s *Store) Active() (model.Conversation, bool) {
	if !s.hasActive {
		return model.Conversation{}, false
	}
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.convs[i], true
	}
	return model.Conversation{}, false
}

// Loading reports whether a Load is in flight.
func (s *Store) Loading() bool { return s.loading }

// Err returns the last load failure. The store is empty while it is set.
func (s *Store) Err() error { return s.err }

func (s *Store) activate(c model.Conversation) {
	changed := !s.hasActive || s.activeID != c.ID
	s.activeID = c.ID
	s.hasActive = true
	s.publish()
	if s.onSelect != nil {
		s.onSelect(c)
	}
	if changed {
		s.logger.Debug("active conversation changed", zap.Int64("conversation_id", c.ID))
	}
}

func (s *Store) clearActive() {
	if !s.hasActive {
		return
	}
	s.logger.Info("active conversation cleared", zap.Int64("conversation_id", s.activeID))
	s.hasActive = false
	s.activeID = 0
	if s.onClear != nil {
		s.onClear()
	}
}

func (s *Store) publish() {
	s.bus.Emit(bus.DirectoryUpdated, Update{Count: len(s.convs), ActiveID: s.activeID})
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.convs, func(c model.Conversation) bool { return c.ID == id })
}
