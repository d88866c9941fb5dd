// Package search implements the debounced user lookup and the
// start-conversation action.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/metrics"
	"github.com/matheus3301/freechat/internal/model"
	"go.uber.org/zap"
)

// UserSearcher looks users up by a query fragment.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) ([]model.User, error)
}

// ConversationCreator creates a conversation.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, name string, isGroup bool, participantIDs []int64) (model.Conversation, error)
}

// Directory receives conversations created from a search result.
type Directory interface {
	Insert(c model.Conversation)
}

// Timer is the handle of a scheduled debounce.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// Options configures the engine.
type Options struct {
	Debounce  time.Duration
	MinLength int
	// AfterFunc replaces time.AfterFunc, mainly for tests.
	AfterFunc AfterFunc
}

// Results is the payload of bus.SearchResults.
type Results struct {
	Query string
	Users []model.User
}

// Engine is the search session. Methods must run on the event loop.
type Engine struct {
	loop    loop.Poster
	users   UserSearcher
	creator ConversationCreator
	dir     Directory
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger

	debounce  time.Duration
	minLength int
	afterFunc AfterFunc

	query     string
	seq       uint64 // bumped by every query change; results carry the seq they were issued for
	timer     Timer
	cancel    context.CancelFunc
	results   []model.User
	searching bool
	creating  bool
	epoch     uint64 // bumped by Reset; in-flight creations from an older epoch are dropped
	err       error
}

// New creates a search engine.
func New(l loop.Poster, users UserSearcher, creator ConversationCreator, dir Directory, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 2
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return &Engine{
		loop:      l,
		users:     users,
		creator:   creator,
		dir:       dir,
		bus:       b,
		metrics:   metrics.OrNew(m),
		logger:    logger,
		debounce:  opts.Debounce,
		minLength: opts.MinLength,
		afterFunc: opts.AfterFunc,
	}
}

// SetQuery records text and schedules a lookup once input settles. Any
// pending or in-flight lookup for an earlier query is superseded. Queries
// shorter than the minimum length clear the results without a lookup.
func (e *Engine) SetQuery(text string) {
	e.query = text
	e.seq++
	e.stopPending()

	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) < e.minLength {
		e.searching = false
		e.err = nil
		if e.results != nil {
			e.results = nil
			e.publish(q)
		}
		return
	}

	seq := e.seq
	e.timer = e.afterFunc(e.debounce, func() {
		e.loop.Post(func() { e.fire(seq, q) })
	})
}

func (e *Engine) fire(seq uint64, q string) {
	if seq != e.seq {
		return
	}
	e.timer = nil
	e.searching = true
	e.metrics.Searches.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go func() {
		users, err := e.users.SearchUsers(ctx, q)
		e.loop.Post(func() { e.onResults(seq, q, users, err) })
	}()
}

func (e *Engine) onResults(seq uint64, q string, users []model.User, err error) {
	if seq != e.seq {
		e.metrics.StaleDropped.WithLabelValues("search").Inc()
		e.logger.Debug("dropping superseded search results", zap.String("query", q))
		return
	}
	e.searching = false
	e.cancel = nil
	if err != nil {
		e.err = fmt.Errorf("search users: %w", err)
		e.results = nil
		e.logger.Warn("user search failed", zap.Error(err), zap.String("query", q))
		e.bus.Emit(bus.SearchFailed, e.err)
		return
	}
	e.err = nil
	e.results = users
	e.publish(q)
}

// SelectResult starts a one-to-one conversation with u. On success the
// conversation is inserted into the directory and the search is cleared; on
// failure the search is left as it was and the error is surfaced. Calls
// made while a creation is in flight are ignored.
func (e *Engine) SelectResult(u model.User) {
	if e.creating {
		return
	}
	e.creating = true
	epoch := e.epoch
	go func() {
		conv, err := e.creator.CreateConversation(context.Background(), u.Name, false, []int64{u.ID})
		e.loop.Post(func() { e.onCreated(epoch, u, conv, err) })
	}()
}

func (e *Engine) onCreated(epoch uint64, u model.User, conv model.Conversation, err error) {
	if epoch != e.epoch {
		return
	}
	e.creating = false
	if err != nil {
		e.err = fmt.Errorf("start conversation with %s: %w", u.Name, err)
		e.logger.Warn("failed to create conversation", zap.Error(err), zap.Int64("user_id", u.ID))
		e.bus.Emit(bus.SearchFailed, e.err)
		return
	}
	e.logger.Info("conversation created", zap.Int64("conversation_id", conv.ID), zap.Int64("user_id", u.ID))
	e.clear()
	e.dir.Insert(conv)
}

// Reset clears the query, results and any pending work.
func (e *Engine) Reset() {
	e.epoch++
	e.creating = false
	e.clear()
}

func (e *Engine) clear() {
	e.seq++
	e.stopPending()
	e.query = ""
	e.results = nil
	e.searching = false
	e.err = nil
	e.publish("")
}

func (e *Engine) stopPending() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) publish(q string) {
	e.bus.Emit(bus.SearchResults, Results{Query: q, Users: e.results})
}

// Query returns the raw query text.
func (e *Engine) Query() string { return e.query }

// Results returns the users found for the current query.
func (e *Engine) Results() []model.User { return e.results }

// Searching reports whether a lookup is in flight.
func (e *Engine) Searching() bool { return e.searching }

// Creating reports whether a conversation creation is in flight.
func (e *Engine) Creating() bool { return e.creating }

// Err returns the last search or creation failure.
func (e *Engine) Err() error { return e.err }
