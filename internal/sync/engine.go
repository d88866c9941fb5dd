package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/live"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/metrics"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/status"
	"go.uber.org/zap"
)

// MessageLister fetches a conversation snapshot.
type MessageLister interface {
	ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error)
}

// Dialer opens the live channel of a conversation.
type Dialer interface {
	Dial(ctx context.Context, conversationID int64) (live.Subscription, error)
}

// Options tunes reconnect behaviour.
type Options struct {
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// LogUpdate is the payload of bus.SyncLogUpdated.
type LogUpdate struct {
	ConversationID int64
	Generation     uint64
	Len            int
}

// Notice is the payload of bus.LiveNotice for events that do not touch the log.
type Notice struct {
	ConversationID int64
	Event          live.Event
}

// Failure is the payload of bus.SyncFailed.
type Failure struct {
	ConversationID int64
	Err            error
}

// Engine keeps the selected conversation's log consistent with the snapshot
// API and its live channel.
//
// All methods must run on the event loop. Every asynchronous continuation
// carries the selection it was started for and is dropped when that
// selection is no longer current.
type Engine struct {
	loop    loop.Poster
	msgs    MessageLister
	dialer  Dialer
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options

	selfID int64
	gen    uint64
	cur    *selection
}

// selection is the generation-tagged session of one selected conversation.
type selection struct {
	gen     uint64
	id      int64              // fixed at selection; read by off-loop goroutines
	conv    model.Conversation // loop only
	ctx     context.Context
	cancel  context.CancelFunc
	machine *status.Machine
	log     *Log
	sub     live.Subscription
	backoff backoff.BackOff
	pending []model.Message // send responses that arrived while loading
	err     error
}

// NewEngine creates a new sync engine.
func NewEngine(l loop.Poster, msgs MessageLister, dialer Dialer, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReconnectInitial <= 0 {
		opts.ReconnectInitial = 500 * time.Millisecond
	}
	if opts.ReconnectMax < opts.ReconnectInitial {
		opts.ReconnectMax = 30 * time.Second
	}
	return &Engine{
		loop:    l,
		msgs:    msgs,
		dialer:  dialer,
		bus:     b,
		metrics: metrics.OrNew(m),
		logger:  logger,
		opts:    opts,
	}
}

// SetSelf records the current user's id, used to attribute echoed messages.
func (e *Engine) SetSelf(id int64) { e.selfID = id }

// Select makes conv the synchronized conversation. The previous selection is
// torn down first. Selecting the conversation that is already loading or
// live is a no-op; selecting a failed or closed one starts over.
func (e *Engine) Select(conv model.Conversation) {
	if cur := e.cur; cur != nil && cur.id == conv.ID && cur.machine.Is(Loading, Live, Reconnecting) {
		cur.conv = conv
		return
	}
	e.teardown()

	e.gen++
	ctx, cancel := context.WithCancel(context.Background())
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.opts.ReconnectInitial
	bo.MaxInterval = e.opts.ReconnectMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	sel := &selection{
		gen:     e.gen,
		id:      conv.ID,
		conv:    conv,
		ctx:     ctx,
		cancel:  cancel,
		machine: status.NewMachine(e.bus, bus.SyncStateChanged, conv.ID, Idle, transitions),
		log:     NewLog(),
		backoff: bo,
	}
	e.cur = sel
	e.logger.Info("conversation selected", zap.Int64("conversation_id", conv.ID), zap.Uint64("generation", sel.gen))

	e.transition(sel, Loading)
	e.publishLog(sel)
	go e.fetchSnapshot(sel)
}

// Close tears down the current selection.
func (e *Engine) Close() {
	e.teardown()
	e.gen++
}

// Reconcile appends an authoritative message, typically a send response,
// to the selected conversation's log under the id de-duplication rule.
func (e *Engine) Reconcile(msg model.Message) {
	sel := e.cur
	if sel == nil || sel.id != msg.ConversationID {
		return
	}
	switch sel.machine.Current() {
	case Loading:
		sel.pending = append(sel.pending, msg)
	case Live, Reconnecting:
		e.appendMessage(sel, msg)
	}
}

// State returns the sync state of the selected conversation, or Idle.
func (e *Engine) State() status.State {
	if e.cur == nil {
		return Idle
	}
	return e.cur.machine.Current()
}

// Conversation returns the selected conversation.
func (e *Engine) Conversation() (model.Conversation, bool) {
	if e.cur == nil {
		return model.Conversation{}, false
	}
	return e.cur.conv, true
}

// Log returns a copy of the selected conversation's messages.
func (e *Engine) Log() []model.Message {
	if e.cur == nil {
		return nil
	}
	return e.cur.log.Messages()
}

// Generation returns the selection counter.
func (e *Engine) Generation() uint64 { return e.gen }

// Err returns the failure of the selected conversation, if any.
func (e *Engine) Err() error {
	if e.cur == nil {
		return nil
	}
	return e.cur.err
}

func (e *Engine) isCurrent(sel *selection) bool {
	return e.cur == sel && sel.gen == e.gen
}

func (e *Engine) dropStale(sel *selection, what string) {
	e.metrics.StaleDropped.WithLabelValues("sync").Inc()
	e.logger.Debug("dropping stale completion",
		zap.String("what", what),
		zap.Int64("conversation_id", sel.id),
		zap.Uint64("generation", sel.gen),
		zap.Uint64("current", e.gen))
}

func (e *Engine) teardown() {
	sel := e.cur
	if sel == nil {
		return
	}
	sel.cancel()
	if sel.sub != nil {
		_ = sel.sub.Close()
		sel.sub = nil
	}
	sel.log = NewLog()
	sel.pending = nil
	if !sel.machine.Is(Closed) {
		e.transition(sel, Closed)
	}
}

func (e *Engine) transition(sel *selection, to status.State) {
	if err := sel.machine.Transition(to); err != nil {
		e.logger.Error("sync state", zap.Error(err), zap.Int64("conversation_id", sel.id))
	}
}

func (e *Engine) fail(sel *selection, err error) {
	sel.err = err
	sel.cancel()
	if sel.sub != nil {
		_ = sel.sub.Close()
		sel.sub = nil
	}
	e.transition(sel, Failed)
	e.logger.Warn("conversation sync failed", zap.Error(err), zap.Int64("conversation_id", sel.id))
	e.bus.Emit(bus.SyncFailed, Failure{ConversationID: sel.id, Err: err})
}

func (e *Engine) publishLog(sel *selection) {
	e.bus.Emit(bus.SyncLogUpdated, LogUpdate{
		ConversationID: sel.id,
		Generation:     sel.gen,
		Len:            sel.log.Len(),
	})
}

func (e *Engine) fetchSnapshot(sel *selection) {
	msgs, err := e.msgs.ListMessages(sel.ctx, sel.id)
	e.loop.Post(func() { e.onSnapshot(sel, msgs, err) })
}

func (e *Engine) onSnapshot(sel *selection, msgs []model.Message, err error) {
	if !e.isCurrent(sel) {
		e.dropStale(sel, "snapshot")
		return
	}
	if err != nil {
		e.fail(sel, fmt.Errorf("load messages: %w", err))
		return
	}
	sel.log.Replace(msgs)
	for _, m := range sel.pending {
		sel.log.Append(m)
	}
	sel.pending = nil
	e.logger.Info("snapshot loaded", zap.Int64("conversation_id", sel.id), zap.Int("messages", sel.log.Len()))
	e.publishLog(sel)
	go e.dial(sel)
}

func (e *Engine) dial(sel *selection) {
	sub, err := e.dialer.Dial(sel.ctx, sel.id)
	if !e.loop.Post(func() { e.onDialed(sel, sub, err) }) && sub != nil {
		_ = sub.Close()
	}
}

func (e *Engine) onDialed(sel *selection, sub live.Subscription, err error) {
	if !e.isCurrent(sel) {
		if sub != nil {
			_ = sub.Close()
		}
		e.dropStale(sel, "dial")
		return
	}
	if err != nil {
		if errors.Is(err, errs.ErrAuth) || errors.Is(err, errs.ErrForbidden) {
			e.fail(sel, err)
			return
		}
		e.logger.Warn("live channel unavailable", zap.Error(err), zap.Int64("conversation_id", sel.id))
		if sel.machine.Is(Loading) {
			e.transition(sel, Reconnecting)
		}
		e.scheduleRedial(sel)
		return
	}

	resumed := sel.machine.Is(Reconnecting)
	sel.sub = sub
	sel.backoff.Reset()
	e.transition(sel, Live)
	go e.pump(sel, sub)
	if resumed {
		go e.catchUp(sel)
	}
}

// pump forwards events of one subscription to the loop until it ends.
func (e *Engine) pump(sel *selection, sub live.Subscription) {
	for ev := range sub.Events() {
		if !e.loop.Post(func() { e.onEvent(sel, sub, ev) }) {
			_ = sub.Close()
			return
		}
	}
	err := sub.Err()
	e.loop.Post(func() { e.onChannelEnded(sel, sub, err) })
}

func (e *Engine) onEvent(sel *selection, sub live.Subscription, ev live.Event) {
	if !e.isCurrent(sel) || sel.sub != sub {
		e.dropStale(sel, "live event")
		return
	}
	e.metrics.LiveEvents.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case live.KindMessage, live.KindMessageSent:
		if ev.Message == nil {
			return
		}
		msg := *ev.Message
		msg.ConversationID = sel.id
		if ev.Kind == live.KindMessageSent && msg.SenderID == 0 {
			msg.SenderID = e.selfID
		}
		e.appendMessage(sel, msg)
	case live.KindReadReceipt:
		if n := sel.log.MarkRead(ev.MessageIDs); n > 0 {
			e.publishLog(sel)
		}
	case live.KindSystem, live.KindTyping, live.KindPresence:
		e.bus.Emit(bus.LiveNotice, Notice{ConversationID: sel.id, Event: ev})
	default:
		e.logger.Debug("ignoring live event", zap.String("tag", ev.Tag))
	}
}

func (e *Engine) appendMessage(sel *selection, msg model.Message) {
	if !sel.log.Append(msg) {
		e.metrics.DuplicatesSuppressed.Inc()
		return
	}
	e.publishLog(sel)
}

func (e *Engine) onChannelEnded(sel *selection, sub live.Subscription, err error) {
	if !e.isCurrent(sel) || sel.sub != sub {
		return
	}
	sel.sub = nil
	if errors.Is(err, errs.ErrAuth) || errors.Is(err, errs.ErrForbidden) {
		e.fail(sel, err)
		return
	}
	e.logger.Warn("live channel closed", zap.Error(err), zap.Int64("conversation_id", sel.id))
	e.transition(sel, Reconnecting)
	e.scheduleRedial(sel)
}

func (e *Engine) scheduleRedial(sel *selection) {
	d := sel.backoff.NextBackOff()
	if d == backoff.Stop {
		e.fail(sel, errs.ErrChannelClosed)
		return
	}
	e.metrics.Reconnects.Inc()
	e.logger.Info("reconnecting live channel", zap.Int64("conversation_id", sel.id), zap.Duration("delay", d))
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			e.dial(sel)
		case <-sel.ctx.Done():
		}
	}()
}

func (e *Engine) catchUp(sel *selection) {
	msgs, err := e.msgs.ListMessages(sel.ctx, sel.id)
	e.loop.Post(func() { e.onCatchUp(sel, msgs, err) })
}

func (e *Engine) onCatchUp(sel *selection, msgs []model.Message, err error) {
	if !e.isCurrent(sel) {
		e.dropStale(sel, "catch-up")
		return
	}
	if err != nil {
		if errs.IsAuth(err) {
			e.fail(sel, err)
			return
		}
		e.logger.Warn("catch-up fetch failed", zap.Error(err), zap.Int64("conversation_id", sel.id))
		return
	}
	added, updated := sel.log.Merge(msgs)
	if added+updated > 0 {
		e.logger.Info("caught up after reconnect",
			zap.Int64("conversation_id", sel.id),
			zap.Int("added", added),
			zap.Int("updated", updated))
		e.publishLog(sel)
	}
}
