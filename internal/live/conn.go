// Package live opens the per-conversation push channel.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/errs"
	"go.uber.org/zap"
)

const eventBufSize = 64

// Subscription is one open live channel bound to a conversation.
type Subscription interface {
	// Events yields decoded events and is closed when the channel ends.
	Events() <-chan Event
	// Err reports why the channel ended. Valid after Events is closed.
	Err() error
	// Close ends the channel. Safe to call more than once.
	Close() error
}

// Dialer opens live channels at /ws/chat/{id}.
type Dialer struct {
	baseURL   string
	creds     credential.Provider
	readLimit int64
	logger    *zap.Logger
}

// NewDialer creates a dialer for the websocket base URL (ws:// or wss://).
func NewDialer(baseURL string, readLimit int64, creds credential.Provider, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		creds:     creds,
		readLimit: readLimit,
		logger:    logger,
	}
}

// Dial opens the live channel of a conversation. ctx bounds the handshake only.
func (d *Dialer) Dial(ctx context.Context, conversationID int64) (Subscription, error) {
	token, ok := d.creds.Token()
	if !ok {
		return nil, errs.ErrAuth
	}
	u := fmt.Sprintf("%s/ws/chat/%d?token=%s", d.baseURL, conversationID, url.QueryEscape(token))

	ws, resp, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				d.creds.Invalidate()
				return nil, fmt.Errorf("dial live channel: %w", errs.ErrAuth)
			case http.StatusForbidden:
				return nil, fmt.Errorf("dial live channel: %w", errs.ErrForbidden)
			}
		}
		return nil, &errs.NetworkError{Op: "dial live channel", Err: err}
	}
	if d.readLimit > 0 {
		ws.SetReadLimit(d.readLimit)
	}

	c := &conn{
		ws:             ws,
		conversationID: conversationID,
		events:         make(chan Event, eventBufSize),
		creds:          d.creds,
		logger:         d.logger.With(zap.Int64("conversation_id", conversationID)),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.readLoop()
	d.logger.Debug("live channel open", zap.Int64("conversation_id", conversationID))
	return c, nil
}

type conn struct {
	ws             *websocket.Conn
	conversationID int64
	events         chan Event
	creds          credential.Provider
	logger         *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func (c *conn) Events() <-chan Event { return c.events }

func (c *conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		go func() { _ = c.ws.Close(websocket.StatusNormalClosure, "") }()
	})
	return nil
}

func (c *conn) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			c.setErr(c.classify(err))
			return
		}
		// Malformed frames are skipped rather than closing the channel.
		ev, err := Decode(data, c.conversationID)
		if err != nil {
			c.logger.Warn("dropping malformed live frame", zap.Error(err))
			continue
		}
		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			c.setErr(errs.ErrChannelClosed)
			return
		}
	}
}

// classify maps a read error onto the error taxonomy. Close code 1008 is the
// backend rejecting the token, 1003 is a non-participant.
func (c *conn) classify(err error) error {
	if c.ctx.Err() != nil {
		return errs.ErrChannelClosed
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusPolicyViolation:
		c.creds.Invalidate()
		return fmt.Errorf("live channel: %w", errs.ErrAuth)
	case websocket.StatusUnsupportedData:
		return fmt.Errorf("live channel: %w", errs.ErrForbidden)
	}
	if errors.Is(err, context.Canceled) {
		return errs.ErrChannelClosed
	}
	return fmt.Errorf("%w: %v", errs.ErrChannelClosed, err)
}

func (c *conn) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}
