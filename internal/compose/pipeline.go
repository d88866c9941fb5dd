// Package compose turns a draft (text plus an optional attachment) into a
// sent message: upload, then create-message, at most one in flight per
// conversation.
package compose

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/metrics"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/status"
	"go.uber.org/zap"
)

// Uploader stores a local file on the backend.
type Uploader interface {
	UploadAttachment(ctx context.Context, file model.FileRef) (model.Attachment, error)
}

// MessageSender creates a message on the backend.
type MessageSender interface {
	SendMessage(ctx context.Context, msg model.OutgoingMessage) (model.Message, error)
}

// Reconciler receives the authoritative message after a successful send.
type Reconciler interface {
	Reconcile(msg model.Message)
}

// Draft is a read-only view of a conversation's draft.
type Draft struct {
	Text string
	File *model.FileRef
}

// SendResult is the payload of bus.ComposeSent.
type SendResult struct {
	ClientID string
	Message  model.Message
}

// SendFailure is the payload of bus.ComposeFailed.
type SendFailure struct {
	ConversationID int64
	ClientID       string
	Stage          status.State
	Err            error
}

type draft struct {
	conversationID int64
	text           string
	file           *model.FileRef
	machine        *status.Machine
	clientID       string
	err            error
}

// Pipeline owns the drafts of every conversation. Methods must run on the event loop.
type Pipeline struct {
	loop        loop.Poster
	uploader    Uploader
	sender      MessageSender
	sink        Reconciler
	bus         *bus.Bus
	metrics     *metrics.Metrics
	logger      *zap.Logger
	placeholder string

	ctx    context.Context
	cancel context.CancelFunc
	drafts map[int64]*draft
}

// DefaultPlaceholder is sent with an attachment-only draft when no
// placeholder is configured.
const DefaultPlaceholder = "File sent"

// New creates a pipeline. placeholder is the text sent with an attachment
// when the draft text is empty; a blank placeholder means DefaultPlaceholder.
func New(l loop.Poster, uploader Uploader, sender MessageSender, sink Reconciler, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, placeholder string) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if placeholder = strings.TrimSpace(placeholder); placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		loop:        l,
		uploader:    uploader,
		sender:      sender,
		sink:        sink,
		bus:         b,
		metrics:     metrics.OrNew(m),
		logger:      logger,
		placeholder: placeholder,
		ctx:         ctx,
		cancel:      cancel,
		drafts:      make(map[int64]*draft),
	}
}

func (p *Pipeline) get(conversationID int64) *draft {
	d, ok := p.drafts[conversationID]
	if !ok {
		d = &draft{
			conversationID: conversationID,
			machine:        status.NewMachine(p.bus, bus.ComposeStateChanged, conversationID, Empty, transitions),
		}
		p.drafts[conversationID] = d
	}
	return d
}

func (p *Pipeline) transition(d *draft, to status.State) {
	if err := d.machine.Transition(to); err != nil {
		p.logger.Error("compose state", zap.Error(err), zap.Int64("conversation_id", d.conversationID))
	}
}

func busy(d *draft) bool {
	return d.machine.Is(Uploading, Sending, Sent)
}

// settle moves an idle draft between Empty and Drafting to match its content.
func (p *Pipeline) settle(d *draft) {
	hasContent := d.text != "" || d.file != nil
	switch {
	case hasContent && d.machine.Is(Empty):
		p.transition(d, Drafting)
	case !hasContent && d.machine.Is(Drafting):
		p.transition(d, Empty)
	}
}

// SetText replaces the draft text.
func (p *Pipeline) SetText(conversationID int64, text string) error {
	d := p.get(conversationID)
	if busy(d) {
		return errs.ErrBusy
	}
	d.text = text
	p.settle(d)
	return nil
}

// Attach sets the draft attachment, replacing any previous one.
func (p *Pipeline) Attach(conversationID int64, file model.FileRef) error {
	d := p.get(conversationID)
	if busy(d) {
		return errs.ErrBusy
	}
	if file.Name == "" {
		file.Name = filepath.Base(file.Path)
	}
	d.file = &file
	p.settle(d)
	return nil
}

// Detach removes the draft attachment.
func (p *Pipeline) Detach(conversationID int64) error {
	d := p.get(conversationID)
	if busy(d) {
		return errs.ErrBusy
	}
	d.file = nil
	p.settle(d)
	return nil
}

// Cancel discards the draft text and attachment.
func (p *Pipeline) Cancel(conversationID int64) error {
	d := p.get(conversationID)
	if busy(d) {
		return errs.ErrBusy
	}
	d.text, d.file, d.err = "", nil, nil
	p.settle(d)
	return nil
}

// Send starts sending the draft. It returns ErrValidation, without any
// call, when there is neither text nor attachment, and ErrBusy while a send
// for the conversation is already in flight.
func (p *Pipeline) Send(conversationID int64) error {
	d := p.get(conversationID)
	if busy(d) {
		return errs.ErrBusy
	}
	text := strings.TrimSpace(d.text)
	if text == "" && d.file == nil {
		return errs.ErrValidation
	}

	d.err = nil
	d.clientID = uuid.NewString()
	j := job{conversationID: conversationID, clientID: d.clientID, text: text}
	logger := p.logger.With(zap.Int64("conversation_id", conversationID), zap.String("client_msg_id", j.clientID))

	if d.file != nil {
		file := *d.file
		p.transition(d, Uploading)
		logger.Info("uploading attachment", zap.String("file", file.Name))
		go p.upload(d, j, file)
		return nil
	}
	p.transition(d, Sending)
	go p.send(d, j)
	return nil
}

type job struct {
	conversationID int64
	clientID       string
	text           string
	attachment     *model.Attachment
}

func (p *Pipeline) upload(d *draft, j job, file model.FileRef) {
	att, err := p.uploader.UploadAttachment(p.ctx, file)
	p.loop.Post(func() { p.onUploaded(d, j, att, err) })
}

func (p *Pipeline) onUploaded(d *draft, j job, att model.Attachment, err error) {
	if p.ctx.Err() != nil || d.clientID != j.clientID {
		return
	}
	if err != nil {
		p.metrics.Uploads.WithLabelValues("error").Inc()
		p.abort(d, j, Uploading, fmt.Errorf("upload attachment: %w", err))
		return
	}
	p.metrics.Uploads.WithLabelValues("ok").Inc()
	j.attachment = &att
	p.transition(d, Sending)
	go p.send(d, j)
}

func (p *Pipeline) send(d *draft, j job) {
	content := j.text
	if content == "" && j.attachment != nil {
		content = p.placeholder
	}
	msg, err := p.sender.SendMessage(p.ctx, model.OutgoingMessage{
		ConversationID: j.conversationID,
		Content:        content,
		Attachment:     j.attachment,
		ClientID:       j.clientID,
	})
	p.loop.Post(func() { p.onSent(d, j, msg, err) })
}

func (p *Pipeline) onSent(d *draft, j job, msg model.Message, err error) {
	if p.ctx.Err() != nil || d.clientID != j.clientID {
		return
	}
	if err != nil {
		p.metrics.Sends.WithLabelValues("error").Inc()
		p.abort(d, j, Sending, fmt.Errorf("send message: %w", err))
		return
	}
	p.metrics.Sends.WithLabelValues("ok").Inc()

	if msg.ConversationID == 0 {
		msg.ConversationID = j.conversationID
	}
	p.transition(d, Sent)
	d.text, d.file, d.clientID = "", nil, ""
	p.transition(d, Empty)

	p.logger.Info("message sent",
		zap.Int64("conversation_id", j.conversationID),
		zap.String("client_msg_id", j.clientID),
		zap.Int64("message_id", msg.ID))
	p.bus.Emit(bus.ComposeSent, SendResult{ClientID: j.clientID, Message: msg})
	if p.sink != nil {
		p.sink.Reconcile(msg)
	}
}

// abort returns the draft to Drafting with its text and attachment intact.
func (p *Pipeline) abort(d *draft, j job, stage status.State, err error) {
	d.err = err
	d.clientID = ""
	p.transition(d, Failed)
	p.transition(d, Drafting)
	p.logger.Error("failed to send message", zap.Error(err),
		zap.Int64("conversation_id", j.conversationID),
		zap.String("client_msg_id", j.clientID),
		zap.String("stage", string(stage)))
	p.bus.Emit(bus.ComposeFailed, SendFailure{
		ConversationID: j.conversationID,
		ClientID:       j.clientID,
		Stage:          stage,
		Err:            err,
	})
}

// Close abandons in-flight work; later completions are ignored.
func (p *Pipeline) Close() {
	p.cancel()
}

// Draft returns the draft of a conversation.
func (p *Pipeline) Draft(conversationID int64) Draft {
	d, ok := p.drafts[conversationID]
	if !ok {
		return Draft{}
	}
	out := Draft{Text: d.text}
	if d.file != nil {
		f := *d.file
		out.File = &f
	}
	return out
}

// State returns the composition state of a conversation.
func (p *Pipeline) State(conversationID int64) status.State {
	if d, ok := p.drafts[conversationID]; ok {
		return d.machine.Current()
	}
	return Empty
}

// CanSend reports whether Send would start a send.
func (p *Pipeline) CanSend(conversationID int64) bool {
	d, ok := p.drafts[conversationID]
	if !ok || busy(d) {
		return false
	}
	return strings.TrimSpace(d.text) != "" || d.file != nil
}

// Err returns the failure of the last send attempt of a conversation.
func (p *Pipeline) Err(conversationID int64) error {
	if d, ok := p.drafts[conversationID]; ok {
		return d.err
	}
	return nil
}
