package compose

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/status"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// mockBackend records upload and send calls. Each call blocks until the
// test releases it through gate, when gate is set.
type mockBackend struct {
	mu        sync.Mutex
	uploads   []model.FileRef
	sends     []model.OutgoingMessage
	uploadErr error
	sendErr   error
	gate      chan struct{}
	nextID    int64
}

func (m *mockBackend) wait() {
	if m.gate != nil {
		<-m.gate
	}
}

func (m *mockBackend) UploadAttachment(_ context.Context, f model.FileRef) (model.Attachment, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, f)
	if m.uploadErr != nil {
		return model.Attachment{}, m.uploadErr
	}
	return model.Attachment{URL: "/uploads/" + f.Name, Name: f.Name, MIMEType: "image/png"}, nil
}

func (m *mockBackend) SendMessage(_ context.Context, out model.OutgoingMessage) (model.Message, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, out)
	if m.sendErr != nil {
		return model.Message{}, m.sendErr
	}
	m.nextID++
	return model.Message{
		ID:             100 + m.nextID,
		ConversationID: out.ConversationID,
		SenderID:       1,
		Content:        out.Content,
		Attachment:     out.Attachment,
	}, nil
}

func (m *mockBackend) counts() (uploads, sends int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads), len(m.sends)
}

type sink struct {
	msgs []model.Message
}

func (s *sink) Reconcile(m model.Message) { s.msgs = append(s.msgs, m) }

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	backend  *mockBackend
	sink     *sink
	pipeline *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := loop.New(nil)
	l.Start(context.Background())
	t.Cleanup(l.Stop)

	h := &harness{t: t, loop: l, backend: &mockBackend{}, sink: &sink{}}
	h.pipeline = New(l, h.backend, h.backend, h.sink, bus.New(), nil, nil, "File sent")
	t.Cleanup(h.pipeline.Close)
	return h
}

func (h *harness) do(fn func(p *Pipeline)) {
	h.t.Helper()
	require.NoError(h.t, h.loop.Do(func() { fn(h.pipeline) }))
}

func (h *harness) state(conv int64) status.State {
	var s status.State
	h.do(func(p *Pipeline) { s = p.State(conv) })
	return s
}

func (h *harness) waitState(conv int64, want status.State) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.state(conv) == want }, waitFor, 5*time.Millisecond,
		"state never reached %s", want)
}

func TestSendText(t *testing.T) {
	h := newHarness(t)
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "  hello  "))
		require.Equal(t, Drafting, p.State(1))
		require.NoError(t, p.Send(1))
		require.Equal(t, Sending, p.State(1))
	})

	h.waitState(1, Empty)

	uploads, sends := h.backend.counts()
	require.Zero(t, uploads)
	require.Equal(t, 1, sends)
	out := h.backend.sends[0]
	require.Equal(t, "hello", out.Content)
	require.Nil(t, out.Attachment)
	_, err := uuid.Parse(out.ClientID)
	require.NoError(t, err, "client id should be a uuid")

	h.do(func(p *Pipeline) {
		require.Equal(t, Draft{}, p.Draft(1))
		require.Len(t, h.sink.msgs, 1)
		require.Equal(t, int64(101), h.sink.msgs[0].ID)
	})
}

// TestAttachmentOnlyUsesPlaceholder sends an attachment with no text: one
// upload, then one send carrying the placeholder and the file metadata.
func TestAttachmentOnlyUsesPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.do(func(p *Pipeline) {
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/cat.png"}))
		require.NoError(t, p.Send(1))
		require.Equal(t, Uploading, p.State(1))
	})

	h.waitState(1, Empty)

	uploads, sends := h.backend.counts()
	require.Equal(t, 1, uploads)
	require.Equal(t, 1, sends)
	require.Equal(t, "cat.png", h.backend.uploads[0].Name)
	out := h.backend.sends[0]
	require.Equal(t, "File sent", out.Content)
	require.NotNil(t, out.Attachment)
	require.Equal(t, "/uploads/cat.png", out.Attachment.URL)
	require.Equal(t, "image/png", out.Attachment.MIMEType)
}

func TestBlankPlaceholderFallsBackToDefault(t *testing.T) {
	h := newHarness(t)
	h.pipeline.Close()
	h.pipeline = New(h.loop, h.backend, h.backend, h.sink, bus.New(), nil, nil, "   ")
	t.Cleanup(h.pipeline.Close)

	h.do(func(p *Pipeline) {
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/cat.png"}))
		require.NoError(t, p.Send(1))
	})
	h.waitState(1, Empty)

	_, sends := h.backend.counts()
	require.Equal(t, 1, sends)
	require.Equal(t, DefaultPlaceholder, h.backend.sends[0].Content)
}

func TestTextWithAttachmentKeepsText(t *testing.T) {
	h := newHarness(t)
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "look"))
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/cat.png"}))
		require.NoError(t, p.Send(1))
	})
	h.waitState(1, Empty)
	require.Equal(t, "look", h.backend.sends[0].Content)
}

// TestUploadFailureAbortsSend verifies an upload failure issues no send and
// keeps the attachment for a retry.
func TestUploadFailureAbortsSend(t *testing.T) {
	h := newHarness(t)
	h.backend.uploadErr = &errs.NetworkError{Op: "upload attachment", Status: 500}
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "caption"))
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/cat.png"}))
		require.NoError(t, p.Send(1))
	})

	require.Eventually(t, func() bool {
		var err error
		h.do(func(p *Pipeline) { err = p.Err(1) })
		return err != nil
	}, waitFor, 5*time.Millisecond)

	_, sends := h.backend.counts()
	require.Zero(t, sends)
	h.do(func(p *Pipeline) {
		require.Equal(t, Drafting, p.State(1))
		d := p.Draft(1)
		require.Equal(t, "caption", d.Text)
		require.NotNil(t, d.File)
		require.Equal(t, "/tmp/cat.png", d.File.Path)
		require.True(t, errs.IsTransient(p.Err(1)))
		require.True(t, p.CanSend(1))
	})

	h.backend.uploadErr = nil
	h.do(func(p *Pipeline) { require.NoError(t, p.Send(1)) })
	h.waitState(1, Empty)
	uploads, sends := h.backend.counts()
	require.Equal(t, 2, uploads)
	require.Equal(t, 1, sends)
}

func TestSendFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.backend.sendErr = errors.New("server exploded")
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "hello"))
		require.NoError(t, p.Send(1))
	})

	require.Eventually(t, func() bool {
		var err error
		h.do(func(p *Pipeline) { err = p.Err(1) })
		return err != nil
	}, waitFor, 5*time.Millisecond)
	h.do(func(p *Pipeline) {
		require.Equal(t, Drafting, p.State(1))
		require.Equal(t, "hello", p.Draft(1).Text)
		require.Empty(t, h.sink.msgs)
	})
}

func TestEmptySendIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.do(func(p *Pipeline) {
		require.ErrorIs(t, p.Send(1), errs.ErrValidation)
		require.NoError(t, p.SetText(1, "   "))
		require.ErrorIs(t, p.Send(1), errs.ErrValidation)
		require.False(t, p.CanSend(1))
	})
	uploads, sends := h.backend.counts()
	require.Zero(t, uploads+sends)
}

func TestOneSendInFlight(t *testing.T) {
	h := newHarness(t)
	h.backend.gate = make(chan struct{})
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "first"))
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/a.png"}))
		require.NoError(t, p.Send(1))

		require.ErrorIs(t, p.Send(1), errs.ErrBusy)
		require.ErrorIs(t, p.SetText(1, "edit"), errs.ErrBusy)
		require.ErrorIs(t, p.Detach(1), errs.ErrBusy)
		require.ErrorIs(t, p.Cancel(1), errs.ErrBusy)
		require.False(t, p.CanSend(1))

		// Other conversations are independent.
		require.NoError(t, p.SetText(2, "elsewhere"))
		require.True(t, p.CanSend(2))
	})

	h.backend.gate <- struct{}{} // upload
	h.waitState(1, Sending)
	h.do(func(p *Pipeline) { require.ErrorIs(t, p.SetText(1, "edit"), errs.ErrBusy) })
	h.backend.gate <- struct{}{} // send
	h.waitState(1, Empty)

	h.do(func(p *Pipeline) { require.Equal(t, "elsewhere", p.Draft(2).Text) })
}

func TestDraftStateFollowsContent(t *testing.T) {
	h := newHarness(t)
	h.do(func(p *Pipeline) {
		require.Equal(t, Empty, p.State(1))
		require.NoError(t, p.Attach(1, model.FileRef{Path: "/tmp/a.png"}))
		require.Equal(t, Drafting, p.State(1))
		require.NoError(t, p.Detach(1))
		require.Equal(t, Empty, p.State(1))
		require.NoError(t, p.SetText(1, "x"))
		require.NoError(t, p.Cancel(1))
		require.Equal(t, Empty, p.State(1))
		require.Equal(t, Draft{}, p.Draft(1))
	})
}

func TestCloseIgnoresLateCompletion(t *testing.T) {
	h := newHarness(t)
	h.backend.gate = make(chan struct{})
	h.do(func(p *Pipeline) {
		require.NoError(t, p.SetText(1, "bye"))
		require.NoError(t, p.Send(1))
		p.Close()
	})
	h.backend.gate <- struct{}{}

	time.Sleep(20 * time.Millisecond)
	h.do(func(p *Pipeline) {
		require.Equal(t, Sending, p.State(1))
		require.Empty(t, h.sink.msgs)
	})
}
