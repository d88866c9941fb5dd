package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *credential.Memory) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	creds := credential.NewMemory("secret")
	return New(Options{BaseURL: srv.URL}, creds, nil), creds
}

func TestListConversationsSendsBearer(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/conversations", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"name":"Ops","is_group":true,"created_by":5,"created_at":"2024-05-01T10:00:00"},
			{"id":2,"name":null,"is_group":false,"created_by":5,"created_at":"2024-05-02T10:00:00"}]`)
	}))

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	require.Equal(t, "Ops", convs[0].DisplayName())
	require.Nil(t, convs[1].Name)
	require.Equal(t, 2024, convs[1].CreatedAt.Year())
}

func TestListMessagesPath(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/conversations/42/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"conversation_id":42,"sender_id":3,"content":"hi","is_read":false,"timestamp":"2024-05-01T10:00:00"}]`)
	}))

	msgs, err := c.ListMessages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, int64(42), msgs[0].ConversationID)
}

func TestSendMessageBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "client-1", r.Header.Get(ClientMsgIDHeader))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(9), body["conversation_id"])
		require.Equal(t, "File sent", body["content"])
		require.Equal(t, "/uploads/a.png", body["file_url"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":77,"conversation_id":9,"sender_id":1,"content":"File sent","is_read":false,
			"timestamp":"2024-05-01T10:00:00","file_url":"/uploads/a.png","file_name":"a.png","file_type":"image/png"}`)
	}))

	msg, err := c.SendMessage(context.Background(), model.OutgoingMessage{
		ConversationID: 9,
		Content:        "File sent",
		Attachment:     &model.Attachment{URL: "/uploads/a.png", Name: "a.png", MIMEType: "image/png"},
		ClientID:       "client-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(77), msg.ID)
	require.NotNil(t, msg.Attachment)
}

func TestSendTextOnlyOmitsFileFields(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasFile := body["file_url"]
		require.False(t, hasFile)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1,"conversation_id":9,"content":"hi"}`)
	}))

	_, err := c.SendMessage(context.Background(), model.OutgoingMessage{ConversationID: 9, Content: "hi"})
	require.NoError(t, err)
}

func TestUploadAttachmentMultipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/files/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "payload", string(data))
		require.Equal(t, "note.txt", hdr.Filename)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"file_url":"/uploads/x_note.txt","file_name":"note.txt","file_type":"text/plain"}`)
	}))

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0600))

	att, err := c.UploadAttachment(context.Background(), model.FileRef{Path: path, Name: "note.txt"})
	require.NoError(t, err)
	require.Equal(t, "/uploads/x_note.txt", att.URL)
	require.Equal(t, "text/plain", att.MIMEType)
}

func TestSearchUsersQuery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ali ce", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":3,"name":"Alice","email":"alice@example.com"}]`)
	}))

	users, err := c.SearchUsers(context.Background(), "ali ce")
	require.NoError(t, err)
	require.Equal(t, []model.User{{ID: 3, Name: "Alice", Email: "alice@example.com"}}, users)
}

func TestCreateConversationBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body createConversationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, createConversationRequest{Name: "Alice", ParticipantIDs: []int64{3}}, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":12,"name":"Alice","is_group":false,"created_by":1,"created_at":"2024-05-01T10:00:00"}`)
	}))

	conv, err := c.CreateConversation(context.Background(), "Alice", false, []int64{3})
	require.NoError(t, err)
	require.Equal(t, int64(12), conv.ID)
}

func TestUnauthorizedInvalidatesCredential(t *testing.T) {
	c, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}))
	invalidated := false
	creds.OnInvalidated(func() { invalidated = true })

	_, err := c.ListConversations(context.Background())
	require.True(t, errs.IsAuth(err), "err = %v", err)
	require.True(t, invalidated)
}

func TestMissingCredentialMakesNoCall(t *testing.T) {
	var hits atomic.Int32
	c, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	creds.Set("")

	_, err := c.SearchUsers(context.Background(), "al")
	require.ErrorIs(t, err, errs.ErrAuth)
	require.Zero(t, hits.Load())
}

func TestServerErrorIsTransient(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"database unavailable"}`)
	}))

	_, err := c.ListMessages(context.Background(), 1)
	require.True(t, errs.IsTransient(err))
	var ne *errs.NetworkError
	require.True(t, errors.As(err, &ne))
	require.Equal(t, http.StatusInternalServerError, ne.Status)
	require.Contains(t, ne.Error(), "database unavailable")
}

func TestForbidden(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.ListMessages(context.Background(), 1)
	require.ErrorIs(t, err, errs.ErrForbidden)
}
