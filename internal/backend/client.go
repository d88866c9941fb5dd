// Package backend is the REST client for the chat backend.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/model"
	"go.uber.org/zap"
)

// ClientMsgIDHeader carries the composer's idempotency key on create-message calls.
const ClientMsgIDHeader = "X-Client-Msg-Id"

// Client performs single-attempt calls against the REST API using the
// bearer credential from the provider. A 401 invalidates the credential.
type Client struct {
	http   *resty.Client
	creds  credential.Provider
	logger *zap.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// apiError is the error body returned by the backend.
type apiError struct {
	Detail any `json:"detail"`
}

// New creates a backend client.
func New(opts Options, creds credential.Provider, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := resty.New().
		SetBaseURL(opts.BaseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		r.SetTimeout(opts.Timeout)
	}
	return &Client{http: r, creds: creds, logger: logger}
}

// request starts an authenticated request. It fails fast with ErrAuth when
// no credential is available, without touching the network.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, ok := c.creds.Token()
	if !ok {
		return nil, errs.ErrAuth
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&apiError{}), nil
}

// check maps a resty result onto the error taxonomy.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &errs.NetworkError{Op: op, Err: err}
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized:
		c.logger.Warn("credential rejected", zap.String("op", op))
		c.creds.Invalidate()
		return fmt.Errorf("%s: %w", op, errs.ErrAuth)
	case code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, errs.ErrForbidden)
	case resp.IsError():
		detail := http.StatusText(code)
		if e, ok := resp.Error().(*apiError); ok && e.Detail != nil {
			detail = fmt.Sprint(e.Detail)
		}
		return &errs.NetworkError{Op: op, Status: code, Err: fmt.Errorf("%s", detail)}
	}
	return nil
}

// Me returns the user the credential belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var out model.User
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.SetResult(&out).Get("/auth/me")
	return out, c.check("get current user", resp, err)
}

// ListConversations returns every conversation the user participates in.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var out []model.Conversation
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetResult(&out).Get("/api/chat/conversations")
	if err := c.check("list conversations", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

type createConversationRequest struct {
	Name           string  `json:"name"`
	IsGroup        bool    `json:"is_group"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// CreateConversation creates a conversation with the given participants.
func (c *Client) CreateConversation(ctx context.Context, name string, isGroup bool, participantIDs []int64) (model.Conversation, error) {
	var out model.Conversation
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.
		SetBody(createConversationRequest{Name: name, IsGroup: isGroup, ParticipantIDs: participantIDs}).
		SetResult(&out).
		Post("/api/chat/conversations")
	return out, c.check("create conversation", resp, err)
}

// ListMessages returns the snapshot of a conversation's messages in server order.
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	var out []model.Message
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetPathParam("id", strconv.FormatInt(conversationID, 10)).
		SetResult(&out).
		Get("/api/chat/conversations/{id}/messages")
	if err := c.check("list messages", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

type sendMessageRequest struct {
	ConversationID int64   `json:"conversation_id"`
	Content        string  `json:"content"`
	FileURL        *string `json:"file_url,omitempty"`
	FileName       *string `json:"file_name,omitempty"`
	FileType       *string `json:"file_type,omitempty"`
}

// SendMessage creates a message and returns the authoritative record.
func (c *Client) SendMessage(ctx context.Context, msg model.OutgoingMessage) (model.Message, error) {
	var out model.Message
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	body := sendMessageRequest{ConversationID: msg.ConversationID, Content: msg.Content}
	if a := msg.Attachment; a != nil {
		body.FileURL, body.FileName, body.FileType = &a.URL, &a.Name, &a.MIMEType
	}
	if msg.ClientID != "" {
		req.SetHeader(ClientMsgIDHeader, msg.ClientID)
	}
	resp, err := req.SetBody(body).SetResult(&out).Post("/api/chat/messages")
	return out, c.check("send message", resp, err)
}

// UploadAttachment uploads a local file and returns its stored metadata.
func (c *Client) UploadAttachment(ctx context.Context, file model.FileRef) (model.Attachment, error) {
	var out model.Attachment
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.
		SetFile("file", file.Path).
		SetResult(&out).
		Post("/api/files/upload")
	if err := c.check("upload attachment", resp, err); err != nil {
		return out, err
	}
	if out.Name == "" {
		out.Name = file.Name
	}
	if out.MIMEType == "" {
		out.MIMEType = file.MIMEType
	}
	return out, nil
}

// SearchUsers looks up users by name or email fragment.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	var out []model.User
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetQueryParam("query", query).
		SetResult(&out).
		Get("/api/chat/users/search")
	if err := c.check("search users", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}
