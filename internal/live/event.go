package live

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/freechat/internal/model"
)

// Kind is the tag of a live event.
type Kind string

const (
	// KindMessage is a message authored by another participant.
	KindMessage Kind = "message"
	// KindMessageSent is the backend's echo of a message the current user sent.
	KindMessageSent Kind = "message_sent"
	// KindReadReceipt marks messages as read.
	KindReadReceipt Kind = "read_receipt"
	KindSystem      Kind = "system"
	KindTyping      Kind = "typing"
	KindPresence    Kind = "presence"
	// KindUnknown is any tag this client does not understand.
	KindUnknown Kind = "unknown"
)

// Event is one decoded live-channel payload. Which fields are set depends on Kind.
type Event struct {
	Kind       Kind
	Message    *model.Message // KindMessage, KindMessageSent
	SenderName string         // KindMessage
	MessageIDs []int64        // KindReadReceipt
	Text       string         // KindSystem
	UserID     int64          // KindTyping, KindPresence
	Online     bool           // KindPresence
	Timestamp  time.Time
	Tag        string // raw tag, kept for KindUnknown
}

// frame is the JSON shape of every live payload.
type frame struct {
	Type       string          `json:"type"`
	ID         int64           `json:"id"`
	Content    string          `json:"content"`
	SenderID   *int64          `json:"sender_id"`
	SenderName string          `json:"sender_name"`
	Timestamp  model.Timestamp `json:"timestamp"`
	IsRead     bool            `json:"is_read"`
	FileURL    *string         `json:"file_url"`
	FileName   *string         `json:"file_name"`
	FileType   *string         `json:"file_type"`
	MessageIDs []int64         `json:"message_ids"`
	UserID     int64           `json:"user_id"`
	Online     bool            `json:"online"`
}

// Decode parses one live payload for conversationID.
func Decode(data []byte, conversationID int64) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, err
	}
	ev := Event{Kind: Kind(f.Type), Timestamp: f.Timestamp.Time, Tag: f.Type}

	switch ev.Kind {
	case KindMessage, KindMessageSent:
		msg := &model.Message{
			ID:             f.ID,
			ConversationID: conversationID,
			Content:        f.Content,
			IsRead:         f.IsRead,
			Timestamp:      f.Timestamp,
		}
		if f.SenderID != nil {
			msg.SenderID = *f.SenderID
		}
		if f.FileURL != nil && *f.FileURL != "" {
			msg.Attachment = &model.Attachment{URL: *f.FileURL}
			if f.FileName != nil {
				msg.Attachment.Name = *f.FileName
			}
			if f.FileType != nil {
				msg.Attachment.MIMEType = *f.FileType
			}
		}
		ev.Message = msg
		ev.SenderName = f.SenderName
	case KindReadReceipt:
		ev.MessageIDs = f.MessageIDs
	case KindSystem:
		ev.Text = f.Content
	case KindTyping, KindPresence:
		ev.UserID = f.UserID
		ev.Online = f.Online
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}
