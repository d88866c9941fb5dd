package model

import "encoding/json"

// UnnamedConversation is the label shown for conversations without a name.
const UnnamedConversation = "Unnamed Chat"

// Conversation is a chat the current user participates in.
type Conversation struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt Timestamp `json:"created_at"`
}

// DisplayName returns the conversation name or the unnamed fallback label.
func (c Conversation) DisplayName() string {
	if c.Name == nil || *c.Name == "" {
		return UnnamedConversation
	}
	return *c.Name
}

// HasName reports whether the conversation carries a non-empty name.
func (c Conversation) HasName() bool {
	return c.Name != nil && *c.Name != ""
}

// User is a directory entry returned by user search and /auth/me.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment is the metadata of an uploaded file as stored by the backend.
type Attachment struct {
	URL      string `json:"file_url"`
	Name     string `json:"file_name"`
	MIMEType string `json:"file_type"`
}

// FileRef points at a local file selected for upload.
type FileRef struct {
	Path     string
	Name     string
	MIMEType string
}

// Message is one entry of a conversation log.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Content        string
	IsRead         bool
	Timestamp      Timestamp
	Attachment     *Attachment
}

// OutgoingMessage is a create-message request built by the composer.
type OutgoingMessage struct {
	ConversationID int64
	Content        string
	Attachment     *Attachment
	ClientID       string
}

// messageJSON is the flat wire shape of a message.
type messageJSON struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	Timestamp      Timestamp `json:"timestamp"`
	FileURL        *string   `json:"file_url,omitempty"`
	FileName       *string   `json:"file_name,omitempty"`
	FileType       *string   `json:"file_type,omitempty"`
}

// UnmarshalJSON decodes the flat wire shape, folding the file_* fields into
// Attachment. A message without a file_url has no attachment.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		SenderID:       w.SenderID,
		Content:        w.Content,
		IsRead:         w.IsRead,
		Timestamp:      w.Timestamp,
		Attachment:     attachmentFrom(w.FileURL, w.FileName, w.FileType),
	}
	return nil
}

// MarshalJSON encodes m in the flat wire shape read by UnmarshalJSON.
func (m Message) MarshalJSON() ([]byte, error) {
	w := messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		Timestamp:      m.Timestamp,
	}
	if a := m.Attachment; a != nil {
		w.FileURL, w.FileName, w.FileType = &a.URL, &a.Name, &a.MIMEType
	}
	return json.Marshal(w)
}

func attachmentFrom(url, name, mime *string) *Attachment {
	if url == nil || *url == "" {
		return nil
	}
	a := &Attachment{URL: *url}
	if name != nil {
		a.Name = *name
	}
	if mime != nil {
		a.MIMEType = *mime
	}
	return a
}
