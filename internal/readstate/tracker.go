// Package readstate derives the sent/read marker shown next to messages.
package readstate

import "github.com/matheus3301/freechat/internal/model"

// Mark is the delivery marker of a message.
type Mark int

const (
	// None is used for messages authored by someone else.
	None Mark = iota
	// Sent is an own message the recipient has not read yet.
	Sent
	// Read is an own message the recipient has read.
	Read
)

func (m Mark) String() string {
	switch m {
	case Sent:
		return "sent"
	case Read:
		return "read"
	}
	return ""
}

// Glyph returns the check marks rendered for m.
func (m Mark) Glyph() string {
	switch m {
	case Sent:
		return "✓"
	case Read:
		return "✓✓"
	}
	return ""
}

// Entry is a log message annotated for rendering.
type Entry struct {
	Message model.Message
	Own     bool
	Mark    Mark
}

// Tracker annotates messages relative to the current user. The zero value
// treats every message as someone else's.
type Tracker struct {
	selfID int64
}

// NewTracker creates a tracker for the user with id selfID.
func NewTracker(selfID int64) *Tracker {
	return &Tracker{selfID: selfID}
}

// SetSelf changes the current user.
func (t *Tracker) SetSelf(id int64) { t.selfID = id }

// Self returns the current user id.
func (t *Tracker) Self() int64 { return t.selfID }

// Mark derives the marker of one message. The read flag itself only changes
// through a re-fetch or a read receipt applied to the log.
func (t *Tracker) Mark(m model.Message) Mark {
	if t.selfID == 0 || m.SenderID != t.selfID {
		return None
	}
	if m.IsRead {
		return Read
	}
	return Sent
}

// Annotate returns one entry per message, in log order.
func (t *Tracker) Annotate(log []model.Message) []Entry {
	out := make([]Entry, len(log))
	for i, m := range log {
		out[i] = Entry{
			Message: m,
			Own:     t.selfID != 0 && m.SenderID == t.selfID,
			Mark:    t.Mark(m),
		}
	}
	return out
}

// Unread counts messages from others that are not read yet.
func (t *Tracker) Unread(log []model.Message) int {
	n := 0
	for _, m := range log {
		if m.SenderID != t.selfID && !m.IsRead {
			n++
		}
	}
	return n
}
