package sync

import (
	"slices"

	"github.com/matheus3301/freechat/internal/model"
)

// Log is a conversation's message list in arrival order with at most one
// entry per message id.
type Log struct {
	msgs  []model.Message
	index map[int64]int
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{index: make(map[int64]int)}
}

// Replace discards the log and loads a snapshot. Repeated ids in the
// snapshot keep their first position.
func (l *Log) Replace(msgs []model.Message) {
	l.msgs = make([]model.Message, 0, len(msgs))
	l.index = make(map[int64]int, len(msgs))
	for _, m := range msgs {
		l.Append(m)
	}
}

// Append adds m at the end unless its id is already recorded.
// Reports whether the log changed.
func (l *Log) Append(m model.Message) bool {
	if _, ok := l.index[m.ID]; ok {
		return false
	}
	l.index[m.ID] = len(l.msgs)
	l.msgs = append(l.msgs, m)
	return true
}

// Merge appends the unseen messages of a later snapshot in its order and
// carries read flags over to messages already present.
func (l *Log) Merge(msgs []model.Message) (added, updated int) {
	for _, m := range msgs {
		if i, ok := l.index[m.ID]; ok {
			if m.IsRead && !l.msgs[i].IsRead {
				l.msgs[i].IsRead = true
				updated++
			}
			continue
		}
		l.Append(m)
		added++
	}
	return added, updated
}

// MarkRead flips the read flag in place for the given ids and returns how
// many entries changed. Ids not in the log are ignored.
func (l *Log) MarkRead(ids []int64) int {
	changed := 0
	for _, id := range ids {
		i, ok := l.index[id]
		if !ok || l.msgs[i].IsRead {
			continue
		}
		l.msgs[i].IsRead = true
		changed++
	}
	return changed
}

// Contains reports whether a message id is recorded.
func (l *Log) Contains(id int64) bool {
	_, ok := l.index[id]
	return ok
}

// Len returns the number of messages.
func (l *Log) Len() int { return len(l.msgs) }

// Messages returns a copy of the log.
func (l *Log) Messages() []model.Message {
	return slices.Clone(l.msgs)
}
