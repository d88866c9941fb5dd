package readstate

import (
	"testing"

	"github.com/matheus3301/freechat/internal/model"
)

func TestMark(t *testing.T) {
	tr := NewTracker(1)
	tests := []struct {
		name string
		msg  model.Message
		want Mark
	}{
		{"own unread", model.Message{SenderID: 1}, Sent},
		{"own read", model.Message{SenderID: 1, IsRead: true}, Read},
		{"other unread", model.Message{SenderID: 2}, None},
		{"other read", model.Message{SenderID: 2, IsRead: true}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Mark(tt.msg); got != tt.want {
				t.Errorf("Mark() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnknownSelfMarksNothing(t *testing.T) {
	var tr Tracker
	if got := tr.Mark(model.Message{SenderID: 0}); got != None {
		t.Errorf("Mark() with no self = %v, want None", got)
	}
}

func TestLabelsAndGlyphs(t *testing.T) {
	if Sent.String() != "sent" || Read.String() != "read" || None.String() != "" {
		t.Errorf("labels = %q %q %q", Sent, Read, None)
	}
	if Sent.Glyph() != "✓" || Read.Glyph() != "✓✓" || None.Glyph() != "" {
		t.Errorf("glyphs = %q %q %q", Sent.Glyph(), Read.Glyph(), None.Glyph())
	}
}

func TestAnnotateKeepsOrder(t *testing.T) {
	tr := NewTracker(1)
	log := []model.Message{
		{ID: 3, SenderID: 2},
		{ID: 1, SenderID: 1, IsRead: true},
		{ID: 2, SenderID: 1},
	}

	entries := tr.Annotate(log)

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	wantIDs := []int64{3, 1, 2}
	wantMarks := []Mark{None, Read, Sent}
	for i, e := range entries {
		if e.Message.ID != wantIDs[i] || e.Mark != wantMarks[i] {
			t.Errorf("entry %d = (%d, %v), want (%d, %v)", i, e.Message.ID, e.Mark, wantIDs[i], wantMarks[i])
		}
	}
	if entries[0].Own || !entries[1].Own {
		t.Error("Own flags wrong")
	}
}

func TestUnread(t *testing.T) {
	tr := NewTracker(1)
	log := []model.Message{
		{SenderID: 2},
		{SenderID: 2, IsRead: true},
		{SenderID: 1},
		{SenderID: 3},
	}
	if got := tr.Unread(log); got != 2 {
		t.Errorf("Unread() = %d, want 2", got)
	}
}
