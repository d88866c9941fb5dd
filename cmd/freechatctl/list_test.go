package main

import (
	"testing"
	"time"

	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, in := range []string{"", "abc", "0", "-3"} {
		_, err := parseID(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestFormatEntry(t *testing.T) {
	ts := model.Timestamp{Time: time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)}

	tests := []struct {
		name  string
		entry readstate.Entry
		want  string
	}{
		{
			name:  "peer",
			entry: readstate.Entry{Message: model.Message{ID: 7, SenderID: 3, Content: "hi", Timestamp: ts}},
			want:  "[2024-03-09 14:05:00] #7 user 3: hi",
		},
		{
			name:  "own read",
			entry: readstate.Entry{Message: model.Message{ID: 8, SenderID: 1, Content: "yo", Timestamp: ts}, Own: true, Mark: readstate.Read},
			want:  "[2024-03-09 14:05:00] #8 you: yo ✓✓",
		},
		{
			name: "system with file",
			entry: readstate.Entry{Message: model.Message{
				ID: 9, Content: "File sent", Timestamp: ts,
				Attachment: &model.Attachment{Name: "a.png", URL: "/uploads/a.png"},
			}},
			want: "[2024-03-09 14:05:00] #9 system: File sent (file: a.png /uploads/a.png)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEntry(tt.entry))
		})
	}
}
