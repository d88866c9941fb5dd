package tui

import (
	"testing"

	"github.com/matheus3301/freechat/internal/model"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/stretchr/testify/require"
)

func TestUnreadCountsOnlyPeerMessages(t *testing.T) {
	entries := []readstate.Entry{
		{Message: model.Message{ID: 1, IsRead: false}, Own: true, Mark: readstate.Sent},
		{Message: model.Message{ID: 2, IsRead: false}},
		{Message: model.Message{ID: 3, IsRead: true}},
		{Message: model.Message{ID: 4, IsRead: false}},
	}
	require.Equal(t, 2, unread(entries))
	require.Zero(t, unread(nil))
}
