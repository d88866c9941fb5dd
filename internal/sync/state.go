package sync

import "github.com/matheus3301/freechat/internal/status"

// Sync states of the selected conversation.
const (
	Idle         status.State = "IDLE"
	Loading      status.State = "LOADING"
	Live         status.State = "LIVE"
	Reconnecting status.State = "RECONNECTING"
	Failed       status.State = "FAILED"
	Closed       status.State = "CLOSED"
)

// transitions defines allowed sync state transitions. Loading may go to
// Reconnecting when the snapshot succeeded but the first dial did not.
var transitions = status.Table{
	Idle:         {Loading, Closed},
	Loading:      {Live, Reconnecting, Failed, Closed},
	Live:         {Reconnecting, Failed, Closed},
	Reconnecting: {Live, Failed, Closed},
	Failed:       {Closed},
}
