package bus

import (
	"strings"
	"time"
)

// Event is one notification published by an engine component.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Namespace returns the component prefix of a kind, e.g. "sync" for
// "sync.log_updated".
func Namespace(kind string) string {
	ns, _, _ := strings.Cut(kind, ".")
	return ns
}

// Event kinds published by the engine.
const (
	DirectoryUpdated    = "directory.updated"
	DirectoryLoadFailed = "directory.load_failed"

	SearchResults = "search.results"
	SearchFailed  = "search.failed"

	SyncStateChanged = "sync.state_changed"
	SyncLogUpdated   = "sync.log_updated"
	SyncFailed       = "sync.failed"

	LiveNotice = "live.notice"

	ComposeStateChanged = "compose.state_changed"
	ComposeSent         = "compose.sent"
	ComposeFailed       = "compose.failed"

	SessionHalted = "session.halted"
)
