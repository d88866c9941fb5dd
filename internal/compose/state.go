package compose

import "github.com/matheus3301/freechat/internal/status"

// Composition states of a conversation's draft.
const (
	Empty     status.State = "EMPTY"
	Drafting  status.State = "DRAFTING"
	Uploading status.State = "UPLOADING"
	Sending   status.State = "SENDING"
	Sent      status.State = "SENT"
	Failed    status.State = "FAILED"
)

var transitions = status.Table{
	Empty:     {Drafting},
	Drafting:  {Empty, Uploading, Sending},
	Uploading: {Sending, Failed},
	Sending:   {Sent, Failed},
	Sent:      {Empty},
	Failed:    {Drafting},
}
