package runtime

import (
	"chat-room/contract"
	"chat-room/domain"
)

// Command is processed by the room actor one at a time, in arrival order.
type Command interface {
	respond(result Result)
}

// Result is the reply of the room to a single command.
type Result struct {
	Participant domain.Participant
	Message     domain.Message
	Err         error
}

type ConnectCommand struct {
	Conn        contract.Connection
	CandidateID string
	reply       chan Result
}

func (c ConnectCommand) respond(result Result) { c.reply <- result }

type PostCommand struct {
	Conn  contract.Connection
	Draft domain.Draft
	reply chan Result
}

func (c PostCommand) respond(result Result) { c.reply <- result }

type DisconnectCommand struct {
	Conn  contract.Connection
	reply chan Result
}

func (c DisconnectCommand) respond(result Result) { c.reply <- result }

// newReply is buffered so the room never blocks on a caller that gave up.
func newReply() chan Result { return make(chan Result, 1) }
