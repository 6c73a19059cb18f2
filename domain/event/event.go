// Package event defines the envelopes exchanged with clients over a connection.
package event

import (
	"chat-room/domain"
)

type Type string

const (
	TypeInit            Type = "init"
	TypeHistoryMessages Type = "history_messages"
	TypeMessage         Type = "message"
	TypeUserJoin        Type = "user_join"
	TypeUserLeave       Type = "user_leave"
	TypeOnlineCount     Type = "online_count"
)

// CloseIdentityRejected is the close code sent when the supplied identity token is unknown.
// Clients receiving it must drop their stored identity before reconnecting.
const CloseIdentityRejected = 4001

// IdentityQueryParam carries the optional identity token on the upgrade request.
const IdentityQueryParam = "participantId"

// Envelope is a typed, serializable event sent over a connection.
type Envelope interface {
	EnvelopeType() Type
}

// ChatMessage is a stored message annotated with its sender.
type ChatMessage struct {
	Message domain.Message `json:"message"`
	Sender  domain.Sender  `json:"sender"`
}

type Init struct {
	Type        Type               `json:"type"`
	Participant domain.Participant `json:"participant"`
}

func NewInit(p domain.Participant) Init {
	return Init{Type: TypeInit, Participant: p}
}

func (e Init) EnvelopeType() Type { return e.Type }

type HistoryMessages struct {
	Type     Type          `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

func NewHistoryMessages(messages []ChatMessage) HistoryMessages {
	if messages == nil {
		messages = []ChatMessage{}
	}
	return HistoryMessages{Type: TypeHistoryMessages, Messages: messages}
}

func (e HistoryMessages) EnvelopeType() Type { return e.Type }

type MessagePosted struct {
	Type Type `json:"type"`
	ChatMessage
}

func NewMessagePosted(message domain.Message, sender domain.Sender) MessagePosted {
	return MessagePosted{Type: TypeMessage, ChatMessage: ChatMessage{Message: message, Sender: sender}}
}

func (e MessagePosted) EnvelopeType() Type { return e.Type }

type Presence struct {
	Type        Type               `json:"type"`
	Participant domain.Participant `json:"participant"`
}

func NewUserJoin(p domain.Participant) Presence {
	return Presence{Type: TypeUserJoin, Participant: p}
}

func NewUserLeave(p domain.Participant) Presence {
	return Presence{Type: TypeUserLeave, Participant: p}
}

func (e Presence) EnvelopeType() Type { return e.Type }

type OnlineCount struct {
	Type  Type `json:"type"`
	Count int  `json:"count"`
}

func NewOnlineCount(count int) OnlineCount {
	return OnlineCount{Type: TypeOnlineCount, Count: count}
}

func (e OnlineCount) EnvelopeType() Type { return e.Type }
