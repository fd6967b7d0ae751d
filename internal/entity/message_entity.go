package entity

import (
	"fmt"
	"time"
)

// Participant is a user taking part in a conversation.
type Participant struct {
	Id          int64
	DisplayName string
}

// MessageTarget is where a message was sent. It is a closed set:
// ChannelTarget or DirectTarget.
type MessageTarget interface {
	isMessageTarget()
}

// ChannelTarget is a message posted to a channel.
type ChannelTarget struct {
	ChannelId int64
	Author    Participant
}

// DirectTarget is a message sent from one user to another.
type DirectTarget struct {
	From Participant
	To   Participant
}

func (ChannelTarget) isMessageTarget() {}
func (DirectTarget) isMessageTarget()  {}

// Message is a chat message owned by the external message store.
type Message struct {
	Id             int64
	Content        string
	CreatedAt      time.Time
	ThreadParentId *int64
	Target         MessageTarget
}

// Sender returns the effective author of the message.
func (m *Message) Sender() (Participant, error) {
	switch t := m.Target.(type) {
	case ChannelTarget:
		return t.Author, nil
	case DirectTarget:
		return t.From, nil
	default:
		return Participant{}, fmt.Errorf("message %d has unknown target %T", m.Id, m.Target)
	}
}

// IsDirect reports whether the message belongs to a direct conversation.
func (m *Message) IsDirect() bool {
	_, ok := m.Target.(DirectTarget)
	return ok
}
