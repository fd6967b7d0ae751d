package dto

import "time"

type MessageParticipant struct {
	Id          int64  `json:"id" validate:"required"`
	DisplayName string `json:"display_name"`
}

// MessageRequest is a chat message as sent by the chat service. Exactly one
// of ChannelId and Recipient is set.
type MessageRequest struct {
	Id             int64               `json:"id" validate:"required"`
	Content        string              `json:"content"`
	CreatedAt      time.Time           `json:"created_at" validate:"required"`
	ThreadParentId *int64              `json:"thread_parent_id,omitempty"`
	ChannelId      *int64              `json:"channel_id,omitempty" validate:"required_without=Recipient,excluded_with=Recipient"`
	Author         MessageParticipant  `json:"author"`
	Recipient      *MessageParticipant `json:"recipient,omitempty" validate:"required_without=ChannelId"`
}
