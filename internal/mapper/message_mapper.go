package mapper

import (
	"fmt"

	"avatar-engine-be/internal/dto"
	"avatar-engine-be/internal/entity"
	"avatar-engine-be/internal/model"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

// ToEntity resolves the row into its channel or direct variant. A row with
// neither a channel nor a recipient is rejected.
func (m *MessageMapper) ToEntity(r *model.Message) (*entity.Message, error) {
	if r == nil {
		return nil, nil
	}

	msg := &entity.Message{
		Id:             r.Id,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
		ThreadParentId: r.ThreadParentId,
	}
	author := entity.Participant{Id: r.AuthorId, DisplayName: r.AuthorName}

	switch {
	case r.ChannelId != nil:
		msg.Target = entity.ChannelTarget{ChannelId: *r.ChannelId, Author: author}
	case r.RecipientId != nil:
		msg.Target = entity.DirectTarget{
			From: author,
			To:   entity.Participant{Id: *r.RecipientId, DisplayName: r.RecipientName},
		}
	default:
		return nil, fmt.Errorf("message %d has neither channel nor recipient", r.Id)
	}
	return msg, nil
}

// FromRequest converts an API or event payload into a message.
func (m *MessageMapper) FromRequest(r *dto.MessageRequest) (*entity.Message, error) {
	msg := &entity.Message{
		Id:             r.Id,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
		ThreadParentId: r.ThreadParentId,
	}
	author := entity.Participant{Id: r.Author.Id, DisplayName: r.Author.DisplayName}

	switch {
	case r.ChannelId != nil && r.Recipient != nil:
		return nil, fmt.Errorf("message %d has both channel and recipient", r.Id)
	case r.ChannelId != nil:
		msg.Target = entity.ChannelTarget{ChannelId: *r.ChannelId, Author: author}
	case r.Recipient != nil:
		msg.Target = entity.DirectTarget{
			From: author,
			To:   entity.Participant{Id: r.Recipient.Id, DisplayName: r.Recipient.DisplayName},
		}
	default:
		return nil, fmt.Errorf("message %d has neither channel nor recipient", r.Id)
	}
	return msg, nil
}

func (m *MessageMapper) FromRequests(rs []dto.MessageRequest) ([]*entity.Message, error) {
	msgs := make([]*entity.Message, len(rs))
	for i := range rs {
		msg, err := m.FromRequest(&rs[i])
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// ToRequest is the inverse of FromRequest.
func (m *MessageMapper) ToRequest(msg *entity.Message) (*dto.MessageRequest, error) {
	r := &dto.MessageRequest{
		Id:             msg.Id,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		ThreadParentId: msg.ThreadParentId,
	}

	switch t := msg.Target.(type) {
	case entity.ChannelTarget:
		channelId := t.ChannelId
		r.ChannelId = &channelId
		r.Author = dto.MessageParticipant{Id: t.Author.Id, DisplayName: t.Author.DisplayName}
	case entity.DirectTarget:
		r.Author = dto.MessageParticipant{Id: t.From.Id, DisplayName: t.From.DisplayName}
		r.Recipient = &dto.MessageParticipant{Id: t.To.Id, DisplayName: t.To.DisplayName}
	default:
		return nil, fmt.Errorf("message %d has unknown target %T", msg.Id, msg.Target)
	}
	return r, nil
}
