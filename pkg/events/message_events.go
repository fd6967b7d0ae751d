package events

import (
	"encoding/json"
	"fmt"
)

// MessageCreated is emitted by the chat service after a message is persisted.
const MessageCreated = "message.created"

// NewMessageCreated wraps a message payload, usually a dto.MessageRequest.
func NewMessageCreated(message any) (BaseEvent, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return BaseEvent{}, fmt.Errorf("marshal message: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return BaseEvent{}, fmt.Errorf("message payload is not an object: %w", err)
	}
	return NewEvent(MessageCreated, data), nil
}

// Decode converts an event payload into out.
func Decode(e Event, out any) error {
	raw, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType(), err)
	}
	return nil
}
