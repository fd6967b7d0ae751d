package events

import "time"

// Event is anything published on the events.> subjects. The payload is the
// JSON object carried on the wire; the type selects the subject.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the in-process form of an event. Subscribers rebuild it from
// the subject and message body; OccurredAt then comes from the stream.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string { return e.Type }

func (e BaseEvent) Timestamp() time.Time { return e.OccurredAt }

func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
