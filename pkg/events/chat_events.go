package events

import "time"

const (
	TypeChatCompleted = "completed"

	occurredAtKey = "occurred_at"
)

// ChatCompleted summarises one streamed reply. Failed is true when the
// stream ended with an error or the client went away.
type ChatCompleted struct {
	RequestID     string
	DocsRetrieved int
	Chunks        int
	Bytes         int
	Duration      time.Duration
	Failed        bool
	Error         string
	OccurredAt    time.Time
}

func (e ChatCompleted) EventType() string {
	return TypeChatCompleted
}

func (e ChatCompleted) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"request_id":     e.RequestID,
		"docs_retrieved": e.DocsRetrieved,
		"chunks":         e.Chunks,
		"bytes":          e.Bytes,
		"duration_ms":    e.Duration.Milliseconds(),
		"failed":         e.Failed,
		occurredAtKey:    e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	if e.Error != "" {
		p["error"] = e.Error
	}
	return p
}

func (e ChatCompleted) Timestamp() time.Time {
	return e.OccurredAt
}

// FromPayload rebuilds a generic event from a decoded payload, restoring the
// timestamp written by Payload when present.
func FromPayload(eventType string, data map[string]interface{}) BaseEvent {
	occurred := time.Now()
	if raw, ok := data[occurredAtKey].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurred = t
		}
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: occurred}
}
