package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventThreadCreated   EventType = "thread.created"
	EventStreamStarted   EventType = "stream.started"
	EventStreamCompleted EventType = "stream.completed"
	EventStreamFailed    EventType = "stream.failed"
	EventUploadProgress  EventType = "upload.progress"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskFinished    EventType = "task.finished"
	EventSessionChanged  EventType = "session.changed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a JSON-encoded payload. A payload that
// cannot be encoded is dropped; event payloads are plain structs.
func NewEvent(t EventType, threadID string, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now(), ThreadID: threadID}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Payload = data
		}
	}
	return ev
}

// DecodePayload unmarshals the event payload into v.
func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// ThreadCreatedPayload announces a thread that received its first answer.
type ThreadCreatedPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// SessionChangedPayload is published on login and logout.
type SessionChangedPayload struct {
	Username string `json:"username,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// Subscription is the handle returned by EventBus.Subscribe.
// Unsubscribe is idempotent and safe to call from any goroutine.
type Subscription interface {
	Unsubscribe()
}

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) Subscription
	// SubscribeAll registers a handler that receives every event.
	SubscribeAll(handler EventHandler) Subscription
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
