package events

import "context"

// Publisher delivers an event body to a broker topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// EventLog records events whose publication failed so they can be replayed.
type EventLog interface {
	StoreEventForReplay(ctx context.Context, evt Event) error
	GetUnreplayedEvents(ctx context.Context, limit int64) ([]StoredEvent, error)
	MarkEventAsReplaying(ctx context.Context, eventID string) error
	MarkEventAsCompleted(ctx context.Context, eventID string) error
	MarkEventAsFailed(ctx context.Context, eventID string) error
}
