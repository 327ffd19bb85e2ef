package matrixctl

import (
	"context"
	"encoding/json"
)

// Event is a client-format Matrix event.
type Event struct {
	EventID        string          `json:"event_id"`
	RoomID         string          `json:"room_id"`
	Sender         string          `json:"sender"`
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key,omitempty"`
	OriginServerTS int64           `json:"origin_server_ts"`
	Content        json.RawMessage `json:"content"`
}

// MessageContent is the subset of an m.room.message content matrixctl
// renders.
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format"`
	FormattedBody string `json:"formatted_body"`
}

// EventContext is an event with its surrounding timeline.
type EventContext struct {
	Start        string   `json:"start"`
	End          string   `json:"end"`
	EventsBefore []*Event `json:"events_before"`
	Event        *Event   `json:"event"`
	EventsAfter  []*Event `json:"events_after"`
	State        []*Event `json:"state"`
}

// EventService sends and inspects events through the homeserver APIs.
type EventService interface {
	// SendEvent sends an event of the given type into a room and returns
	// the new event identifier.
	SendEvent(ctx context.Context, roomID string, eventType MessageType, content json.RawMessage) (string, error)

	// Redact redacts an event and returns the redaction event identifier.
	Redact(ctx context.Context, roomID, eventID, reason string) (string, error)

	// EventContext returns an event with up to limit events around it.
	EventContext(ctx context.Context, roomID, eventID string, limit int) (*EventContext, error)
}

// EventFilter selects events for EventStore.FindEvents.
type EventFilter struct {
	Sender string
	RoomID string
	Type   MessageType
	Limit  int
}

// EventStore reads events straight from the Synapse database.
type EventStore interface {
	// FindEventByID returns the stored JSON of one event. Returns
	// ENOTFOUND if no event matches.
	FindEventByID(ctx context.Context, eventID string) (json.RawMessage, error)

	// FindEvents returns the stored JSON of the events matching filter,
	// oldest first.
	FindEvents(ctx context.Context, filter EventFilter) ([]json.RawMessage, error)
}
