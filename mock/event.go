package mock

import (
	"context"
	"encoding/json"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.EventService = (*EventService)(nil)

// EventService is a mock implementation of matrixctl.EventService.
type EventService struct {
	SendEventFn    func(ctx context.Context, roomID string, eventType matrixctl.MessageType, content json.RawMessage) (string, error)
	RedactFn       func(ctx context.Context, roomID, eventID, reason string) (string, error)
	EventContextFn func(ctx context.Context, roomID, eventID string, limit int) (*matrixctl.EventContext, error)
}

func (s *EventService) SendEvent(ctx context.Context, roomID string, eventType matrixctl.MessageType, content json.RawMessage) (string, error) {
	return s.SendEventFn(ctx, roomID, eventType, content)
}

func (s *EventService) Redact(ctx context.Context, roomID, eventID, reason string) (string, error) {
	return s.RedactFn(ctx, roomID, eventID, reason)
}

func (s *EventService) EventContext(ctx context.Context, roomID, eventID string, limit int) (*matrixctl.EventContext, error) {
	return s.EventContextFn(ctx, roomID, eventID, limit)
}

var _ matrixctl.EventStore = (*EventStore)(nil)

// EventStore is a mock implementation of matrixctl.EventStore.
type EventStore struct {
	FindEventByIDFn func(ctx context.Context, eventID string) (json.RawMessage, error)
	FindEventsFn    func(ctx context.Context, filter matrixctl.EventFilter) ([]json.RawMessage, error)
}

func (s *EventStore) FindEventByID(ctx context.Context, eventID string) (json.RawMessage, error) {
	return s.FindEventByIDFn(ctx, eventID)
}

func (s *EventStore) FindEvents(ctx context.Context, filter matrixctl.EventFilter) ([]json.RawMessage, error) {
	return s.FindEventsFn(ctx, filter)
}
