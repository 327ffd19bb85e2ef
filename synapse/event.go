package synapse

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fwojciec/matrixctl"
)

// Ensure EventService implements matrixctl.EventService at compile time.
var _ matrixctl.EventService = (*EventService)(nil)

// EventService implements matrixctl.EventService.
type EventService struct {
	client *Client
}

// NewEventService creates a new EventService.
func NewEventService(client *Client) *EventService {
	return &EventService{client: client}
}

// SendEvent sends content into a room. State event types are sent as state
// with an empty state key; the others as timeline events with a fresh
// transaction id.
func (s *EventService) SendEvent(ctx context.Context, roomID string, eventType matrixctl.MessageType, content json.RawMessage) (string, error) {
	path := ClientV3 + "/rooms/" + roomID + "/send/" + string(eventType) + "/" + s.client.NewTxnID()
	if eventType.IsState() {
		path = ClientV3 + "/rooms/" + roomID + "/state/" + string(eventType) + "/"
	}

	req, err := s.client.Request(ctx, path)
	if err != nil {
		return "", err
	}
	var resp struct {
		EventID string `json:"event_id"`
	}
	req = req.WithMethod(http.MethodPut).WithJSON(content)
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.EventID, nil
}

// Redact redacts an event.
func (s *EventService) Redact(ctx context.Context, roomID, eventID, reason string) (string, error) {
	req, err := s.client.Request(ctx, ClientV3+"/rooms/"+roomID+"/redact/"+eventID+"/"+s.client.NewTxnID())
	if err != nil {
		return "", err
	}
	body := map[string]any{}
	if reason != "" {
		body["reason"] = reason
	}
	var resp struct {
		EventID string `json:"event_id"`
	}
	req = req.WithMethod(http.MethodPut).WithJSON(body)
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.EventID, nil
}

// EventContext returns an event and its surroundings.
func (s *EventService) EventContext(ctx context.Context, roomID, eventID string, limit int) (*matrixctl.EventContext, error) {
	req, err := s.client.Request(ctx, AdminV1+"/rooms/"+roomID+"/context/"+eventID)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		req = req.WithParam("limit", limit)
	}
	var out matrixctl.EventContext
	if err := s.client.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
