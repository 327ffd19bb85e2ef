package synapse_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/fwojciec/matrixctl/synapse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventService_SendEvent(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		eventType matrixctl.MessageType
		wantPath  string
	}{
		{"message", matrixctl.MessageTypeRoomMessage, "/_matrix/client/v3/rooms/!r:example.org/send/m.room.message/txn1"},
		{"state", matrixctl.MessageTypeRoomTopic, "/_matrix/client/v3/rooms/!r:example.org/state/m.room.topic/"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var method, path, body string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				data, _ := io.ReadAll(r.Body)
				body = string(data)
				writeJSON(t, w, http.StatusOK, map[string]any{"event_id": "$e1"})
			}))
			defer srv.Close()

			content := json.RawMessage(`{"body":"hi"}`)
			id, err := synapse.NewEventService(newClient(t, srv)).SendEvent(context.Background(), "!r:example.org", tc.eventType, content)

			require.NoError(t, err)
			assert.Equal(t, "$e1", id)
			assert.Equal(t, http.MethodPut, method)
			assert.Equal(t, tc.wantPath, path)
			assert.JSONEq(t, `{"body":"hi"}`, body)
		})
	}
}

func TestEventService_Redact(t *testing.T) {
	t.Parallel()

	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, http.StatusOK, map[string]any{"event_id": "$red"})
	}))
	defer srv.Close()

	id, err := synapse.NewEventService(newClient(t, srv)).Redact(context.Background(), "!r:example.org", "$e1", "spam")

	require.NoError(t, err)
	assert.Equal(t, "$red", id)
	assert.Equal(t, "/_matrix/client/v3/rooms/!r:example.org/redact/$e1/txn1", path)
	assert.Equal(t, "spam", body["reason"])
}

func TestEventService_EventContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_synapse/admin/v1/rooms/!r:example.org/context/$e1", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"event":         map[string]any{"event_id": "$e1", "type": "m.room.message", "content": map[string]any{"body": "hi"}},
			"events_before": []any{},
			"events_after":  []any{map[string]any{"event_id": "$e2"}},
		})
	}))
	defer srv.Close()

	ec, err := synapse.NewEventService(newClient(t, srv)).EventContext(context.Background(), "!r:example.org", "$e1", 3)

	require.NoError(t, err)
	require.NotNil(t, ec.Event)
	assert.Equal(t, "$e1", ec.Event.EventID)
	require.Len(t, ec.EventsAfter, 1)
	assert.Equal(t, "$e2", ec.EventsAfter[0].EventID)
}
