package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/fwojciec/matrixctl"
)

// DefaultEventLimit caps FindEvents when the filter has no limit.
const DefaultEventLimit = 100

// Compile-time interface verification.
var _ matrixctl.EventStore = (*EventStore)(nil)

// EventStore implements matrixctl.EventStore using the Synapse schema.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new EventStore.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// FindEventByID returns the stored JSON of one event.
func (s *EventStore) FindEventByID(ctx context.Context, eventID string) (json.RawMessage, error) {
	var data string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT json FROM event_json WHERE event_id = $1`, eventID).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, matrixctl.Errorf(matrixctl.ENOTFOUND, "event %s not found", eventID)
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// FindEvents returns the events matching filter ordered by stream
// ordering.
func (s *EventStore) FindEvents(ctx context.Context, filter matrixctl.EventFilter) ([]json.RawMessage, error) {
	if filter.Sender == "" {
		return nil, matrixctl.Errorf(matrixctl.EINVALID, "a sender is required")
	}
	query, args := eventsQuery(filter)

	events := []json.RawMessage{}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				return err
			}
			events = append(events, json.RawMessage(data))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// eventsQuery builds the parameterized query for filter.
func eventsQuery(filter matrixctl.EventFilter) (string, []any) {
	var query strings.Builder
	query.WriteString(`SELECT ej.json FROM events e JOIN event_json ej ON ej.event_id = e.event_id WHERE e.sender = $1`)
	args := []any{filter.Sender}

	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		query.WriteString(" AND e.room_id = $" + strconv.Itoa(len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query.WriteString(" AND e.type = $" + strconv.Itoa(len(args)))
	}
	query.WriteString(" ORDER BY e.stream_ordering ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	args = append(args, limit)
	query.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	return query.String(), args
}
