package matrixctl

import (
	"context"
	"time"
)

// Room is an entry of the admin room list.
type Room struct {
	RoomID             string  `json:"room_id"`
	Name               *string `json:"name"`
	CanonicalAlias     *string `json:"canonical_alias"`
	JoinedMembers      int     `json:"joined_members"`
	JoinedLocalMembers int     `json:"joined_local_members"`
	Version            string  `json:"version"`
	Creator            string  `json:"creator"`
	Encryption         *string `json:"encryption"`
	Federatable        Bool    `json:"federatable"`
	Public             Bool    `json:"public"`
	JoinRules          *string `json:"join_rules"`
	GuestAccess        *string `json:"guest_access"`
	HistoryVisibility  *string `json:"history_visibility"`
	StateEvents        int     `json:"state_events"`
	RoomType           *string `json:"room_type"`
}

// RoomSize is a room with its estimated database footprint.
type RoomSize struct {
	RoomID        string `json:"room_id"`
	EstimatedSize int64  `json:"estimated_size"`
}

// RoomFilter selects rooms for FindRooms.
type RoomFilter struct {
	// Limit is the number of rooms to return. Zero returns all rooms.
	Limit int
	From  int

	// SearchTerm filters on room name, alias, and id.
	SearchTerm string
	// OrderBy is one of the Synapse sort keys ("name", "joined_members", ...).
	OrderBy string
	Reverse bool
}

// DeleteRoomOptions configures DeleteRoom.
type DeleteRoomOptions struct {
	// NewRoomUserID creates a replacement room owned by this user and
	// moves local members into it.
	NewRoomUserID string
	RoomName      string
	Message       string
	Block         bool
	// NoPurge keeps the room's history in the database.
	NoPurge bool
}

// Status values of the asynchronous room deletion and history purge jobs.
const (
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusShutdown  = "shutting_down"
	StatusPurging   = "purging"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// JobStatus reports the progress of a background admin job.
type JobStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// StatusFunc is called every time a polled job reports a status.
type StatusFunc func(status JobStatus)

// PurgeHistoryOptions configures PurgeHistory. Either EventID or Before
// bounds the purge.
type PurgeHistoryOptions struct {
	EventID           string
	Before            time.Time
	DeleteLocalEvents bool
}

// RoomService administers rooms.
type RoomService interface {
	// FindRooms lists rooms, fetching pages concurrently. It also returns
	// the server-side total.
	FindRooms(ctx context.Context, filter RoomFilter) ([]*Room, int, error)

	// LargestRooms returns rooms ordered by estimated database size.
	LargestRooms(ctx context.Context) ([]*RoomSize, error)

	// DeleteRoom schedules the deletion of a room and blocks until the job
	// completes. Returns an error when the job fails.
	DeleteRoom(ctx context.Context, roomID string, opts DeleteRoomOptions, status StatusFunc) error

	// JoinRoom force-joins a local user into a room.
	JoinRoom(ctx context.Context, roomIDOrAlias, userID string) (string, error)

	// MakeRoomAdmin grants a local user the highest power level in a room.
	MakeRoomAdmin(ctx context.Context, roomIDOrAlias, userID string) error

	// PurgeHistory removes old events from a room and blocks until the
	// purge completes.
	PurgeHistory(ctx context.Context, roomID string, opts PurgeHistoryOptions, status StatusFunc) error
}
