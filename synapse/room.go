package synapse

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/matrixctl"
)

// Ensure RoomService implements matrixctl.RoomService at compile time.
var _ matrixctl.RoomService = (*RoomService)(nil)

// RoomService implements matrixctl.RoomService.
type RoomService struct {
	client *Client
}

// NewRoomService creates a new RoomService.
func NewRoomService(client *Client) *RoomService {
	return &RoomService{client: client}
}

// FindRooms lists rooms through GET /_synapse/admin/v1/rooms.
func (s *RoomService) FindRooms(ctx context.Context, filter matrixctl.RoomFilter) ([]*matrixctl.Room, int, error) {
	req, err := s.client.Request(ctx, AdminV1+"/rooms")
	if err != nil {
		return nil, 0, err
	}
	if filter.SearchTerm != "" {
		req = req.WithParam("search_term", filter.SearchTerm)
	}
	if filter.OrderBy != "" {
		req = req.WithParam("order_by", filter.OrderBy)
	}
	if filter.Reverse {
		req = req.WithParam("dir", "b")
	}

	items, total, err := CollectPages(ctx, s.client.Fanout, req, "rooms", filter.Limit, filter.From, s.client.Logger)
	if items == nil {
		return nil, total, err
	}
	rooms, decodeErr := decodeItems[matrixctl.Room](items)
	if decodeErr != nil {
		return nil, total, decodeErr
	}
	return rooms, total, err
}

// LargestRooms returns the database size statistics of rooms.
func (s *RoomService) LargestRooms(ctx context.Context) ([]*matrixctl.RoomSize, error) {
	req, err := s.client.Request(ctx, AdminV1+"/statistics/database/rooms")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Rooms []*matrixctl.RoomSize `json:"rooms"`
	}
	if err := s.client.Do(ctx, req.WithTimeout(30*time.Second), &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// DeleteRoom schedules DELETE /_synapse/admin/v2/rooms/<room_id> and polls
// the deletion status until the job completes or fails.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string, opts matrixctl.DeleteRoomOptions, status matrixctl.StatusFunc) error {
	req, err := s.client.Request(ctx, AdminV2+"/rooms/"+roomID)
	if err != nil {
		return err
	}
	body := map[string]any{
		"block": opts.Block,
		"purge": !opts.NoPurge,
	}
	if opts.NewRoomUserID != "" {
		body["new_room_user_id"] = opts.NewRoomUserID
	}
	if opts.RoomName != "" {
		body["room_name"] = opts.RoomName
	}
	if opts.Message != "" {
		body["message"] = opts.Message
	}

	var scheduled struct {
		DeleteID string `json:"delete_id"`
	}
	req = req.WithMethod(http.MethodDelete).WithTimeout(60 * time.Second).WithJSON(body)
	if err := s.client.Do(ctx, req, &scheduled); err != nil {
		return err
	}
	if scheduled.DeleteID == "" {
		return matrixctl.Errorf(matrixctl.ESERVER, "room deletion of %s returned no delete_id", roomID)
	}

	return s.client.poll(ctx, "room deletion", func(ctx context.Context) (matrixctl.JobStatus, error) {
		var st matrixctl.JobStatus
		req, err := s.client.Request(ctx, AdminV2+"/rooms/delete_status/"+scheduled.DeleteID)
		if err != nil {
			return st, err
		}
		err = s.client.Do(ctx, req, &st)
		return st, err
	}, status)
}

// JoinRoom force-joins a local user and returns the joined room id.
func (s *RoomService) JoinRoom(ctx context.Context, roomIDOrAlias, userID string) (string, error) {
	req, err := s.client.Request(ctx, AdminV1+"/join/"+roomIDOrAlias)
	if err != nil {
		return "", err
	}
	var resp struct {
		RoomID string `json:"room_id"`
	}
	req = req.WithMethod(http.MethodPost).WithJSON(map[string]any{"user_id": userID})
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

// MakeRoomAdmin grants a local user the highest power level in a room.
func (s *RoomService) MakeRoomAdmin(ctx context.Context, roomIDOrAlias, userID string) error {
	req, err := s.client.Request(ctx, AdminV1+"/rooms/"+roomIDOrAlias+"/make_room_admin")
	if err != nil {
		return err
	}
	req = req.WithMethod(http.MethodPost).WithJSON(map[string]any{"user_id": userID})
	return s.client.Do(ctx, req, nil)
}

// PurgeHistory starts a history purge and polls it until it completes.
func (s *RoomService) PurgeHistory(ctx context.Context, roomID string, opts matrixctl.PurgeHistoryOptions, status matrixctl.StatusFunc) error {
	path := AdminV1 + "/purge_history/" + roomID
	body := map[string]any{"delete_local_events": opts.DeleteLocalEvents}
	switch {
	case opts.EventID != "":
		path += "/" + opts.EventID
	case !opts.Before.IsZero():
		body["purge_up_to_ts"] = opts.Before.UnixMilli()
	default:
		return matrixctl.Errorf(matrixctl.EINVALID, "a purge needs an event id or a timestamp")
	}

	req, err := s.client.Request(ctx, path)
	if err != nil {
		return err
	}
	var started struct {
		PurgeID string `json:"purge_id"`
	}
	req = req.WithMethod(http.MethodPost).WithTimeout(60 * time.Second).WithJSON(body)
	if err := s.client.Do(ctx, req, &started); err != nil {
		return err
	}

	return s.client.poll(ctx, "history purge", func(ctx context.Context) (matrixctl.JobStatus, error) {
		var st matrixctl.JobStatus
		req, err := s.client.Request(ctx, AdminV1+"/purge_history_status/"+started.PurgeID)
		if err != nil {
			return st, err
		}
		err = s.client.Do(ctx, req, &st)
		return st, err
	}, status)
}
