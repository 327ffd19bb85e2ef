package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.RoomService = (*RoomService)(nil)

// RoomService is a mock implementation of matrixctl.RoomService.
type RoomService struct {
	FindRoomsFn     func(ctx context.Context, filter matrixctl.RoomFilter) ([]*matrixctl.Room, int, error)
	LargestRoomsFn  func(ctx context.Context) ([]*matrixctl.RoomSize, error)
	DeleteRoomFn    func(ctx context.Context, roomID string, opts matrixctl.DeleteRoomOptions, status matrixctl.StatusFunc) error
	JoinRoomFn      func(ctx context.Context, roomIDOrAlias, userID string) (string, error)
	MakeRoomAdminFn func(ctx context.Context, roomIDOrAlias, userID string) error
	PurgeHistoryFn  func(ctx context.Context, roomID string, opts matrixctl.PurgeHistoryOptions, status matrixctl.StatusFunc) error
}

func (s *RoomService) FindRooms(ctx context.Context, filter matrixctl.RoomFilter) ([]*matrixctl.Room, int, error) {
	return s.FindRoomsFn(ctx, filter)
}

func (s *RoomService) LargestRooms(ctx context.Context) ([]*matrixctl.RoomSize, error) {
	return s.LargestRoomsFn(ctx)
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID string, opts matrixctl.DeleteRoomOptions, status matrixctl.StatusFunc) error {
	return s.DeleteRoomFn(ctx, roomID, opts, status)
}

func (s *RoomService) JoinRoom(ctx context.Context, roomIDOrAlias, userID string) (string, error) {
	return s.JoinRoomFn(ctx, roomIDOrAlias, userID)
}

func (s *RoomService) MakeRoomAdmin(ctx context.Context, roomIDOrAlias, userID string) error {
	return s.MakeRoomAdminFn(ctx, roomIDOrAlias, userID)
}

func (s *RoomService) PurgeHistory(ctx context.Context, roomID string, opts matrixctl.PurgeHistoryOptions, status matrixctl.StatusFunc) error {
	return s.PurgeHistoryFn(ctx, roomID, opts, status)
}
