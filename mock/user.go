package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.UserService = (*UserService)(nil)

// UserService is a mock implementation of matrixctl.UserService.
type UserService struct {
	FindUsersFn      func(ctx context.Context, filter matrixctl.UserFilter) ([]*matrixctl.User, int, error)
	FindUserByIDFn   func(ctx context.Context, userID string) (*matrixctl.UserDetail, error)
	CreateUserFn     func(ctx context.Context, userID, password string, admin bool) error
	DeactivateUserFn func(ctx context.Context, userID string, erase bool) error
	SetAdminFn       func(ctx context.Context, userID string, admin bool) error
	IsAdminFn        func(ctx context.Context, userID string) (bool, error)
}

func (s *UserService) FindUsers(ctx context.Context, filter matrixctl.UserFilter) ([]*matrixctl.User, int, error) {
	return s.FindUsersFn(ctx, filter)
}

func (s *UserService) FindUserByID(ctx context.Context, userID string) (*matrixctl.UserDetail, error) {
	return s.FindUserByIDFn(ctx, userID)
}

func (s *UserService) CreateUser(ctx context.Context, userID, password string, admin bool) error {
	return s.CreateUserFn(ctx, userID, password, admin)
}

func (s *UserService) DeactivateUser(ctx context.Context, userID string, erase bool) error {
	return s.DeactivateUserFn(ctx, userID, erase)
}

func (s *UserService) SetAdmin(ctx context.Context, userID string, admin bool) error {
	return s.SetAdminFn(ctx, userID, admin)
}

func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.IsAdminFn(ctx, userID)
}
