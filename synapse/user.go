package synapse

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/matrixctl"
)

// Ensure UserService implements matrixctl.UserService at compile time.
var _ matrixctl.UserService = (*UserService)(nil)

// UserService implements matrixctl.UserService.
type UserService struct {
	client *Client
}

// NewUserService creates a new UserService.
func NewUserService(client *Client) *UserService {
	return &UserService{client: client}
}

// FindUsers lists users through GET /_synapse/admin/v2/users.
func (s *UserService) FindUsers(ctx context.Context, filter matrixctl.UserFilter) ([]*matrixctl.User, int, error) {
	req, err := s.client.Request(ctx, AdminV2+"/users")
	if err != nil {
		return nil, 0, err
	}
	req = req.WithParam("guests", filter.Guests).WithParam("deactivated", filter.Deactivated)
	if filter.Name != "" {
		req = req.WithParam("name", filter.Name)
	}

	items, total, err := CollectPages(ctx, s.client.Fanout, req, "users", filter.Limit, filter.From, s.client.Logger)
	if items == nil {
		return nil, total, err
	}
	users, decodeErr := decodeItems[matrixctl.User](items)
	if decodeErr != nil {
		return nil, total, decodeErr
	}
	return users, total, err
}

// FindUserByID returns one user.
func (s *UserService) FindUserByID(ctx context.Context, userID string) (*matrixctl.UserDetail, error) {
	req, err := s.client.Request(ctx, AdminV2+"/users/"+userID)
	if err != nil {
		return nil, err
	}
	var user matrixctl.UserDetail
	if err := s.client.Do(ctx, req, &user); err != nil {
		if matrixctl.ErrorCode(err) == matrixctl.ENOTFOUND {
			return nil, matrixctl.Errorf(matrixctl.ENOTFOUND, "user %s not found", userID)
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser creates or modifies an account through PUT
// /_synapse/admin/v2/users/<user_id>.
func (s *UserService) CreateUser(ctx context.Context, userID, password string, admin bool) error {
	req, err := s.client.Request(ctx, AdminV2+"/users/"+userID)
	if err != nil {
		return err
	}
	req = req.WithMethod(http.MethodPut).WithJSON(map[string]any{
		"password": password,
		"admin":    admin,
	})
	return s.client.Do(ctx, req, nil)
}

// DeactivateUser deactivates an account.
func (s *UserService) DeactivateUser(ctx context.Context, userID string, erase bool) error {
	req, err := s.client.Request(ctx, AdminV1+"/deactivate/"+userID)
	if err != nil {
		return err
	}
	req = req.WithMethod(http.MethodPost).
		WithTimeout(60 * time.Second).
		WithJSON(map[string]any{"erase": erase})
	return s.client.Do(ctx, req, nil)
}

// SetAdmin grants or revokes server admin rights.
func (s *UserService) SetAdmin(ctx context.Context, userID string, admin bool) error {
	req, err := s.client.Request(ctx, AdminV1+"/users/"+userID+"/admin")
	if err != nil {
		return err
	}
	req = req.WithMethod(http.MethodPut).WithJSON(map[string]any{"admin": admin})
	return s.client.Do(ctx, req, nil)
}

// IsAdmin reports whether the user is a server admin.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	req, err := s.client.Request(ctx, AdminV1+"/users/"+userID+"/admin")
	if err != nil {
		return false, err
	}
	var resp struct {
		Admin matrixctl.Bool `json:"admin"`
	}
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return false, err
	}
	return bool(resp.Admin), nil
}
