package synapse

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

// Ensure ServerService implements matrixctl.ServerService at compile time.
var _ matrixctl.ServerService = (*ServerService)(nil)

// ServerService implements matrixctl.ServerService.
type ServerService struct {
	client *Client
}

// NewServerService creates a new ServerService.
func NewServerService(client *Client) *ServerService {
	return &ServerService{client: client}
}

// Version returns the homeserver build information.
func (s *ServerService) Version(ctx context.Context) (*matrixctl.ServerVersion, error) {
	req, err := s.client.Request(ctx, AdminV1+"/server_version")
	if err != nil {
		return nil, err
	}
	var v matrixctl.ServerVersion
	if err := s.client.Do(ctx, req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
