package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.TokenSource = (*TokenSource)(nil)

// TokenSource is a mock implementation of matrixctl.TokenSource.
type TokenSource struct {
	AccessTokenFn func(ctx context.Context) (string, error)
}

func (s *TokenSource) AccessToken(ctx context.Context) (string, error) {
	return s.AccessTokenFn(ctx)
}

var _ matrixctl.TokenCache = (*TokenCache)(nil)

// TokenCache is a mock implementation of matrixctl.TokenCache.
type TokenCache struct {
	LoadFn func(tag string) (*matrixctl.Token, error)
	SaveFn func(tag string, token *matrixctl.Token) error
}

func (c *TokenCache) Load(tag string) (*matrixctl.Token, error) {
	return c.LoadFn(tag)
}

func (c *TokenCache) Save(tag string, token *matrixctl.Token) error {
	return c.SaveFn(tag, token)
}
