package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.Doer = (*Doer)(nil)

// Doer is a mock implementation of matrixctl.Doer.
type Doer struct {
	DoFn func(ctx context.Context, req matrixctl.Request) (*matrixctl.Response, error)
}

func (d *Doer) Do(ctx context.Context, req matrixctl.Request) (*matrixctl.Response, error) {
	return d.DoFn(ctx, req)
}

var _ matrixctl.FanoutDoer = (*FanoutDoer)(nil)

// FanoutDoer is a mock implementation of matrixctl.FanoutDoer.
type FanoutDoer struct {
	DoAllFn func(ctx context.Context, reqs []matrixctl.Request, workers int) ([]*matrixctl.Response, error)
}

func (f *FanoutDoer) DoAll(ctx context.Context, reqs []matrixctl.Request, workers int) ([]*matrixctl.Response, error) {
	return f.DoAllFn(ctx, reqs, workers)
}
