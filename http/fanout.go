package http

import (
	"cmp"
	"context"
	"slices"

	"github.com/fwojciec/matrixctl"
	"golang.org/x/sync/errgroup"
)

// Ensure Fanout implements matrixctl.FanoutDoer at compile time.
var _ matrixctl.FanoutDoer = (*Fanout)(nil)

// Fanout runs a batch of requests on a fixed pool of workers sharing one
// client.
type Fanout struct {
	client  matrixctl.Doer
	limiter *HostLimiter
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithRequestsPerSecond throttles request starts per host.
func WithRequestsPerSecond(rps float64) FanoutOption {
	return func(f *Fanout) {
		f.limiter = NewHostLimiter(rps)
	}
}

// NewFanout creates a Fanout sending every request through client.
func NewFanout(client matrixctl.Doer, opts ...FanoutOption) *Fanout {
	f := &Fanout{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type job struct {
	index int
	req   matrixctl.Request
}

type result struct {
	index int
	resp  *matrixctl.Response
	err   error
}

// DoAll sends reqs with exactly min(workers, len(reqs)) goroutines and
// returns the responses in input order. A failed request never stops the
// others; when any failed, the returned *matrixctl.FanoutError lists every
// failure with its index and carries the partial responses.
func (f *Fanout) DoAll(ctx context.Context, reqs []matrixctl.Request, workers int) ([]*matrixctl.Response, error) {
	if len(reqs) == 0 {
		return []*matrixctl.Response{}, nil
	}
	workers = max(1, min(workers, len(reqs)))

	in := make(chan job, len(reqs))
	for i, req := range reqs {
		in <- job{index: i, req: req}
	}
	close(in)

	out := make(chan result, len(reqs))
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range in {
				out <- f.do(ctx, j)
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(out)
		if c, ok := f.client.(interface{ CloseIdleConnections() }); ok {
			c.CloseIdleConnections()
		}
	}()

	resps := make([]*matrixctl.Response, len(reqs))
	var failed []matrixctl.IndexedError
	for r := range out {
		if r.err != nil {
			failed = append(failed, matrixctl.IndexedError{Index: r.index, Err: r.err})
			continue
		}
		resps[r.index] = r.resp
	}

	if len(failed) > 0 {
		slices.SortFunc(failed, func(a, b matrixctl.IndexedError) int {
			return cmp.Compare(a.Index, b.Index)
		})
		return resps, &matrixctl.FanoutError{Errors: failed, Responses: resps}
	}
	return resps, nil
}

func (f *Fanout) do(ctx context.Context, j job) result {
	if err := f.limiter.Wait(ctx, j.req.Domain); err != nil {
		return result{index: j.index, err: err}
	}
	resp, err := f.client.Do(ctx, j.req)
	return result{index: j.index, resp: resp, err: err}
}
