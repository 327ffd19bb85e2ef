package synapse

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fwojciec/matrixctl"
	mzerolog "github.com/fwojciec/matrixctl/zerolog"
	"github.com/rs/zerolog"
)

// CollectPages fetches up to limit items of a paginated admin list,
// starting at offset from. A zero limit fetches everything.
//
// A single-item probe learns the total first. The limit is clipped to what
// the server has, and the remaining pages are requested concurrently on a
// plan aligned to the server page size. Items come back in server order.
// When some pages fail, the items of the successful pages are returned
// together with the *matrixctl.FanoutError.
//
// Lists that report no total are walked sequentially along next_token
// until the cursor disappears or limit items arrived; the returned total is
// then the number of items read.
func CollectPages(ctx context.Context, fanout matrixctl.FanoutDoer, base matrixctl.Request, key string, limit, from int, logger zerolog.Logger) ([]json.RawMessage, int, error) {
	first, err := fetchPage(ctx, fanout, base, key, from, 1)
	if err != nil {
		return nil, 0, err
	}
	if !first.HasTotal {
		items, err := followCursor(ctx, fanout, base, key, first, from, limit)
		return items, len(items), err
	}

	total := first.Total
	available := total - from
	if limit <= 0 || limit > available {
		limit = available
	}
	if limit <= 0 {
		return []json.RawMessage{}, total, nil
	}

	plan, err := matrixctl.NewPlan(limit, max(base.ConcurrentLimit, 1))
	if err != nil {
		return nil, total, err
	}
	plan = plan.Aligned(matrixctl.MaxPageSize)
	mzerolog.LogPlan(logger, key, plan)

	cursors := plan.Cursors(from)
	reqs := make([]matrixctl.Request, len(cursors))
	for i, cursor := range cursors {
		reqs[i] = base.WithParam("from", cursor).WithParam("limit", plan.StepSize)
	}

	resps, fanErr := fanout.DoAll(ctx, reqs, plan.ConcurrentLimit)
	if fanErr != nil {
		var ferr *matrixctl.FanoutError
		if !errors.As(fanErr, &ferr) {
			return nil, total, fanErr
		}
	}

	items := make([]json.RawMessage, 0, limit)
	for _, resp := range resps {
		if resp == nil {
			continue
		}
		page, err := matrixctl.DecodePage(resp.Body, key)
		if err != nil {
			return nil, total, err
		}
		items = append(items, page.Items...)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, total, fanErr
}

// followCursor reads the pages after first one at a time, starting at each
// page's next_token.
func followCursor(ctx context.Context, fanout matrixctl.FanoutDoer, base matrixctl.Request, key string, first *matrixctl.Page, from, limit int) ([]json.RawMessage, error) {
	items := append([]json.RawMessage{}, first.Items...)
	next, cursor := first.NextToken, from
	for next != nil && (limit <= 0 || len(items) < limit) {
		if *next <= cursor {
			return items, matrixctl.Errorf(matrixctl.ESERVER, "%s cursor did not advance past %d", key, cursor)
		}
		cursor = *next

		size := matrixctl.MaxPageSize
		if limit > 0 {
			size = min(size, limit-len(items))
		}
		page, err := fetchPage(ctx, fanout, base, key, cursor, size)
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		next = page.NextToken
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// fetchPage requests a single page.
func fetchPage(ctx context.Context, fanout matrixctl.FanoutDoer, base matrixctl.Request, key string, from, limit int) (*matrixctl.Page, error) {
	resps, err := fanout.DoAll(ctx, []matrixctl.Request{
		base.WithParam("from", from).WithParam("limit", limit),
	}, 1)
	if err != nil {
		var ferr *matrixctl.FanoutError
		if errors.As(err, &ferr) && len(ferr.Errors) == 1 {
			return nil, ferr.Errors[0].Err
		}
		return nil, err
	}
	return matrixctl.DecodePage(resps[0].Body, key)
}
