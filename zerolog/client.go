package zerolog

import (
	"context"
	"time"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
)

// Ensure LoggingClient implements matrixctl.Doer.
var _ matrixctl.Doer = (*LoggingClient)(nil)

// LoggingClient wraps a Doer with debug logging. Requests are logged
// through Request.String, which never includes the bearer token.
type LoggingClient struct {
	next   matrixctl.Doer
	logger zerolog.Logger
}

// NewLoggingClient creates a new LoggingClient.
func NewLoggingClient(next matrixctl.Doer, logger zerolog.Logger) *LoggingClient {
	return &LoggingClient{next: next, logger: logger}
}

// Do delegates to the wrapped client and logs the exchange.
func (c *LoggingClient) Do(ctx context.Context, req matrixctl.Request) (resp *matrixctl.Response, err error) {
	defer func(begin time.Time) {
		ev := c.logger.Debug()
		if err != nil {
			ev = c.logger.Warn().Err(err)
		}
		if resp != nil {
			ev = ev.Int("status", resp.StatusCode).Int("bytes", len(resp.Body))
		}
		ev.Stringer("request", req).Dur("duration", time.Since(begin)).Msg("request")
	}(time.Now())
	return c.next.Do(ctx, req)
}

// CloseIdleConnections closes the idle connections of the wrapped client,
// if it keeps any.
func (c *LoggingClient) CloseIdleConnections() {
	if cl, ok := c.next.(interface{ CloseIdleConnections() }); ok {
		cl.CloseIdleConnections()
	}
}

// Ensure LoggingFanout implements matrixctl.FanoutDoer.
var _ matrixctl.FanoutDoer = (*LoggingFanout)(nil)

// LoggingFanout wraps a FanoutDoer with debug logging of the fan-out layout.
type LoggingFanout struct {
	next   matrixctl.FanoutDoer
	logger zerolog.Logger
}

// NewLoggingFanout creates a new LoggingFanout.
func NewLoggingFanout(next matrixctl.FanoutDoer, logger zerolog.Logger) *LoggingFanout {
	return &LoggingFanout{next: next, logger: logger}
}

// DoAll delegates to the wrapped executor and logs the batch.
func (f *LoggingFanout) DoAll(ctx context.Context, reqs []matrixctl.Request, workers int) (resps []*matrixctl.Response, err error) {
	f.logger.Debug().Int("requests", len(reqs)).Int("workers", workers).Msg("fan-out start")
	defer func(begin time.Time) {
		ev := f.logger.Debug()
		if err != nil {
			ev = f.logger.Warn().Err(err)
		}
		ev.Int("requests", len(reqs)).
			Int("workers", workers).
			Dur("duration", time.Since(begin)).
			Msg("fan-out done")
	}(time.Now())
	return f.next.DoAll(ctx, reqs, workers)
}

// LogPlan logs a request plan at debug level.
func LogPlan(logger zerolog.Logger, what string, plan matrixctl.Plan) {
	logger.Debug().
		Str("list", what).
		Int("limit", plan.Limit).
		Int("step_size", plan.StepSize).
		Int("workers", plan.ConcurrentLimit).
		Int("iterations", plan.Iterations).
		Int("offset", plan.Offset).
		Msg("request plan")
}
