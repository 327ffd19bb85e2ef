package zerolog

import (
	"context"
	"time"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
)

// Ensure LoggingTokenSource implements matrixctl.TokenSource.
var _ matrixctl.TokenSource = (*LoggingTokenSource)(nil)

// LoggingTokenSource wraps a TokenSource and logs how long token
// acquisition took. The token itself is only logged redacted.
type LoggingTokenSource struct {
	next   matrixctl.TokenSource
	logger zerolog.Logger
}

// NewLoggingTokenSource creates a new LoggingTokenSource.
func NewLoggingTokenSource(next matrixctl.TokenSource, logger zerolog.Logger) *LoggingTokenSource {
	return &LoggingTokenSource{next: next, logger: logger}
}

// AccessToken delegates to the wrapped source.
func (s *LoggingTokenSource) AccessToken(ctx context.Context) (token string, err error) {
	defer func(begin time.Time) {
		if err != nil {
			s.logger.Error().Err(err).Dur("duration", time.Since(begin)).Msg("token acquisition failed")
			return
		}
		s.logger.Debug().
			Str("token", matrixctl.Redact(token)).
			Dur("duration", time.Since(begin)).
			Msg("token acquired")
	}(time.Now())
	return s.next.AccessToken(ctx)
}
