package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/staywatch/staywatch/internal/metrics"
)

// attemptFunc matches Session.Attempt and is swapped out in tests.
type attemptFunc func(ctx context.Context, rawURL string, attemptID int, params map[string]string) (Outcome, error)

// Client wraps a Session with the repeated-request loop: it retries a
// bounded number of attempts, stops at the first response whose status is
// below 300, and reports exhaustion as absence.
type Client struct {
	session *Session
	attempt attemptFunc
	logger  *zap.Logger
}

// NewClient builds a Client driving the given session.
func NewClient(session *Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		session: session,
		attempt: session.Attempt,
		logger:  logger,
	}
}

// Fetch retrieves the resource at rawURL with the given query parameters.
// It returns (nil, nil) when every attempt was consumed without success:
// absence is the terminal failure signal, and the caller decides whether
// that is fatal. The error return is reserved for cancellation and
// malformed input, which abort immediately without further attempts.
func (c *Client) Fetch(ctx context.Context, rawURL string, params map[string]string) (*Response, error) {
	c.logger.Debug("fetch started", zap.String("url", rawURL))
	for attemptID := 0; attemptID < c.session.MaxAttempts(); attemptID++ {
		outcome, err := c.attempt(ctx, rawURL, attemptID, params)
		if err != nil {
			return nil, err
		}

		switch outcome.Kind {
		case KindTransient, KindUnknown:
			c.logger.Debug("attempt yielded nothing, retrying",
				zap.Int("attempt", attemptID),
				zap.String("reason", outcome.Reason),
			)
			continue
		case KindSuccess, KindSoftBlocked:
			// Trust the status code, not the tag.
			if outcome.Succeeded() {
				return outcome.Response, nil
			}
			c.logger.Debug("attempt soft-blocked, retrying", zap.Int("attempt", attemptID))
		}
	}

	metrics.TotalExhaustions.Inc()
	c.logger.Error("all attempts exhausted", zap.String("url", rawURL))
	return nil, nil
}
