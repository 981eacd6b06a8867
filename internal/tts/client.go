package tts

import (
	"context"
	"time"

	"github.com/lectorlabs/narrator/internal/logging"
)

const (
	defaultAttempts       = 3
	defaultBackoffBase    = 500 * time.Millisecond
	defaultAttemptTimeout = 30 * time.Second
)

// Client wraps a Provider with the per-chunk retry policy: up to three
// attempts with linear backoff (attempt x base delay) and a bounded timeout
// per attempt. Synthesis of near-limit chunks is slow, hence the generous
// attempt timeout.
type Client struct {
	provider       Provider
	attempts       int
	backoffBase    time.Duration
	attemptTimeout time.Duration
	sleep          func(time.Duration)
}

func NewClient(provider Provider) *Client {
	return &Client{
		provider:       provider,
		attempts:       defaultAttempts,
		backoffBase:    defaultBackoffBase,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          time.Sleep,
	}
}

func (c *Client) Provider() Provider {
	return c.provider
}

// Synthesize fetches audio for one chunk. A non-retryable failure surfaces
// after a single attempt; retryable failures are re-attempted until the
// budget is spent. An empty payload counts as a failure even when the
// transport reported success.
func (c *Client) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, error) {
	settings = c.provider.NormalizeSettings(settings)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		data, err := c.provider.Synthesize(attemptCtx, text, settings)
		cancel()

		if err == nil {
			if len(data) == 0 {
				return nil, &SynthesisError{
					ProviderID: c.provider.ID(),
					Attempts:   attempt,
					Retryable:  false,
					Err:        ErrEmptyAudio,
				}
			}
			return data, nil
		}

		// The parent context going away mid-attempt means the session was
		// stopped; the result must be discarded, not retried.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		if !Retryable(err) {
			return nil, &SynthesisError{
				ProviderID: c.provider.ID(),
				Attempts:   attempt,
				Retryable:  false,
				Err:        err,
			}
		}

		if attempt < c.attempts {
			delay := time.Duration(attempt) * c.backoffBase
			logging.Warnf("synthesis attempt %d/%d failed, retrying in %s: %v",
				attempt, c.attempts, delay, err)
			c.sleep(delay)
		}
	}

	return nil, &SynthesisError{
		ProviderID: c.provider.ID(),
		Attempts:   c.attempts,
		Retryable:  true,
		Err:        lastErr,
	}
}
