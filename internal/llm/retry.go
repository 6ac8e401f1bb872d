package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/manualbridge/manualbridge/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 3 * time.Second
)

// RetryPolicy holds retry configuration. The delay between attempts is fixed.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultRetryDelay
	}
	return p
}

// shouldRetry determines if a status code is retryable.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// retryWithBackoff wraps an HTTP request with retry logic. Network errors and
// retryable status codes are retried up to MaxAttempts times; other responses
// are returned to the caller untouched.
func (c *Client) retryWithBackoff(ctx context.Context, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	policy := c.retry.normalized()
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()

		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)

			if !shouldRetry(resp.StatusCode) {
				return resp, nil
			}

			if resp.Body != nil {
				resp.Body.Close()
			}
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}

	return nil, domain.TransportError(fmt.Sprintf("request failed after %d attempts", policy.MaxAttempts), lastErr)
}
