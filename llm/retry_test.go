package llm

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 60.0}

	for i, expected := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		assert.Equal(t, expected, policy.Delay(i), "attempt %d", i)
	}
}

func TestRetryPolicyDelayCapped(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 5.0}
	assert.Equal(t, 5*time.Second, policy.Delay(10))
}

func TestRetryPolicyDelayJitter(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 1.0, BackoffMultiplier: 2.0, MaxDelay: 60.0, Jitter: true}
	for i := 0; i < 100; i++ {
		got := policy.Delay(0)
		assert.GreaterOrEqual(t, got, 500*time.Millisecond)
		assert.Less(t, got, 1500*time.Millisecond)
	}
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BaseDelay: 0.001, MaxDelay: 0.01, BackoffMultiplier: 1.0}
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	policy := fastPolicy(3)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		retried = append(retried, attempt)
	}

	result, err := Retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{ProviderError{Retryable: true}}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, &AuthenticationError{}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{ProviderError{Retryable: true}}
	})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsRetryAfterAboveMax(t *testing.T) {
	after := 120.0
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, &RateLimitError{ProviderError{Retryable: true, RetryAfter: &after}}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryUnwrapsPkgErrors(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.Wrap(&InvalidRequestError{}, "calling model")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, fastPolicy(3), func(ctx context.Context) (int, error) {
		return 0, &ServerError{ProviderError{Retryable: true}}
	})
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryMiddleware(t *testing.T) {
	mock := newMockAdapter("p", "ok")
	failures := 1
	flaky := func(ctx context.Context, req Request, next Handler) (*Response, error) {
		if failures > 0 {
			failures--
			return nil, &NetworkError{}
		}
		return next(ctx, req)
	}
	client := NewClient(WithProvider("p", mock), WithMiddleware(RetryMiddleware(fastPolicy(2)), flaky))

	resp, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Len(t, mock.requests, 1)
}
