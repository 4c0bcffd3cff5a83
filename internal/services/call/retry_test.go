package call

import (
	"context"
	"errors"
	"testing"
	"time"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Do(t *testing.T) {
	serverErr := &adapterhttp.APIError{StatusCode: 503, Body: "upstream unavailable"}
	clientErr := &adapterhttp.APIError{StatusCode: 404, Body: "gateway not found"}
	transportErr := errors.New("dial tcp: connection refused")

	tests := []struct {
		name          string
		policy        RetryPolicy
		results       []error
		expectedErr   error
		expectedCalls int
		expectedWaits []time.Duration
	}{
		{
			name:          "succeeds on first attempt without sleeping",
			policy:        RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second},
			results:       []error{nil},
			expectedCalls: 1,
		},
		{
			name:          "retries server errors with linear backoff",
			policy:        RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second},
			results:       []error{serverErr, serverErr, nil},
			expectedCalls: 3,
			expectedWaits: []time.Duration{1 * time.Second, 2 * time.Second},
		},
		{
			name:          "returns last error after exhausting attempts",
			policy:        RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second},
			results:       []error{serverErr, serverErr, serverErr},
			expectedErr:   serverErr,
			expectedCalls: 3,
			expectedWaits: []time.Duration{1 * time.Second, 2 * time.Second},
		},
		{
			name:          "does not retry client errors",
			policy:        RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second},
			results:       []error{clientErr},
			expectedErr:   clientErr,
			expectedCalls: 1,
		},
		{
			name:          "does not retry transport errors",
			policy:        RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second},
			results:       []error{transportErr},
			expectedErr:   transportErr,
			expectedCalls: 1,
		},
		{
			name:          "treats zero attempts as one",
			policy:        RetryPolicy{MaxAttempts: 0, BackoffUnit: time.Second},
			results:       []error{serverErr},
			expectedErr:   serverErr,
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var waits []time.Duration
			tt.policy.Sleep = func(d time.Duration) { waits = append(waits, d) }

			calls := 0
			err := tt.policy.Do(context.Background(), "test_op", func() error {
				result := tt.results[calls]
				calls++
				return result
			})

			if tt.expectedErr != nil {
				assert.Equal(t, tt.expectedErr, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, tt.expectedWaits, waits)
		})
	}
}

func TestRetryPolicy_Do_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 3, BackoffUnit: time.Second, Sleep: func(time.Duration) {}}
	calls := 0
	err := policy.Do(ctx, "test_op", func() error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.BackoffUnit)
}
