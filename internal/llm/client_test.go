package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"title\": \"test\"}\n```",
			expected: `{"title": "test"}`,
		},
		{
			name:     "plain fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "no fence",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n[1, 2]\n```\n  ",
			expected: "[1, 2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFences(tt.input))
		})
	}
}

func TestCompleteIntoUnmarshalsJSON(t *testing.T) {
	type reply struct {
		Title string `json:"title"`
	}

	mock := NewMock("```json\n{\"title\": \"Жакет женский\"}\n```")

	got, err := CompleteInto[reply](context.Background(), mock, Request{Text: "describe"})
	require.NoError(t, err)
	assert.Equal(t, "Жакет женский", got.Title)

	require.NotNil(t, mock.LastRequest())
	assert.True(t, mock.LastRequest().JSONMode)
}

func TestCompleteIntoParseError(t *testing.T) {
	mock := NewMock("not json at all")

	_, err := CompleteInto[map[string]string](context.Background(), mock, Request{Text: "x"})
	require.Error(t, err)

	var ae *AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrorTypeParse, ae.Type)
	assert.False(t, ae.Retryable())
}

func TestErrorRetryability(t *testing.T) {
	tests := []struct {
		name      string
		err       *AdapterError
		retryable bool
	}{
		{"network", NewNetworkError(errors.New("refused")), true},
		{"timeout", NewTimeoutError(context.DeadlineExceeded), true},
		{"rate limit", NewAPIError(http.StatusTooManyRequests, "slow down"), true},
		{"server error", NewAPIError(http.StatusBadGateway, "bad gateway"), true},
		{"bad request", NewAPIError(http.StatusBadRequest, "invalid"), false},
		{"unauthorized", NewAPIError(http.StatusUnauthorized, "bad key"), false},
		{"parse", NewParseError("garbage", errors.New("unexpected token")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryablePlainError(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, Sleep: noSleep}

	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return NewNetworkError(errors.New("flaky"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyFatalErrorNoRetry(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, Sleep: noSleep}

	err := p.Do(context.Background(), func() error {
		calls++
		return NewAPIError(http.StatusBadRequest, "invalid")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	calls := 0
	var delays []time.Duration
	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	err := p.Do(context.Background(), func() error {
		calls++
		return NewTimeoutError(context.DeadlineExceeded)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestRetryPolicyCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 3}
	err := p.Do(ctx, func() error {
		return NewNetworkError(errors.New("flaky"))
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockQueueOrderAndRepeat(t *testing.T) {
	mock := NewMock("first", "second")

	for _, want := range []string{"first", "second", "second"} {
		got, err := mock.Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, mock.CallCount())
}

func TestConfigValidation(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.APIKey = "sk-test"
	require.Error(t, cfg.Validate())

	cfg.Model = "gpt-4o"
	require.NoError(t, cfg.Validate())

	cfg.SetDefaults()
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
}

func noSleep(context.Context, time.Duration) error { return nil }
