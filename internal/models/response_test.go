package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTooManyRequestsResponse(t *testing.T) {
	resp := NewTooManyRequestsResponse("slow down", 30*time.Second)

	assert.Equal(t, "Too Many Requests", resp.Error)
	assert.Equal(t, "slow down", resp.Message)
	assert.Equal(t, 30, resp.RetryAfter)
}

func TestNewTooManyRequestsResponse_RoundsUp(t *testing.T) {
	// A partial second must round up so clients never retry early.
	resp := NewTooManyRequestsResponse("slow down", 1500*time.Millisecond)
	assert.Equal(t, 2, resp.RetryAfter)

	resp = NewTooManyRequestsResponse("slow down", 10*time.Millisecond)
	assert.Equal(t, 1, resp.RetryAfter)
}

func TestNewTooManyRequestsResponse_NegativeClampsToZero(t *testing.T) {
	resp := NewTooManyRequestsResponse("slow down", -time.Second)
	assert.Equal(t, 0, resp.RetryAfter)
}

func TestTooManyRequestsResponse_JSONShape(t *testing.T) {
	data, err := json.Marshal(NewTooManyRequestsResponse("slow down", time.Minute))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Too Many Requests", decoded["error"])
	assert.Equal(t, "slow down", decoded["message"])
	assert.Equal(t, float64(60), decoded["retryAfter"])
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("something broke", ErrorCodeInternalError)

	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, "something broke", resp.Message)
	assert.Equal(t, ErrorCodeInternalError, resp.Code)
	assert.False(t, resp.Timestamp.IsZero())
}
