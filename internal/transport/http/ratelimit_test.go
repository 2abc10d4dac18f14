package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBudget(t *testing.T) {
	limiter := newRateLimiter(3)
	for i := 0; i < 3; i++ {
		assert.True(t, allowMessage(limiter), "message %d", i+1)
	}
	assert.False(t, allowMessage(limiter))
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newRateLimiter(0)
	assert.Nil(t, limiter)
	for i := 0; i < 1000; i++ {
		assert.True(t, allowMessage(limiter))
	}
}
