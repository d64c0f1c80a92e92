package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Now()

	allowed1, _ := rl.Consume("client-a", now)
	allowed2, _ := rl.Consume("client-a", now)
	allowed3, retryAfter := rl.Consume("client-a", now)

	assert.True(t, allowed1)
	assert.True(t, allowed2)
	assert.False(t, allowed3)
	assert.GreaterOrEqual(t, retryAfter, 1.0)
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()

	allowed1, _ := rl.Consume("client-b", now)
	assert.True(t, allowed1)

	allowed2, _ := rl.Consume("client-b", now)
	assert.False(t, allowed2)

	later := now.Add(2 * time.Second)
	allowed3, _ := rl.Consume("client-b", later)
	assert.True(t, allowed3)
}

func TestRateLimiter_EvictsOldestBeyondCapacity(t *testing.T) {
	rl := NewRateLimiterWithCapacity(1, 1, 2)
	now := time.Now()

	rl.Consume("a", now)
	rl.Consume("b", now)
	rl.Consume("c", now) // evicts "a"

	assert.Len(t, rl.buckets, 2)
	_, aPresent := rl.buckets["a"]
	assert.False(t, aPresent)
}

func TestRateLimiter_IndependentIdentifiers(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Now()

	allowedA, _ := rl.Consume("a", now)
	allowedB, _ := rl.Consume("b", now)

	assert.True(t, allowedA)
	assert.True(t, allowedB)
}
