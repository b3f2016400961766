package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		got, ok := ParsePriority(string(p))
		assert.True(t, ok, p)
		assert.Equal(t, p, got)
	}

	got, ok := ParsePriority("shouty")
	assert.False(t, ok)
	assert.Equal(t, PriorityNormal, got, "unknown input defaults rather than fails")

	got, ok = ParsePriority("")
	assert.False(t, ok)
	assert.Equal(t, PriorityNormal, got)
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Notification{}).Expired(now), "nil ExpiresAt never expires")
	assert.True(t, (&Notification{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Notification{ExpiresAt: &now}).Expired(now), "expiry instant counts as expired")
	assert.False(t, (&Notification{ExpiresAt: &future}).Expired(now))
}
