package core

import (
	"testing"
	"time"

	"github.com/letsencrypt/dcv/test"
)

func TestValidationStateExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	fresh := ValidationState{PrepareTime: now}
	test.AssertEquals(t, fresh.Expired(now.Add(29*24*time.Hour), window), false)

	stale := ValidationState{PrepareTime: now}
	test.AssertEquals(t, stale.Expired(now.Add(31*24*time.Hour), window), true)
}

func TestValidationStateExpiredAtBoundary(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour
	state := ValidationState{PrepareTime: now}

	// exactly at the window edge is not yet expired; the comparison is
	// strictly greater-than.
	test.AssertEquals(t, state.Expired(now.Add(window), window), false)
	test.AssertEquals(t, state.Expired(now.Add(window+time.Second), window), true)
}
