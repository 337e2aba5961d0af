package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitService_IsAllowed(t *testing.T) {
	store := newMemoryStore()
	svc := NewRateLimitService(store)
	svc.SetConfig(RateLimitConfig{
		EndpointType: EndpointProgressTick,
		MaxRequests:  3,
		WindowSize:   time.Minute,
		BlockTime:    time.Minute,
		IsActive:     true,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, info, err := svc.IsAllowed(ctx, "student-1", EndpointProgressTick)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info, err := svc.IsAllowed(ctx, "student-1", EndpointProgressTick)
	require.NoError(t, err)
	assert.False(t, allowed)
	require.NotNil(t, info.BlockedUntil)

	// still blocked on the next call, and other users are unaffected
	allowed, _, err = svc.IsAllowed(ctx, "student-1", EndpointProgressTick)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = svc.IsAllowed(ctx, "student-2", EndpointProgressTick)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitService_AllowsWithoutStore(t *testing.T) {
	svc := NewRateLimitService(nil)

	for i := 0; i < 1000; i++ {
		allowed, info, err := svc.IsAllowed(context.Background(), "ip", EndpointAPIGeneral)
		require.NoError(t, err)
		require.True(t, allowed)
		assert.Equal(t, -1, info.Remaining)
	}
}

func TestRateLimitService_UnknownEndpointAllowed(t *testing.T) {
	svc := NewRateLimitService(newMemoryStore())

	allowed, _, err := svc.IsAllowed(context.Background(), "ip", "unknown")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitService_StoreErrorSurfaces(t *testing.T) {
	store := newMemoryStore()
	store.failWith(errors.New("redis down"))
	svc := NewRateLimitService(store)

	_, _, err := svc.IsAllowed(context.Background(), "ip", EndpointAPIGeneral)
	assert.Error(t, err)
}
