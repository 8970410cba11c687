package assignment_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/assignment"
)

// fakeClock is a settable time source for deterministic TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewCapacityView(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		activeCount int
		wantSlots   int
		wantStatus  assignment.CapacityStatus
	}{
		{activeCount: 0, wantSlots: 3, wantStatus: assignment.StatusAvailable},
		{activeCount: 1, wantSlots: 2, wantStatus: assignment.StatusAvailable},
		{activeCount: 2, wantSlots: 1, wantStatus: assignment.StatusNearlyFull},
		{activeCount: 3, wantSlots: 0, wantStatus: assignment.StatusFull},
		{activeCount: 4, wantSlots: 0, wantStatus: assignment.StatusFull},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("count_%d", tc.activeCount), func(t *testing.T) {
			t.Parallel()

			view := assignment.NewCapacityView(tc.activeCount, 3)
			assert.Equal(t, tc.activeCount, view.ActiveCount)
			assert.Equal(t, tc.wantSlots, view.AvailableSlots)
			assert.Equal(t, tc.wantStatus, view.Status)
		})
	}
}

func TestCapacityCache_PutGet(t *testing.T) {
	t.Parallel()

	cache := assignment.NewCapacityCache(30 * time.Second)
	userID := uuid.New()

	_, ok := cache.Get(userID)
	assert.False(t, ok)

	view := assignment.NewCapacityView(2, 3)
	cache.Put(userID, view)

	got, ok := cache.Get(userID)
	require.True(t, ok)
	assert.Equal(t, view, got)
}

func TestCapacityCache_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cache := assignment.NewCapacityCache(30*time.Second, assignment.WithClock(clock.Now))
	userID := uuid.New()

	cache.Put(userID, assignment.NewCapacityView(1, 3))

	clock.Advance(30 * time.Second)
	_, ok := cache.Get(userID)
	assert.True(t, ok, "an entry exactly at the TTL boundary is still fresh")

	clock.Advance(time.Second)
	_, ok = cache.Get(userID)
	assert.False(t, ok)
	assert.Zero(t, cache.Len(), "an expired entry is removed on read")
}

func TestCapacityCache_LookupDistinguishesExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cache := assignment.NewCapacityCache(30*time.Second, assignment.WithClock(clock.Now))
	userID := uuid.New()

	_, result := cache.Lookup(userID)
	assert.Equal(t, assignment.LookupMiss, result)

	view := assignment.NewCapacityView(2, 3)
	cache.Put(userID, view)

	got, result := cache.Lookup(userID)
	assert.Equal(t, assignment.LookupHit, result)
	assert.Equal(t, view, got)

	clock.Advance(31 * time.Second)
	_, result = cache.Lookup(userID)
	assert.Equal(t, assignment.LookupExpired, result)

	// The expired entry was removed, so the next lookup is a plain miss.
	_, result = cache.Lookup(userID)
	assert.Equal(t, assignment.LookupMiss, result)
}

func TestCapacityCache_Invalidate(t *testing.T) {
	t.Parallel()

	cache := assignment.NewCapacityCache(time.Minute)
	userID := uuid.New()
	other := uuid.New()

	cache.Put(userID, assignment.NewCapacityView(3, 3))
	cache.Put(other, assignment.NewCapacityView(1, 3))

	cache.Invalidate(userID)

	_, ok := cache.Get(userID)
	assert.False(t, ok)
	_, ok = cache.Get(other)
	assert.True(t, ok, "invalidation is scoped to the named user")
}

func TestCapacityCache_SweepExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cache := assignment.NewCapacityCache(30*time.Second, assignment.WithClock(clock.Now))

	stale := []uuid.UUID{uuid.New(), uuid.New()}
	for _, id := range stale {
		cache.Put(id, assignment.NewCapacityView(1, 3))
	}

	clock.Advance(45 * time.Second)
	fresh := uuid.New()
	cache.Put(fresh, assignment.NewCapacityView(2, 3))

	removed := cache.SweepExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get(fresh)
	assert.True(t, ok)
}

func TestCapacityCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := assignment.NewCapacityCache(time.Minute)
	userIDs := make([]uuid.UUID, 8)
	for i := range userIDs {
		userIDs[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := userIDs[i%len(userIDs)]
			switch i % 3 {
			case 0:
				cache.Put(userID, assignment.NewCapacityView(i%4, 3))
			case 1:
				cache.Get(userID)
			default:
				cache.Invalidate(userID)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), len(userIDs))
}
