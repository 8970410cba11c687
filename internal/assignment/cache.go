package assignment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CapacityStatus summarizes how close a user is to their assignment cap.
type CapacityStatus string

// Capacity statuses.
const (
	StatusAvailable  CapacityStatus = "AVAILABLE"
	StatusNearlyFull CapacityStatus = "NEARLY_FULL"
	StatusFull       CapacityStatus = "FULL"
)

// CapacityView is a snapshot of a user's assignment capacity. Views from
// the cache are advisory: the assignment protocol always re-derives the
// authoritative count inside its transaction before committing.
type CapacityView struct {
	ActiveCount    int            `json:"active_count"`
	AvailableSlots int            `json:"available_slots"`
	Status         CapacityStatus `json:"status"`
}

// NewCapacityView derives a CapacityView from an active-assignment count
// and the policy cap.
func NewCapacityView(activeCount, maxAssigned int) CapacityView {
	available := maxAssigned - activeCount
	if available < 0 {
		available = 0
	}

	status := StatusAvailable
	switch {
	case activeCount >= maxAssigned:
		status = StatusFull
	case activeCount == maxAssigned-1:
		status = StatusNearlyFull
	}

	return CapacityView{
		ActiveCount:    activeCount,
		AvailableSlots: available,
		Status:         status,
	}
}

// cacheEntry pairs a view with its capture time for TTL checks.
type cacheEntry struct {
	view       CapacityView
	capturedAt time.Time
}

// CapacityCache holds short-lived per-user capacity snapshots. It is
// safe for concurrent use and never blocks beyond its internal mutex;
// there is no I/O behind any of its methods.
type CapacityCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// CacheOption customizes a CapacityCache.
type CacheOption func(*CapacityCache)

// WithClock overrides the cache's time source. Used by tests to make
// expiry deterministic.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CapacityCache) {
		c.now = now
	}
}

// NewCapacityCache creates a cache whose entries expire after ttl.
func NewCapacityCache(ttl time.Duration, opts ...CacheOption) *CapacityCache {
	c := &CapacityCache{
		entries: make(map[uuid.UUID]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupResult classifies a cache lookup. Expired is a miss whose
// entry existed but aged past the TTL; the distinction only matters
// for observability.
type LookupResult string

// Lookup results.
const (
	LookupHit     LookupResult = "hit"
	LookupMiss    LookupResult = "miss"
	LookupExpired LookupResult = "expired"
)

// Get returns the cached view for the user, if present and not expired.
// An expired entry is removed and reported as a miss.
func (c *CapacityCache) Get(userID uuid.UUID) (CapacityView, bool) {
	view, result := c.Lookup(userID)
	return view, result == LookupHit
}

// Lookup is Get with the cause of a miss distinguished, so callers can
// report expired entries separately from plain misses. An expired entry
// is removed.
func (c *CapacityCache) Lookup(userID uuid.UUID) (CapacityView, LookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return CapacityView{}, LookupMiss
	}

	if c.now().Sub(entry.capturedAt) > c.ttl {
		delete(c.entries, userID)
		return CapacityView{}, LookupExpired
	}

	return entry.view, LookupHit
}

// Put stores a freshly computed view for the user.
func (c *CapacityCache) Put(userID uuid.UUID, view CapacityView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[userID] = cacheEntry{
		view:       view,
		capturedAt: c.now(),
	}
}

// Invalidate drops the cached view for the user. Called synchronously
// after every committed assignment affecting that user, before the
// result is returned, so the next capacity read recomputes.
func (c *CapacityCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
}

// SweepExpired removes all expired entries and returns how many were
// dropped.
func (c *CapacityCache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for userID, entry := range c.entries {
		if now.Sub(entry.capturedAt) > c.ttl {
			delete(c.entries, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *CapacityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// StartSweeper launches a goroutine that periodically sweeps expired
// entries until the context is canceled. The sweep runs independently
// of foreground assignment calls and never blocks them beyond the
// cache mutex.
func (c *CapacityCache) StartSweeper(
	ctx context.Context,
	interval time.Duration,
	log *slog.Logger,
) {
	if log == nil {
		log = slog.Default()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Debug("capacity cache sweeper stopped")
				return
			case <-ticker.C:
				if removed := c.SweepExpired(); removed > 0 {
					log.Debug("swept expired capacity cache entries",
						slog.Int("removed", removed))
				}
			}
		}
	}()
}
