package eventcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/pkg/util"
)

// MemoryCategoryCache keeps category shards in process memory for tests/dev.
// Stale shards are left in place and simply reported as misses.
type MemoryCategoryCache struct {
	mu      sync.RWMutex
	entries map[string]shardEntry
	now     util.Clock
}

// NewMemoryCategoryCache constructs a cache backed by process memory. A nil
// clock uses wall time.
func NewMemoryCategoryCache(clock util.Clock) *MemoryCategoryCache {
	return &MemoryCategoryCache{
		entries: make(map[string]shardEntry),
		now:     clock,
	}
}

// GetEventsByCategories implements search.CategoryCache.
func (c *MemoryCategoryCache) GetEventsByCategories(_ context.Context, city, date string, categories []events.Category) (search.CacheLookup, error) {
	now := c.now.Now()
	out := search.CacheLookup{Cached: make(map[events.Category][]events.Event, len(categories))}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cat := range categories {
		entry, ok := c.entries[ShardKey("", city, date, cat)]
		if ok && entry.fresh(now) {
			out.Cached[cat] = append([]events.Event(nil), entry.Events...)
			continue
		}
		out.Missing = append(out.Missing, cat)
	}
	return out, nil
}

// SetEventsByCategory overwrites the shard for (city, date, category).
func (c *MemoryCategoryCache) SetEventsByCategory(_ context.Context, city, date string, category events.Category, evs []events.Event, ttlSeconds int) error {
	if err := validateTTL(ttlSeconds); err != nil {
		return err
	}
	entry := newShardEntry(append([]events.Event(nil), evs...), c.now.Now(), ttlSeconds)
	c.mu.Lock()
	c.entries[ShardKey("", city, date, category)] = entry
	c.mu.Unlock()
	return nil
}

type dayRecord struct {
	bucket    search.DayBucket
	expiresAt time.Time
}

// MemoryDayBucketStore keeps day buckets in process memory.
type MemoryDayBucketStore struct {
	mu      sync.Mutex
	buckets map[string]dayRecord
	now     util.Clock
}

// NewMemoryDayBucketStore constructs an in-memory day bucket store.
func NewMemoryDayBucketStore(clock util.Clock) *MemoryDayBucketStore {
	return &MemoryDayBucketStore{buckets: make(map[string]dayRecord), now: clock}
}

// GetDayEvents implements search.DayBucketStore.
func (s *MemoryDayBucketStore) GetDayEvents(_ context.Context, city, date string) (search.DayBucket, bool, error) {
	key := DayKey("", city, date)
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.buckets[key]
	if !ok {
		return search.DayBucket{}, false, nil
	}
	if !s.now.Now().Before(record.expiresAt) {
		delete(s.buckets, key)
		return search.DayBucket{}, false, nil
	}
	bucket := record.bucket
	bucket.Events = append([]events.Event(nil), record.bucket.Events...)
	return bucket, true, nil
}

// UpsertDayEvents merges evs into the bucket using the dedup rule.
func (s *MemoryDayBucketStore) UpsertDayEvents(_ context.Context, city, date string, evs []events.Event) error {
	key := DayKey("", city, date)
	now := s.now.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing []events.Event
	if record, ok := s.buckets[key]; ok && now.Before(record.expiresAt) {
		existing = record.bucket.Events
	}
	s.buckets[key] = dayRecord{
		bucket: search.DayBucket{
			City:      city,
			Date:      date,
			Events:    events.MergeEvents(existing, evs),
			UpdatedAt: now,
		},
		expiresAt: now.Add(DayBucketTTL),
	}
	return nil
}

var (
	_ search.CategoryCache  = (*MemoryCategoryCache)(nil)
	_ search.DayBucketStore = (*MemoryDayBucketStore)(nil)
)
