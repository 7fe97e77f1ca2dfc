package eventcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
	"github.com/yanqian/eventradar/pkg/util"
)

const maxUpsertAttempts = 3

var errUpsertConflict = errors.New("day bucket changed during upsert")

// ValkeyCategoryCache persists category shards in a Valkey-compatible database.
type ValkeyCategoryCache struct {
	client valkey.Client
	prefix string
	now    util.Clock
	logger *slog.Logger
}

// NewValkeyCategoryCache constructs a shard cache backed by Valkey.
func NewValkeyCategoryCache(client valkey.Client, prefix string, clock util.Clock, logger *slog.Logger) *ValkeyCategoryCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ValkeyCategoryCache{
		client: client,
		prefix: prefix,
		now:    clock,
		logger: logger.With("component", "eventcache.valkey"),
	}
}

// GetEventsByCategories reads every requested shard with a single MGET.
func (c *ValkeyCategoryCache) GetEventsByCategories(ctx context.Context, city, date string, categories []events.Category) (search.CacheLookup, error) {
	out := search.CacheLookup{Cached: make(map[events.Category][]events.Event, len(categories))}
	if len(categories) == 0 {
		return out, nil
	}
	keys := make([]string, len(categories))
	for i, cat := range categories {
		keys[i] = ShardKey(c.prefix, city, date, cat)
	}
	values, err := c.client.Do(ctx, c.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return search.CacheLookup{}, fmt.Errorf("mget shards: %w", err)
	}

	now := c.now.Now()
	for i, cat := range categories {
		if i >= len(values) {
			out.Missing = append(out.Missing, cat)
			continue
		}
		payload, err := values[i].ToString()
		if err != nil {
			if !valkey.IsValkeyNil(err) {
				c.logger.Warn("shard read failed", "key", keys[i], "error", err)
			}
			out.Missing = append(out.Missing, cat)
			continue
		}
		var entry shardEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			c.logger.Warn("shard payload corrupt", "key", keys[i], "error", err)
			out.Missing = append(out.Missing, cat)
			continue
		}
		if !entry.fresh(now) {
			out.Missing = append(out.Missing, cat)
			continue
		}
		out.Cached[cat] = entry.Events
	}
	return out, nil
}

// SetEventsByCategory overwrites the shard. The key expires with the shard
// so the store can reclaim memory; freshness is still checked on read.
func (c *ValkeyCategoryCache) SetEventsByCategory(ctx context.Context, city, date string, category events.Category, evs []events.Event, ttlSeconds int) error {
	if err := validateTTL(ttlSeconds); err != nil {
		return err
	}
	payload, err := json.Marshal(newShardEntry(evs, c.now.Now(), ttlSeconds))
	if err != nil {
		return err
	}
	key := ShardKey(c.prefix, city, date, category)
	cmd := c.client.B().Set().Key(key).Value(string(payload)).Ex(time.Duration(ttlSeconds) * time.Second).Build()
	return c.client.Do(ctx, cmd).Error()
}

// ValkeyDayBucketStore persists day buckets in Valkey.
type ValkeyDayBucketStore struct {
	client valkey.Client
	prefix string
	now    util.Clock
}

// NewValkeyDayBucketStore constructs a day bucket store backed by Valkey.
func NewValkeyDayBucketStore(client valkey.Client, prefix string, clock util.Clock) *ValkeyDayBucketStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &ValkeyDayBucketStore{client: client, prefix: prefix, now: clock}
}

// GetDayEvents implements search.DayBucketStore.
func (s *ValkeyDayBucketStore) GetDayEvents(ctx context.Context, city, date string) (search.DayBucket, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(DayKey(s.prefix, city, date)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return search.DayBucket{}, false, nil
		}
		return search.DayBucket{}, false, err
	}
	var bucket search.DayBucket
	if err := json.Unmarshal([]byte(payload), &bucket); err != nil {
		return search.DayBucket{}, false, err
	}
	return bucket, true, nil
}

// UpsertDayEvents merges evs into the stored bucket. The read-merge-write
// runs under WATCH and is retried when another writer got in between.
func (s *ValkeyDayBucketStore) UpsertDayEvents(ctx context.Context, city, date string, evs []events.Event) error {
	key := DayKey(s.prefix, city, date)
	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		err = s.client.Dedicated(func(c valkey.DedicatedClient) error {
			return s.upsertOnce(ctx, c, key, city, date, evs)
		})
		if !errors.Is(err, errUpsertConflict) {
			return err
		}
	}
	return err
}

func (s *ValkeyDayBucketStore) upsertOnce(ctx context.Context, c valkey.DedicatedClient, key, city, date string, evs []events.Event) error {
	if err := c.Do(ctx, c.B().Watch().Key(key).Build()).Error(); err != nil {
		return err
	}
	var existing search.DayBucket
	payload, err := c.Do(ctx, c.B().Get().Key(key).Build()).ToString()
	switch {
	case err == nil:
		if uerr := json.Unmarshal([]byte(payload), &existing); uerr != nil {
			existing = search.DayBucket{}
		}
	case !valkey.IsValkeyNil(err):
		return err
	}

	merged, err := json.Marshal(search.DayBucket{
		City:      city,
		Date:      date,
		Events:    events.MergeEvents(existing.Events, evs),
		UpdatedAt: s.now.Now(),
	})
	if err != nil {
		return err
	}
	resps := c.DoMulti(ctx,
		c.B().Multi().Build(),
		c.B().Set().Key(key).Value(string(merged)).Ex(DayBucketTTL).Build(),
		c.B().Exec().Build(),
	)
	for _, resp := range resps[:len(resps)-1] {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	if err := resps[len(resps)-1].Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return errUpsertConflict
		}
		return err
	}
	return nil
}

var (
	_ search.CategoryCache  = (*ValkeyCategoryCache)(nil)
	_ search.DayBucketStore = (*ValkeyDayBucketStore)(nil)
)
